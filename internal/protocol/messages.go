// Package protocol implements the message protocol spoken by popup and
// content-script clients. A message is a JSON object tagged by its "action"
// field; each action decodes into its own command type, is validated at the
// boundary and dispatched to exactly one handler.
package protocol

import (
	"urlguard/pkg/domain"
	"urlguard/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
)

// Action is the discriminator of a message.
type Action string

const (
	ActionAnalyzeURL     Action = "analyzeUrl"
	ActionGetURLAnalysis Action = "getUrlAnalysis"
	ActionUnblockURL     Action = "unblockUrl"
	ActionGetBlockedURLs Action = "getBlockedUrls"
	ActionReportThreat   Action = "reportThreat"
	ActionURLChanged     Action = "urlChanged"
)

// Command is a decoded, validated message.
type Command interface {
	Action() Action
}

// AnalyzeURL classifies URL, using the cache when fresh.
type AnalyzeURL struct {
	URL string `validate:"required,max=8192"`
}

// GetURLAnalysis returns the cached classification of URL without any network call.
type GetURLAnalysis struct {
	URL string `validate:"required,max=8192"`
}

// UnblockURL removes URL from the block registry.
type UnblockURL struct {
	URL string `validate:"required,max=8192"`
}

// GetBlockedURLs lists the block registry.
type GetBlockedURLs struct{}

// ReportThreat posts a user-initiated incident.
type ReportThreat struct {
	URL            string                      `validate:"required,max=8192"`
	AnalysisResult domain.ClassificationResult `validate:"required"`
}

// URLChanged is a client-side URL change observed by a content script.
type URLChanged struct {
	URL   string       `validate:"required,max=8192"`
	TabID domain.TabID `validate:"gte=0"`
}

func (AnalyzeURL) Action() Action     { return ActionAnalyzeURL }
func (GetURLAnalysis) Action() Action { return ActionGetURLAnalysis }
func (UnblockURL) Action() Action     { return ActionUnblockURL }
func (GetBlockedURLs) Action() Action { return ActionGetBlockedURLs }
func (ReportThreat) Action() Action   { return ActionReportThreat }
func (URLChanged) Action() Action     { return ActionURLChanged }

// envelope holds every field any action may carry.
type envelope struct {
	action         Action
	url            string
	tabID          int
	analysisResult *domain.ClassificationResult
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	d := jx.DecodeBytes(data)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "action":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "action")
			}
			env.action = Action(s)
		case "url":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "url")
			}
			env.url = s
		case "tabId":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "tabId")
			}
			env.tabID = n
		case "analysisResult":
			if d.Next() == jx.Null {
				return d.Null()
			}
			res, err := DecodeResult(d)
			if err != nil {
				return errors.Wrap(err, "analysisResult")
			}
			env.analysisResult = res
		default:
			return d.Skip()
		}

		return nil
	}); err != nil {
		return envelope{}, errors.Wrap(err, "decode message")
	}

	return env, nil
}

// Decoder turns raw messages into commands.
type Decoder struct {
	validate *validator.Validate
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Decode parses and validates one message. Malformed or invalid messages are
// reported as serrors.ErrBadRequest.
func (dec *Decoder) Decode(data []byte) (Command, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "malformed message")
	}

	var cmd Command
	switch env.action {
	case ActionAnalyzeURL:
		cmd = AnalyzeURL{URL: env.url}
	case ActionGetURLAnalysis:
		cmd = GetURLAnalysis{URL: env.url}
	case ActionUnblockURL:
		cmd = UnblockURL{URL: env.url}
	case ActionGetBlockedURLs:
		cmd = GetBlockedURLs{}
	case ActionReportThreat:
		if env.analysisResult == nil {
			return nil, serrors.With(serrors.ErrBadRequest, "reportThreat requires analysisResult")
		}
		if !env.analysisResult.RiskLevel.Valid() {
			return nil, serrors.With(serrors.ErrBadRequest, "invalid riskLevel %q", env.analysisResult.RiskLevel)
		}
		cmd = ReportThreat{URL: env.url, AnalysisResult: *env.analysisResult}
	case ActionURLChanged:
		cmd = URLChanged{URL: env.url, TabID: domain.TabID(env.tabID)}
	case "":
		return nil, serrors.With(serrors.ErrBadRequest, "missing action")
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown action %q", env.action)
	}

	if err := dec.validate.Struct(cmd); err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid %s message", env.action)
	}

	return cmd, nil
}
