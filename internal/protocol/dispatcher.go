package protocol

import (
	"context"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/serrors"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// Guard is the part of the interceptor the protocol drives.
type Guard interface {
	Analyze(ctx context.Context, url string) (*domain.ClassificationResult, error)
	Cached(url string) (*domain.ClassificationResult, bool)
	Unblock(ctx context.Context, url string) error
	Blocked() []string
	Decide(ctx context.Context, nav domain.Navigation) domain.Decision
}

// ThreatReporter delivers user-reported incidents.
type ThreatReporter interface {
	ReportThreat(ctx context.Context, url string, res domain.ClassificationResult) error
}

// Dispatcher routes commands to their handlers and encodes the responses.
type Dispatcher struct {
	decoder  *Decoder
	guard    Guard
	reporter ThreatReporter
}

// NewDispatcher creates a Dispatcher. reporter may be nil when incident
// reporting is disabled.
func NewDispatcher(guard Guard, reporter ThreatReporter) *Dispatcher {
	return &Dispatcher{decoder: NewDecoder(), guard: guard, reporter: reporter}
}

// HandleMessage decodes data, runs the command and returns the encoded
// response. Only malformed messages produce an error; failures of a valid
// command are part of the response.
func (d *Dispatcher) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	cmd, err := d.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	return d.Dispatch(ctx, cmd), nil
}

// Dispatch runs cmd and returns the encoded response.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) []byte {
	ctx = logger.WithFields(ctx, zap.String("action", string(cmd.Action())))

	var e jx.Encoder
	switch c := cmd.(type) {
	case AnalyzeURL:
		d.analyze(ctx, &e, c)
	case GetURLAnalysis:
		res, _ := d.guard.Cached(c.URL)
		EncodeResult(&e, res)
	case UnblockURL:
		d.unblock(ctx, &e, c)
	case GetBlockedURLs:
		blocked := d.guard.Blocked()
		e.Obj(func(e *jx.Encoder) {
			e.Field("blockedUrls", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, u := range blocked {
						e.Str(u)
					}
				})
			})
		})
	case ReportThreat:
		d.reportThreat(ctx, &e, c)
	case URLChanged:
		decision := d.guard.Decide(ctx, domain.Navigation{
			TabID:   c.TabID,
			URL:     c.URL,
			Trigger: domain.TriggerTabLoading,
		})
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("state", func(e *jx.Encoder) { e.Str(string(decision.State)) })
		})
	default:
		encodeError(&e, serrors.With(serrors.ErrBadRequest, "unsupported action %q", cmd.Action()))
	}

	return e.Bytes()
}

func (d *Dispatcher) analyze(ctx context.Context, e *jx.Encoder, c AnalyzeURL) {
	res, err := d.guard.Analyze(ctx, c.URL)
	if err != nil {
		logger.Warn(ctx, "analysis failed", zap.String("url", c.URL), zap.Error(err))
		encodeError(e, err)

		return
	}
	EncodeResult(e, res)
}

func (d *Dispatcher) unblock(ctx context.Context, e *jx.Encoder, c UnblockURL) {
	err := d.guard.Unblock(ctx, c.URL)
	msg := "URL unblocked"
	if err != nil {
		msg = "URL was not blocked"
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(err == nil) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
}

func (d *Dispatcher) reportThreat(ctx context.Context, e *jx.Encoder, c ReportThreat) {
	if d.reporter == nil {
		encodeError(e, serrors.With(serrors.ErrUnavailable, "incident reporting is disabled"))

		return
	}
	if err := d.reporter.ReportThreat(ctx, c.URL, c.AnalysisResult); err != nil {
		encodeError(e, err)

		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
	})
}

func encodeError(e *jx.Encoder, err error) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(err.Error()) })
	})
}
