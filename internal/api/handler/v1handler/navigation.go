package v1handler

import (
	"io"
	"net/http"
	"urlguard/internal/injector"
	"urlguard/internal/protocol"
	"urlguard/pkg/domain"
	"urlguard/pkg/serrors"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

func decodeNavigation(data []byte) (domain.Navigation, error) {
	var nav domain.Navigation
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "tabId":
			n, err := d.Int()
			nav.TabID = domain.TabID(n)

			return err
		case "url":
			s, err := d.Str()
			nav.URL = s

			return err
		case "trigger":
			s, err := d.Str()
			nav.Trigger = domain.Trigger(s)

			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nav, errors.Wrap(err, "decode navigation")
	}
	if nav.URL == "" {
		return nav, errors.New("url is required")
	}
	if !nav.Trigger.Valid() {
		return nav, errors.Errorf("unknown trigger %q", nav.Trigger)
	}

	return nav, nil
}

// PostNavigation runs one navigation attempt reported by an external event
// source and returns the decision. The guard cannot reach into the caller's
// tab, so injection decisions carry the script the caller has to run.
func (h *Handler) PostNavigation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "could not read body"))

		return
	}
	nav, err := decodeNavigation(body)
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid navigation"))

		return
	}

	d := h.Decider.Decide(r.Context(), nav)

	var script string
	if d.State == domain.StateBlocked && d.Enforcement == domain.EnforcementInjection {
		if script, err = injector.Script(nav.URL, d.Result); err != nil {
			h.writeError(w, r, err)

			return
		}
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("state", func(e *jx.Encoder) { e.Str(string(d.State)) })
		e.Field("fromRegistry", func(e *jx.Encoder) { e.Bool(d.FromRegistry) })
		e.Field("classificationFailed", func(e *jx.Encoder) { e.Bool(d.ClassificationFailed) })
		if d.Enforcement != domain.EnforcementNone {
			e.Field("enforcement", func(e *jx.Encoder) { e.Str(string(d.Enforcement)) })
		}
		if d.RedirectURL != "" {
			e.Field("redirectUrl", func(e *jx.Encoder) { e.Str(d.RedirectURL) })
		}
		if script != "" {
			e.Field("injectScript", func(e *jx.Encoder) { e.Str(script) })
		}
		e.Field("result", func(e *jx.Encoder) { protocol.EncodeResult(e, d.Result) })
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}
