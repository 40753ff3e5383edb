// Package v1handler implements the version 1 HTTP endpoints of the guard:
// the client message protocol, the external navigation event source, the
// blocking page and the health probe.
package v1handler

import (
	"context"
	"errors"
	"net/http"
	"urlguard/internal/protocol"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/serrors"

	"github.com/go-faster/jx"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Decider runs navigation attempts.
type Decider interface {
	Decide(ctx context.Context, nav domain.Navigation) domain.Decision
}

// Pinger checks a dependency the guard needs to be ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups the collaborators of the handlers.
type Deps struct {
	Dispatcher *protocol.Dispatcher
	Decider    Decider
	// Database is pinged by the health probe when set.
	Database Pinger
}

// Handler serves the v1 API.
type Handler struct {
	Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// Register mounts the v1 routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messages", h.PostMessage)
	mux.HandleFunc("POST /v1/navigation", h.PostNavigation)
	mux.HandleFunc("GET /blocked", h.GetBlockedPage)
	mux.HandleFunc("GET /healthz", h.GetHealth)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string
	Message string
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

type kindStatus struct {
	status  int
	message string
}

var kindStatuses = map[serrors.Kind]kindStatus{ //nolint: gochecknoglobals
	serrors.ErrNotFound:    {http.StatusNotFound, "resource not found"},
	serrors.ErrBadRequest:  {http.StatusBadRequest, "bad request"},
	serrors.ErrConflict:    {http.StatusConflict, "conflict"},
	serrors.ErrTimeout:     {http.StatusGatewayTimeout, "request timed out"},
	serrors.ErrUnavailable: {http.StatusServiceUnavailable, "service unavailable"},
	serrors.ErrRateLimited: {http.StatusTooManyRequests, "too many requests"},
	serrors.ErrUpstream:    {http.StatusBadGateway, "upstream error"},
}

// NewError maps err to an HTTP status and a client-safe message. Messages of
// semantic errors are passed through; causes and internal errors are not.
func (h *Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	ks, ok := kindStatuses[kind]
	if !ok {
		logger.Error(ctx, err.Error())

		return &ErrorStatusCode{
			StatusCode: http.StatusInternalServerError,
			Response: ErrorResponse{
				Code:    serrors.ErrInternal.Error(),
				Message: "internal error",
			},
		}
	}

	msg := ks.message
	var se *serrors.Error
	if errors.As(err, &se) && se.Message() != "" {
		msg = se.Message()
	}
	logger.Warn(ctx, err.Error())

	return &ErrorStatusCode{
		StatusCode: ks.status,
		Response:   ErrorResponse{Code: kind.Error(), Message: msg},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(res.Response.Code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(res.Response.Message) })
	})
	writeJSON(w, res.StatusCode, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// GetHealth reports liveness, and the reachability of the database when one
// is configured.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if h.Database != nil {
		if err := h.Database.Ping(r.Context()); err != nil {
			h.writeError(w, r, serrors.Wrap(serrors.ErrUnavailable, err, "database unavailable"))

			return
		}
	}

	writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
}
