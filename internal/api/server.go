// Package api serves the local HTTP surface of the guard: the extension
// protocol, navigation events, the blocking page, metrics, docs and pprof.
package api

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
	"urlguard/internal/api/handler/v1handler"
	"urlguard/internal/config"
	"urlguard/pkg/controller"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

const (
	specPath = "/specs/v1.yaml"
	docsPath = "/v1/docs/"

	timeoutBody = `{"code":"TIMEOUT","message":"request timed out"}`
)

//go:embed specs/v1.yaml
var v1Spec []byte

// Options are the listener and routing settings of the API server.
// Zero durations keep the net/http defaults.
type Options struct {
	Addr string

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// RequestTimeout wraps the whole handler in http.TimeoutHandler when positive.
	RequestTimeout time.Duration
	MaxHeaderBytes int

	// MetricsPath disables the prometheus endpoint when empty.
	MetricsPath string
	// QueueUIPath is the mount point of Deps.QueueUI.
	QueueUIPath string
	// AllowedOrigins restricts CORS; empty allows every origin.
	AllowedOrigins []string
}

// NewOptions copies the http section of cfg.
func NewOptions(cfg *config.Config) Options {
	h := cfg.HTTP

	return Options{
		Addr:              h.Addr,
		ReadTimeout:       h.ReadTimeout,
		ReadHeaderTimeout: h.ReadHeaderTimeout,
		WriteTimeout:      h.WriteTimeout,
		IdleTimeout:       h.IdleTimeout,
		RequestTimeout:    h.RequestTimeout,
		MaxHeaderBytes:    h.MaxHeaderBytes,
		MetricsPath:       h.MetricsPath,
		QueueUIPath:       h.QueueUIPath,
		AllowedOrigins:    h.AllowedOrigins,
	}
}

type Deps struct {
	v1handler.Deps

	// QueueUI is the job queue dashboard; nil when incidents are not queued.
	QueueUI http.Handler
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(v1Spec)
}

// NewHandler registers every route on a fresh mux and wraps it with the
// controller middlewares. Logging is outermost so recovered panics and CORS
// preflights still get a request id.
func NewHandler(deps Deps, opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, promhttp.Handler())
	}
	mux.HandleFunc(specPath, serveSpec)
	mux.Handle(docsPath, v5emb.New("URL Guard", specPath, docsPath))
	mux.Handle(controller.PprofPrefix, controller.PprofMux())
	if deps.QueueUI != nil && opts.QueueUIPath != "" {
		mux.Handle(strings.TrimSuffix(opts.QueueUIPath, "/")+"/", deps.QueueUI)
	}
	v1handler.New(deps.Deps).Register(mux)

	var h http.Handler = mux
	h = controller.WithCORS(h, opts.AllowedOrigins...)
	h = controller.WithRecover(h)

	return controller.WithLogger(h)
}

// NewServer returns an unstarted server for NewHandler.
func NewServer(deps Deps, opts Options) *http.Server {
	h := NewHandler(deps, opts)
	if opts.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, opts.RequestTimeout, timeoutBody)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
}
