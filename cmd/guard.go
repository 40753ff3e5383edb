package main

import (
	"context"
	"fmt"
	"net/http"
	"urlguard/internal/blocklist"
	"urlguard/internal/classifier"
	"urlguard/internal/config"
	"urlguard/internal/incident"
	"urlguard/internal/interceptor"
	"urlguard/internal/janitor"
	"urlguard/internal/protocol"
	"urlguard/internal/riskcache"
	"urlguard/pkg/browser"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/riskapi/backend"
	"urlguard/pkg/storage/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// guard groups the long-lived components of one guard process.
type guard struct {
	client      *backend.Client
	metrics     *metrics.Guard
	cache       *riskcache.Cache
	registry    *blocklist.Registry
	classifier  *classifier.Classifier
	reporter    *incident.Reporter
	interceptor *interceptor.Interceptor
	dispatcher  *protocol.Dispatcher
}

func setupMetrics() (*metrics.Guard, error) {
	mp, err := metrics.NewMeterProvider(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("could not create meter provider: %w", err)
	}
	otel.SetMeterProvider(mp)

	return metrics.NewGuard(mp)
}

func newBackend(cfg *config.Config) (*backend.Client, error) {
	client, err := backend.New(&http.Client{Timeout: cfg.Backend.Timeout}, cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not create backend client: %w", err)
	}

	return client, nil
}

func newClassifier(cfg *config.Config, client *backend.Client, cache *riskcache.Cache, m *metrics.Guard) *classifier.Classifier {
	// neither the backend nor the guard's own block page is ever classified
	prefixes := append([]string{client.Origin(), cfg.BlockPage.URL}, cfg.Backend.SystemPrefixes...)

	return classifier.New(classifier.Options{
		Client:         client,
		Cache:          cache,
		Timeout:        cfg.Backend.Timeout,
		SystemPrefixes: prefixes,
		Coalesce:       cfg.Classifier.Coalesce,
		Metrics:        m,
	})
}

// newGuard wires the guard components. strg may be nil when the database is
// disabled.
func newGuard(ctx context.Context, cfg *config.Config, strg *postgres.PgSQL, b browser.Browser) (*guard, error) {
	m, err := setupMetrics()
	if err != nil {
		return nil, err
	}

	client, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	g := &guard{
		client:  client,
		metrics: m,
		cache:   riskcache.New(cfg.Cache.TTL, clock.RealClock{}),
	}

	regOpts := blocklist.Options{TTL: cfg.Blocklist.TTL}
	if cfg.Blocklist.Persist && strg != nil {
		regOpts.Store = strg
	}
	g.registry = blocklist.New(regOpts)
	if regOpts.Store != nil {
		n, err := g.registry.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not load block registry: %w", err)
		}
		logger.Info(ctx, "block registry loaded", zap.Int("blocks", n))
	}

	g.classifier = newClassifier(cfg, client, g.cache, m)

	// reporter stays a nil interface when incidents are disabled
	var (
		icptReporter   interceptor.Reporter
		threatReporter protocol.ThreatReporter
	)
	if cfg.Incidents.Enabled {
		opts := incident.Options{
			Client:        client,
			MaxAttempts:   cfg.Incidents.MaxAttempts,
			RatePerSecond: cfg.Incidents.RatePerSecond,
			Burst:         cfg.Incidents.Burst,
			UserAgent:     cfg.Incidents.UserAgent,
			Version:       cfg.Incidents.ClientVersion,
			Metrics:       m,
		}
		if cfg.Incidents.Queue && strg != nil {
			opts.Jobs = strg
		}
		g.reporter, err = incident.NewReporter(opts)
		if err != nil {
			return nil, fmt.Errorf("could not create incident reporter: %w", err)
		}
		icptReporter, threatReporter = g.reporter, g.reporter
		logger.Info(ctx, "incident reporting enabled",
			zap.String("session_id", g.reporter.SessionID()),
			zap.Bool("queued", opts.Jobs != nil))
	}

	g.interceptor = interceptor.New(interceptor.Options{
		Browser:    b,
		Classifier: g.classifier,
		Registry:   g.registry,
		Reporter:   icptReporter,
		BlockPage:  cfg.BlockPage.URL,
		Metrics:    m,
	})
	g.dispatcher = protocol.NewDispatcher(g.interceptor, threatReporter)

	return g, nil
}

// sweep starts the eviction loops of the in-memory stores. They stop with ctx.
func (g *guard) sweep(ctx context.Context, cfg *config.Config) {
	go janitor.Run(ctx, clock.RealClock{}, cfg.Cache.SweepInterval, "risk-cache", g.cache)
	if cfg.Blocklist.TTL > 0 {
		go janitor.Run(ctx, clock.RealClock{}, cfg.Blocklist.TTL, "block-registry", g.registry)
	}
}
