// Package metrics holds the guard's OpenTelemetry instruments and the
// Prometheus-backed meter provider they are exported through.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const meterName = "urlguard"

// NewMeterProvider returns a meter provider whose instruments are exported
// into the given Prometheus registerer.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// Guard groups the instruments recorded by the interception pipeline.
// A nil *Guard is valid and records nothing.
type Guard struct {
	decisions       metric.Int64Counter
	classifications metric.Int64Counter
	classifyLatency metric.Float64Histogram
	incidents       metric.Int64Counter
}

// NewGuard creates the pipeline instruments on mp. A nil mp yields no-op instruments.
func NewGuard(mp metric.MeterProvider) (*Guard, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	decisions, err := meter.Int64Counter("urlguard.decisions",
		metric.WithDescription("Navigation decisions by trigger and state"))
	if err != nil {
		return nil, fmt.Errorf("could not create decisions counter: %w", err)
	}
	classifications, err := meter.Int64Counter("urlguard.classifications",
		metric.WithDescription("Classifier calls by outcome"))
	if err != nil {
		return nil, fmt.Errorf("could not create classifications counter: %w", err)
	}
	latency, err := meter.Float64Histogram("urlguard.classification.duration",
		metric.WithDescription("Remote classification latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create classification histogram: %w", err)
	}
	incidents, err := meter.Int64Counter("urlguard.incidents",
		metric.WithDescription("Incident deliveries by result"))
	if err != nil {
		return nil, fmt.Errorf("could not create incidents counter: %w", err)
	}

	return &Guard{
		decisions:       decisions,
		classifications: classifications,
		classifyLatency: latency,
		incidents:       incidents,
	}, nil
}

// Decision records one terminal navigation decision.
func (g *Guard) Decision(ctx context.Context, trigger, state string) {
	if g == nil {
		return
	}
	g.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("state", state),
	))
}

// Classification records one classifier call and, for remote calls, its latency.
func (g *Guard) Classification(ctx context.Context, outcome string, remote bool, took time.Duration) {
	if g == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	g.classifications.Add(ctx, 1, attrs)
	if remote {
		g.classifyLatency.Record(ctx, took.Seconds(), attrs)
	}
}

// Incident records one incident delivery attempt.
func (g *Guard) Incident(ctx context.Context, result string) {
	if g == nil {
		return
	}
	g.incidents.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
