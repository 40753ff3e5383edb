// Package classifier wraps the remote risk backend with the guard's policy:
// system URLs are never sent upstream, non-priority calls are served from
// the risk cache while fresh, and every failure is turned into an explicit
// failed outcome instead of an error escaping to the caller.
package classifier

import (
	"context"
	"errors"
	"strings"
	"time"
	"urlguard/internal/riskcache"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/riskapi"
	"urlguard/pkg/serrors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// DefaultTimeout bounds a single remote classification.
const DefaultTimeout = 10 * time.Second

// DefaultSystemPrefixes are browser-internal schemes that are never classified.
var DefaultSystemPrefixes = []string{ //nolint: gochecknoglobals
	"chrome://",
	"about:",
	"data:",
	"javascript:",
	"file://",
}

// Outcome is the result of one Classify call. Exactly one of Result and Err
// is set.
type Outcome struct {
	Result *domain.ClassificationResult
	// Err is the reason a classification failed. Callers must fail open.
	Err error
	// FromCache is set when a fresh cache entry answered the call.
	FromCache bool
	// System is set when the URL matched the system allow-list.
	System bool
}

// Failed reports whether the classification failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Options configures a Classifier.
type Options struct {
	// Client is the remote backend.
	Client riskapi.Client
	// Cache stores successful classifications.
	Cache *riskcache.Cache
	// Timeout bounds each remote call. Zero means DefaultTimeout.
	Timeout time.Duration
	// SystemPrefixes are matched in addition to DefaultSystemPrefixes. The
	// backend origin belongs here.
	SystemPrefixes []string
	// Coalesce shares one in-flight remote call between concurrent callers
	// asking for the same URL at the same analysis level.
	Coalesce bool
	// Metrics records calls. May be nil.
	Metrics *metrics.Guard
	// Clock measures latency. Defaults to the real clock.
	Clock clock.PassiveClock
}

// Classifier is safe for concurrent use.
type Classifier struct {
	client   riskapi.Client
	cache    *riskcache.Cache
	timeout  time.Duration
	prefixes []string
	coalesce bool
	group    singleflight.Group
	metrics  *metrics.Guard
	clock    clock.PassiveClock
	tracer   trace.Tracer
}

// New creates a Classifier.
func New(opts Options) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	prefixes := make([]string, 0, len(DefaultSystemPrefixes)+len(opts.SystemPrefixes))
	prefixes = append(prefixes, DefaultSystemPrefixes...)
	for _, p := range opts.SystemPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	return &Classifier{
		client:   opts.Client,
		cache:    opts.Cache,
		timeout:  opts.Timeout,
		prefixes: prefixes,
		coalesce: opts.Coalesce,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		tracer:   otel.Tracer("urlguard/classifier"),
	}
}

// IsSystem reports whether url matches the system allow-list.
func (c *Classifier) IsSystem(url string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}

	return false
}

// Cached returns the cached result for url if it is still fresh. It never
// reaches the network.
func (c *Classifier) Cached(url string) (*domain.ClassificationResult, bool) {
	return c.cache.Fresh(url)
}

// Classify returns the risk of url. Priority calls request advanced analysis
// and always reach the backend; other calls are answered from a fresh cache
// entry when one exists. Only successful remote results are cached.
func (c *Classifier) Classify(ctx context.Context, url string, priority bool) Outcome {
	if c.IsSystem(url) {
		c.metrics.Classification(ctx, "system", false, 0)

		return Outcome{Result: domain.SafeResult(), System: true}
	}

	if !priority {
		if res, ok := c.cache.Fresh(url); ok {
			c.metrics.Classification(ctx, "cache", false, 0)

			return Outcome{Result: res, FromCache: true}
		}
	}

	level := domain.AnalysisLevelFor(priority)
	ctx, span := c.tracer.Start(ctx, "classifier.Classify", trace.WithAttributes(
		attribute.String("url", url),
		attribute.String("analysis_level", string(level)),
	))
	defer span.End()

	start := c.clock.Now()
	res, err := c.fetch(ctx, url, level)
	took := c.clock.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		c.metrics.Classification(ctx, "failed", true, took)
		logger.Warn(ctx, "classification failed, allowing",
			zap.String("url", url),
			zap.Bool("priority", priority),
			zap.Duration("took", took),
			zap.Error(err))

		return Outcome{Err: err}
	}

	c.cache.Put(url, *res)
	c.metrics.Classification(ctx, string(res.RiskLevel), true, took)
	logger.Debug(ctx, "url classified",
		zap.String("url", url),
		zap.String("risk_level", string(res.RiskLevel)),
		zap.Int("risk_score", res.RiskScore),
		zap.Duration("took", took))

	return Outcome{Result: res}
}

func (c *Classifier) fetch(ctx context.Context, url string, level domain.AnalysisLevel) (*domain.ClassificationResult, error) {
	if !c.coalesce {
		return c.call(ctx, url, level)
	}

	v, err, _ := c.group.Do(string(level)+"|"+url, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		return c.call(context.WithoutCancel(ctx), url, level)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*domain.ClassificationResult) //nolint: forcetypeassert

	return &res, nil
}

func (c *Classifier) call(ctx context.Context, url string, level domain.AnalysisLevel) (*domain.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.CheckURL(ctx, url, level)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && serrors.KindOf(err) == nil {
			return nil, serrors.Wrap(serrors.ErrTimeout, err, "classification timed out")
		}

		return nil, err
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrUpstream, "empty classification")
	}

	return res, nil
}
