package incident

import (
	"context"
	"fmt"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/riskapi"
	"urlguard/pkg/serrors"
	"urlguard/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

// Options configures a Reporter.
type Options struct {
	// Client delivers incidents directly. Required unless Jobs is set.
	Client riskapi.Client
	// Jobs, when set, enqueues incidents instead of posting them.
	Jobs storage.JobStorage
	// MaxAttempts is the retry budget of queued deliveries.
	MaxAttempts int
	// RatePerSecond caps reports; zero disables the cap.
	RatePerSecond float64
	// Burst is the burst allowed by the cap.
	Burst int
	// UserAgent and Version are reported in clientInfo.
	UserAgent string
	Version   string
	// SessionID identifies this process in clientInfo. Generated when empty.
	SessionID string
	Clock     clock.PassiveClock
	Metrics   *metrics.Guard
}

// Reporter builds and delivers incidents. It never blocks navigation:
// callers invoke it after a decision has been applied.
type Reporter struct {
	client      riskapi.Client
	jobs        storage.JobStorage
	maxAttempts int
	limiter     *rate.Limiter
	userAgent   string
	version     string
	sessionID   string
	clock       clock.PassiveClock
	metrics     *metrics.Guard
}

// NewReporter creates a Reporter.
func NewReporter(opts Options) (*Reporter, error) {
	if opts.Client == nil && opts.Jobs == nil {
		return nil, fmt.Errorf("incident reporter needs a client or a job storage")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Reporter{
		client:      opts.Client,
		jobs:        opts.Jobs,
		maxAttempts: opts.MaxAttempts,
		limiter:     limiter,
		userAgent:   opts.UserAgent,
		version:     opts.Version,
		sessionID:   opts.SessionID,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
	}, nil
}

// SessionID returns the session reported in clientInfo.
func (r *Reporter) SessionID() string { return r.sessionID }

// Build creates the incident for a classification of url observed in tabID.
func (r *Reporter) Build(url string, res domain.ClassificationResult, tabID domain.TabID) domain.Incident {
	return Build(url, res, domain.ClientInfo{
		UserAgent: r.userAgent,
		Version:   r.version,
		SessionID: r.sessionID,
		TabID:     tabID,
		Timestamp: r.clock.Now().UnixMilli(),
	})
}

// Report builds the incident for url and delivers it. Failures are logged and
// returned; they never roll anything back.
func (r *Reporter) Report(ctx context.Context, url string, res domain.ClassificationResult, tabID domain.TabID) error {
	return r.Deliver(ctx, r.Build(url, res, tabID))
}

// Deliver sends an already built incident.
func (r *Reporter) Deliver(ctx context.Context, inc domain.Incident) error {
	ctx = logger.WithFields(ctx,
		zap.String("url", inc.URL),
		zap.String("incident_type", string(inc.IncidentType)),
		zap.String("risk_level", string(inc.RiskLevel)))

	if r.limiter != nil && !r.limiter.Allow() {
		r.metrics.Incident(ctx, "dropped")
		logger.Warn(ctx, "incident dropped by rate cap")

		return serrors.With(serrors.ErrRateLimited, "incident rate cap reached")
	}

	if r.jobs != nil {
		if _, err := r.jobs.AddJob(ctx, JobArgs{Incident: inc, maxAttempts: r.maxAttempts}, nil); err != nil {
			r.metrics.Incident(ctx, "failed")
			logger.Error(ctx, "could not enqueue incident", zap.Error(err))

			return fmt.Errorf("could not enqueue incident: %w", err)
		}
		r.metrics.Incident(ctx, "queued")
		logger.Debug(ctx, "incident queued")

		return nil
	}

	if err := r.client.CreateIncident(ctx, inc); err != nil {
		r.metrics.Incident(ctx, "failed")
		logger.Error(ctx, "could not report incident", zap.Error(err))

		return fmt.Errorf("could not report incident: %w", err)
	}
	r.metrics.Incident(ctx, "sent")
	logger.Debug(ctx, "incident reported")

	return nil
}

// ReportThreat delivers an incident a user reported manually.
func (r *Reporter) ReportThreat(ctx context.Context, url string, res domain.ClassificationResult) error {
	inc := r.Build(url, res, 0)
	inc.UserAction = domain.UserActionReported

	return r.Deliver(ctx, inc)
}
