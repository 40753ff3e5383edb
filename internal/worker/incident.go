package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
	"urlguard/internal/incident"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/riskapi"
	"urlguard/pkg/serrors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// DefaultRateLimitSnooze is how long a delivery waits after the backend
// answered 429.
const DefaultRateLimitSnooze = 30 * time.Second

// IncidentWorker is a River worker that posts queued incidents to the risk
// backend. Failed deliveries are retried by River up to the job's
// MaxAttempts; rate-limited deliveries are snoozed without consuming an
// attempt and rejected ones are cancelled.
type IncidentWorker struct {
	river.WorkerDefaults[incident.JobArgs]

	// client posts the incident.
	client riskapi.Client
	// timeout bounds one delivery.
	timeout time.Duration
	// snooze is the delay applied when the backend rate limits us.
	snooze  time.Duration
	metrics *metrics.Guard
}

// NewIncidentWorker constructs an IncidentWorker.
func NewIncidentWorker(client riskapi.Client, timeout time.Duration, m *metrics.Guard) *IncidentWorker {
	return &IncidentWorker{
		client:  client,
		timeout: timeout,
		snooze:  DefaultRateLimitSnooze,
		metrics: m,
	}
}

// Timeout overrides River's default job timeout with the backend timeout.
func (w *IncidentWorker) Timeout(*river.Job[incident.JobArgs]) time.Duration {
	if w.timeout <= 0 {
		return 0
	}

	return w.timeout
}

// Work delivers one incident.
func (w *IncidentWorker) Work(ctx context.Context, job *river.Job[incident.JobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.String("url", job.Args.Incident.URL))

	if err := w.client.CreateIncident(ctx, job.Args.Incident); err != nil {
		if errors.Is(err, serrors.ErrRateLimited) {
			logger.Warn(ctx, "incident delivery rate limited", zap.Duration("snooze", w.snooze))

			return river.JobSnooze(w.snooze) //nolint: wrapcheck
		}

		w.metrics.Incident(ctx, "failed")
		if !serrors.Transient(err) {
			logger.Error(ctx, "incident rejected, not retrying", zap.Error(err))

			return river.JobCancel(fmt.Errorf("incident rejected: %w", err)) //nolint: wrapcheck
		}
		logger.Error(ctx, "error in delivering incident", zap.Error(err))

		return fmt.Errorf("could not deliver incident: %w", err)
	}

	w.metrics.Incident(ctx, "sent")
	logger.Info(ctx, "incident delivered")

	return nil
}
