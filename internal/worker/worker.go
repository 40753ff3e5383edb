// Package worker runs the background job consumers of the guard.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/riskapi"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// DefaultMaxWorkers is the concurrency of the default queue.
const DefaultMaxWorkers = 10

// Options configures the job runtime.
type Options struct {
	// MaxWorkers is the concurrency of the default queue.
	MaxWorkers int
	// Timeout bounds one incident delivery.
	Timeout time.Duration
	Metrics *metrics.Guard
}

// Start registers the workers and starts a River client consuming jobs from
// dbPool. The caller stops it with Stop.
func Start(ctx context.Context, dbPool *pgxpool.Pool, client riskapi.Client, opts Options) (*river.Client[pgx.Tx], error) {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewIncidentWorker(client, opts.Timeout, opts.Metrics))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.MaxWorkers},
		},
		Workers: workers,
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
