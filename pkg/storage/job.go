package storage

import (
	"context"

	"github.com/riverqueue/river"
)

// JobStorage enqueues background jobs, such as queued incident deliveries.
type JobStorage interface {
	// AddJob enqueues a job. opts may be nil, in which case the InsertOpts of
	// args apply. Inside a transaction the job only becomes visible on commit.
	// It reports false when the job was skipped as a duplicate.
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
