package incident

import (
	"urlguard/pkg/domain"

	"github.com/riverqueue/river"
)

// DefaultMaxAttempts is the retry budget of a queued delivery.
const DefaultMaxAttempts = 5

// JobArgs carries one incident through the job queue.
type JobArgs struct {
	Incident domain.Incident `json:"incident"`

	maxAttempts int
}

// Kind returns the River job kind used to register and dispatch the delivery worker.
func (args JobArgs) Kind() string { return "DeliverIncidentJob" }

// InsertOpts limits retries. Incidents are never deduplicated; every
// classification produces its own record.
func (args JobArgs) InsertOpts() river.InsertOpts {
	attempts := args.maxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	return river.InsertOpts{MaxAttempts: attempts}
}
