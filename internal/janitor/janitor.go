// Package janitor runs periodic eviction for in-memory stores.
package janitor

import (
	"context"
	"time"
	"urlguard/pkg/logger"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Sweeper evicts whatever is stale at now and reports how many items it removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Run calls s.Sweep every interval until ctx is done. It blocks.
func Run(ctx context.Context, clk clock.WithTicker, interval time.Duration, name string, s Sweeper) {
	if interval <= 0 {
		return
	}

	ctx = logger.WithFields(ctx, zap.String("sweeper", name))
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			if removed := s.Sweep(now); removed > 0 {
				logger.Debug(ctx, "evicted expired entries", zap.Int("removed", removed))
			}
		}
	}
}
