// Package blocklist holds the URLs confirmed dangerous during the current
// process lifetime. Membership is the first gate of every navigation
// decision: a blocked URL is rejected without any network round-trip, even
// after its cached classification expired.
//
// Blocks never expire unless a TTL is configured, and are removed only by
// an explicit Unblock or a process restart. When a storage.BlockStorage is
// attached, blocks are written through to it and reloaded by Load; storage
// failures are logged and never change the in-memory answer.
package blocklist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
	"urlguard/pkg/logger"
	"urlguard/pkg/storage"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Options configure a Registry.
type Options struct {
	// TTL expires blocks after the given duration. Zero keeps them for the
	// process lifetime.
	TTL time.Duration
	// Store, when set, receives every mutation.
	Store storage.BlockStorage
	// Clock defaults to the wall clock.
	Clock clock.PassiveClock
}

// Registry is a concurrency-safe set of blocked URLs.
type Registry struct {
	mu      sync.RWMutex
	blocked map[string]time.Time

	ttl   time.Duration
	store storage.BlockStorage
	clock clock.PassiveClock
}

// New creates an empty registry.
func New(opts Options) *Registry {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Registry{
		blocked: make(map[string]time.Time),
		ttl:     opts.TTL,
		store:   opts.Store,
		clock:   clk,
	}
}

func (r *Registry) expired(blockedAt, now time.Time) bool {
	return r.ttl > 0 && now.Sub(blockedAt) >= r.ttl
}

// IsBlocked reports whether url was confirmed dangerous.
func (r *Registry) IsBlocked(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	at, ok := r.blocked[url]

	return ok && !r.expired(at, r.clock.Now())
}

// MarkBlocked adds url to the registry. Marking an already blocked URL keeps
// its original block time.
func (r *Registry) MarkBlocked(ctx context.Context, url string) {
	now := r.clock.Now()

	r.mu.Lock()
	at, ok := r.blocked[url]
	if ok && !r.expired(at, now) {
		r.mu.Unlock()

		return
	}
	r.blocked[url] = now
	r.mu.Unlock()

	logger.Info(ctx, "url added to block registry", zap.String("url", url))

	if r.store != nil {
		if err := r.store.StoreBlock(ctx, storage.Block{URL: url, BlockedAt: now}); err != nil {
			logger.Warn(ctx, "could not persist block", zap.String("url", url), zap.Error(err))
		}
	}
}

// Unblock removes url and reports whether it was still blocked. An entry past
// its TTL is removed too but reported as absent.
func (r *Registry) Unblock(ctx context.Context, url string) bool {
	now := r.clock.Now()

	r.mu.Lock()
	at, ok := r.blocked[url]
	// an expired entry is already unblocked for every reader
	ok = ok && !r.expired(at, now)
	delete(r.blocked, url)
	r.mu.Unlock()

	if ok {
		logger.Info(ctx, "url removed from block registry", zap.String("url", url))
	}

	if r.store != nil {
		if err := r.store.DeleteBlock(ctx, url); err != nil {
			logger.Warn(ctx, "could not delete persisted block", zap.String("url", url), zap.Error(err))
		}
	}

	return ok
}

// List returns the blocked URLs in lexical order.
func (r *Registry) List() []string {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.blocked))
	for url, at := range r.blocked {
		if !r.expired(at, now) {
			out = append(out, url)
		}
	}
	sort.Strings(out)

	return out
}

// Sweep drops expired blocks. It is a no-op without a TTL.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for url, at := range r.blocked {
		if r.expired(at, now) {
			delete(r.blocked, url)
			removed++
		}
	}

	return removed
}

// Load merges the persisted blocks into memory. It returns the number of
// blocks loaded.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}

	blocks, err := r.store.Blocks(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load blocks: %w", err)
	}

	now := r.clock.Now()
	loaded := 0

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range blocks {
		if r.expired(b.BlockedAt, now) {
			continue
		}
		r.blocked[b.URL] = b.BlockedAt
		loaded++
	}

	return loaded, nil
}
