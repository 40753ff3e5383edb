package janitor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
	"urlguard/internal/janitor"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(time.Time) int {
	s.calls.Add(1)

	return 1
}

func TestRun_SweepsOnEveryTick(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	s := &countingSweeper{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx, clk, 10*time.Minute, "test", s)
		close(done)
	}()

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)

	clk.Step(10 * time.Minute)
	require.Eventually(t, func() bool { return s.calls.Load() == 1 }, time.Second, time.Millisecond)

	clk.Step(10 * time.Minute)
	require.Eventually(t, func() bool { return s.calls.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancellation")
	}
}

func TestRun_ZeroIntervalReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		janitor.Run(context.Background(), testingclock.NewFakeClock(time.Now()), 0, "noop", &countingSweeper{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval must not start a loop")
	}
}
