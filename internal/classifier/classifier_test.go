package classifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"urlguard/internal/classifier"
	"urlguard/internal/riskcache"
	"urlguard/pkg/domain"
	mockriskapi "urlguard/pkg/riskapi/mock"
	"urlguard/pkg/serrors"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"
)

type fixture struct {
	client *mockriskapi.MockClient
	cache  *riskcache.Cache
	clock  *testingclock.FakeClock
	c      *classifier.Classifier
}

func newFixture(t *testing.T, mutate func(*classifier.Options)) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	clk := testingclock.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	f := &fixture{
		client: mockriskapi.NewMockClient(ctrl),
		cache:  riskcache.New(5*time.Minute, clk),
		clock:  clk,
	}
	opts := classifier.Options{
		Client:         f.client,
		Cache:          f.cache,
		SystemPrefixes: []string{"http://localhost:3000"},
		Clock:          clk,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.c = classifier.New(opts)

	return f
}

func TestClassifier_SystemURLs(t *testing.T) {
	f := newFixture(t, nil)
	// Any call to the client would fail the test.

	urls := []string{
		"chrome://extensions",
		"about:blank",
		"data:text/html,hello",
		"javascript:void(0)",
		"file:///etc/hosts",
		"http://localhost:3000/api/check-url",
	}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			require.True(t, f.c.IsSystem(u))
			for _, priority := range []bool{true, false} {
				out := f.c.Classify(context.Background(), u, priority)
				require.False(t, out.Failed())
				require.True(t, out.System)
				require.Equal(t, domain.RiskLevelLow, out.Result.RiskLevel)
			}
		})
	}
	require.Zero(t, f.cache.Len())
	require.False(t, f.c.IsSystem("https://example.com/"))
}

func TestClassifier_CachedLowRiskReused(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	url := "https://example.com/"

	f.client.EXPECT().
		CheckURL(gomock.Any(), url, domain.AnalysisLevelBasic).
		Return(&domain.ClassificationResult{RiskLevel: domain.RiskLevelLow, RiskScore: 5}, nil).
		Times(2)

	first := f.c.Classify(ctx, url, false)
	require.False(t, first.Failed())
	require.False(t, first.FromCache)

	f.clock.Step(time.Minute)
	second := f.c.Classify(ctx, url, false)
	require.True(t, second.FromCache)
	require.Equal(t, first.Result, second.Result)

	f.clock.Step(5 * time.Minute)
	third := f.c.Classify(ctx, url, false)
	require.False(t, third.FromCache)
	require.Equal(t, 5, third.Result.RiskScore)
}

func TestClassifier_PriorityBypassesCache(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	url := "https://example.com/"

	f.cache.Put(url, domain.ClassificationResult{RiskLevel: domain.RiskLevelLow, RiskScore: 1})
	f.client.EXPECT().
		CheckURL(gomock.Any(), url, domain.AnalysisLevelAdvanced).
		Return(&domain.ClassificationResult{RiskLevel: domain.RiskLevelMedium, RiskScore: 40}, nil).
		Times(2)

	for range 2 {
		out := f.c.Classify(ctx, url, true)
		require.False(t, out.FromCache)
		require.Equal(t, domain.RiskLevelMedium, out.Result.RiskLevel)
	}

	// The priority result replaced the cached entry.
	cached, ok := f.c.Cached(url)
	require.True(t, ok)
	require.Equal(t, 40, cached.RiskScore)
}

func TestClassifier_FailureIsNotCached(t *testing.T) {
	f := newFixture(t, nil)
	url := "https://unknown-site.example/"

	f.client.EXPECT().
		CheckURL(gomock.Any(), url, gomock.Any()).
		Return(nil, serrors.Wrap(serrors.ErrUnavailable, errors.New("connection refused"), "dial"))

	out := f.c.Classify(context.Background(), url, true)
	require.True(t, out.Failed())
	require.Nil(t, out.Result)
	require.ErrorIs(t, out.Err, serrors.ErrUnavailable)

	_, ok := f.cache.Get(url)
	require.False(t, ok)
}

func TestClassifier_Timeout(t *testing.T) {
	f := newFixture(t, func(o *classifier.Options) { o.Timeout = 20 * time.Millisecond })
	url := "https://slow.example/"

	f.client.EXPECT().
		CheckURL(gomock.Any(), url, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ domain.AnalysisLevel) (*domain.ClassificationResult, error) {
			<-ctx.Done()

			return nil, ctx.Err()
		})

	out := f.c.Classify(context.Background(), url, false)
	require.True(t, out.Failed())
	require.ErrorIs(t, out.Err, serrors.ErrTimeout)
	require.Zero(t, f.cache.Len())
}

func TestClassifier_NilResultIsFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.client.EXPECT().CheckURL(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	out := f.c.Classify(context.Background(), "https://example.org/", true)
	require.True(t, out.Failed())
	require.ErrorIs(t, out.Err, serrors.ErrUpstream)
}

func TestClassifier_Coalesce(t *testing.T) {
	f := newFixture(t, func(o *classifier.Options) { o.Coalesce = true })
	url := "https://popular.example/"

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	f.client.EXPECT().
		CheckURL(gomock.Any(), url, domain.AnalysisLevelAdvanced).
		DoAndReturn(func(context.Context, string, domain.AnalysisLevel) (*domain.ClassificationResult, error) {
			entered <- struct{}{}
			<-release

			return &domain.ClassificationResult{RiskLevel: domain.RiskLevelHigh, RiskScore: 90}, nil
		}).
		Times(1)

	const callers = 5
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([]classifier.Outcome, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = f.c.Classify(context.Background(), url, true)
	}()
	<-entered

	started.Add(callers - 1)
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i] = f.c.Classify(context.Background(), url, true)
		}(i)
	}
	started.Wait()
	// Give the late callers a moment to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, out := range results {
		require.False(t, out.Failed())
		require.True(t, out.Result.IsHigh())
	}
}
