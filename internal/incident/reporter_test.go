package incident_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"urlguard/internal/incident"
	"urlguard/pkg/domain"
	mockriskapi "urlguard/pkg/riskapi/mock"
	"urlguard/pkg/serrors"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"
)

// jobRecorder is a storage.JobStorage that keeps inserted jobs in memory.
type jobRecorder struct {
	mu   sync.Mutex
	args []river.JobArgs
	err  error
}

func (j *jobRecorder) AddJob(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return false, j.err
	}
	j.args = append(j.args, args)

	return true, nil
}

var highRisk = domain.ClassificationResult{ //nolint: gochecknoglobals
	RiskLevel: domain.RiskLevelHigh,
	RiskScore: 92,
	BasicChecks: []domain.BasicCheck{
		{Type: "phishing_pattern", Severity: "high", Message: "Suspicious login form"},
	},
}

func TestReporter_Direct(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockriskapi.NewMockClient(ctrl)
	clk := testingclock.NewFakePassiveClock(time.UnixMilli(1_700_000_000_000))

	r, err := incident.NewReporter(incident.Options{
		Client:    client,
		UserAgent: "urlguard-test",
		Version:   "1.2.3",
		SessionID: "session-1",
		Clock:     clk,
	})
	require.NoError(t, err)
	require.Equal(t, "session-1", r.SessionID())

	client.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc domain.Incident) error {
			require.Equal(t, "http://evil-bank-login.tk/", inc.URL)
			require.Equal(t, domain.IncidentSuspiciousDomain, inc.IncidentType)
			require.Len(t, inc.Threats, 1)
			require.Equal(t, domain.ClientInfo{
				UserAgent: "urlguard-test",
				Version:   "1.2.3",
				SessionID: "session-1",
				TabID:     3,
				Timestamp: 1_700_000_000_000,
			}, inc.ClientInfo)

			return nil
		})

	require.NoError(t, r.Report(context.Background(), "http://evil-bank-login.tk/", highRisk, 3))
}

func TestReporter_DirectFailureIsReturned(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockriskapi.NewMockClient(ctrl)
	r, err := incident.NewReporter(incident.Options{Client: client})
	require.NoError(t, err)
	require.NotEmpty(t, r.SessionID())

	client.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).
		Return(serrors.With(serrors.ErrUpstream, "502"))

	err = r.Report(context.Background(), "https://example.com/", highRisk, 1)
	require.ErrorIs(t, err, serrors.ErrUpstream)
}

func TestReporter_Queued(t *testing.T) {
	jobs := &jobRecorder{}
	r, err := incident.NewReporter(incident.Options{Jobs: jobs, MaxAttempts: 3})
	require.NoError(t, err)

	require.NoError(t, r.Report(context.Background(), "http://evil-bank-login.tk/", highRisk, 5))
	require.Len(t, jobs.args, 1)

	args, ok := jobs.args[0].(incident.JobArgs)
	require.True(t, ok)
	require.Equal(t, "DeliverIncidentJob", args.Kind())
	require.Equal(t, 3, args.InsertOpts().MaxAttempts)
	require.Equal(t, domain.TabID(5), args.Incident.ClientInfo.TabID)

	jobs.err = errors.New("db down")
	require.Error(t, r.Report(context.Background(), "http://evil-bank-login.tk/", highRisk, 5))
}

func TestReporter_RateCap(t *testing.T) {
	jobs := &jobRecorder{}
	r, err := incident.NewReporter(incident.Options{Jobs: jobs, RatePerSecond: 0.001, Burst: 2})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Report(ctx, "https://a.example/", highRisk, 1))
	require.NoError(t, r.Report(ctx, "https://b.example/", highRisk, 1))
	err = r.Report(ctx, "https://c.example/", highRisk, 1)
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Len(t, jobs.args, 2)
}

func TestJobArgs_DefaultAttempts(t *testing.T) {
	require.Equal(t, incident.DefaultMaxAttempts, incident.JobArgs{}.InsertOpts().MaxAttempts)
}

func TestNewReporter_RequiresSink(t *testing.T) {
	_, err := incident.NewReporter(incident.Options{})
	require.Error(t, err)
}

func TestReporter_ReportThreat(t *testing.T) {
	jobs := &jobRecorder{}
	r, err := incident.NewReporter(incident.Options{Jobs: jobs})
	require.NoError(t, err)

	require.NoError(t, r.ReportThreat(context.Background(), "https://scam-shop.example/", domain.ClassificationResult{
		RiskLevel: domain.RiskLevelMedium,
		RiskScore: 55,
	}))

	args, ok := jobs.args[0].(incident.JobArgs)
	require.True(t, ok)
	require.Equal(t, domain.UserActionReported, args.Incident.UserAction)
	require.Equal(t, domain.IncidentScam, args.Incident.IncidentType)
	require.False(t, args.Incident.Blocked)
}
