package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"urlguard/pkg/domain"
	"urlguard/pkg/riskapi/backend"
	"urlguard/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, fn rtFunc) *backend.Client {
	t.Helper()

	c, err := backend.New(&http.Client{Transport: fn}, "http://localhost:3000/api/")
	require.NoError(t, err)

	return c
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := backend.New(nil, "not a url")
	require.Error(t, err)

	_, err = backend.New(nil, "/relative/api")
	require.Error(t, err)
}

func TestClient_Origin(t *testing.T) {
	c := newTestClient(t, nil)
	require.Equal(t, "http://localhost:3000", c.Origin())
}

func TestClient_CheckURL_Success(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "localhost:3000", r.URL.Host)
		require.Equal(t, "/api/check-url", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://example.com/", body["url"])
		require.Equal(t, "advanced", body["analysisLevel"])

		return respond(http.StatusOK, `{
			"riskLevel":"high","riskScore":92,"analysisLevel":"advanced","scanDuration":0.4,
			"basicChecks":[{"type":"phishing_pattern","severity":"high","message":"looks like a login clone"}]
		}`), nil
	})

	res, err := c.CheckURL(context.Background(), "https://example.com/", domain.AnalysisLevelAdvanced)
	require.NoError(t, err)
	require.Equal(t, domain.RiskLevelHigh, res.RiskLevel)
	require.Equal(t, 92, res.RiskScore)
	require.Len(t, res.BasicChecks, 1)
	require.Equal(t, "phishing_pattern", res.BasicChecks[0].Type)
	require.NotNil(t, res.ScanDuration)
	require.InDelta(t, 0.4, *res.ScanDuration, 1e-9)
}

func TestClient_CheckURL_FillsDefaults(t *testing.T) {
	c := newTestClient(t, func(_ *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"riskLevel":"low","riskScore":3}`), nil
	})

	res, err := c.CheckURL(context.Background(), "https://example.com/", domain.AnalysisLevelBasic)
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisLevelBasic, res.AnalysisLevel)
	require.NotNil(t, res.BasicChecks)
	require.Empty(t, res.BasicChecks)
	require.Nil(t, res.ScanDuration)
}

func TestClient_CheckURL_Errors(t *testing.T) {
	tests := []struct {
		name string
		rt   rtFunc
		kind serrors.Kind
	}{
		{
			name: "non-2xx",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusInternalServerError, `{"error":"boom"}`), nil
			},
			kind: serrors.ErrUpstream,
		},
		{
			name: "rejected",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusUnprocessableEntity, `{"error":"invalid url"}`), nil
			},
			kind: serrors.ErrBadRequest,
		},
		{
			name: "rate limited",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusTooManyRequests, ``), nil
			},
			kind: serrors.ErrRateLimited,
		},
		{
			name: "malformed body",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `<html>`), nil
			},
			kind: serrors.ErrUpstream,
		},
		{
			name: "unknown risk level",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `{"riskLevel":"critical","riskScore":50}`), nil
			},
			kind: serrors.ErrUpstream,
		},
		{
			name: "score out of range",
			rt: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `{"riskLevel":"high","riskScore":140}`), nil
			},
			kind: serrors.ErrUpstream,
		},
		{
			name: "transport failure",
			rt: func(_ *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			kind: serrors.ErrUnavailable,
		},
		{
			name: "deadline",
			rt: func(_ *http.Request) (*http.Response, error) {
				return nil, context.DeadlineExceeded
			},
			kind: serrors.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.rt)
			res, err := c.CheckURL(context.Background(), "https://example.com/", domain.AnalysisLevelBasic)
			require.Error(t, err)
			require.Nil(t, res)
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestClient_CreateIncident(t *testing.T) {
	incident := domain.Incident{
		URL:          "http://evil-bank-login.tk/",
		RiskLevel:    domain.RiskLevelHigh,
		RiskScore:    92,
		Blocked:      true,
		UserAction:   domain.UserActionBlocked,
		IncidentType: domain.IncidentSuspiciousDomain,
		Threats:      []domain.Threat{{Type: "phishing_pattern", Severity: "high", Description: "clone"}},
	}

	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/api/incidents/create", r.URL.Path)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, "http://evil-bank-login.tk/", got["url"])
		require.Equal(t, "suspicious_domain", got["incidentType"])
		require.Equal(t, "blocked", got["userAction"])
		require.Equal(t, true, got["blocked"])

		return respond(http.StatusCreated, `{"id":"ignored"}`), nil
	})
	require.NoError(t, c.CreateIncident(context.Background(), incident))

	failing := newTestClient(t, func(_ *http.Request) (*http.Response, error) {
		return respond(http.StatusBadGateway, ``), nil
	})
	err := failing.CreateIncident(context.Background(), incident)
	require.ErrorIs(t, err, serrors.ErrUpstream)
}
