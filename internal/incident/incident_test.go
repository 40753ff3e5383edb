package incident_test

import (
	"testing"
	"urlguard/internal/incident"
	"urlguard/pkg/domain"

	"github.com/stretchr/testify/require"
)

func TestDeriveType(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		checks []domain.BasicCheck
		want   domain.IncidentType
	}{
		{
			name: "phishing keyword wins over tld",
			url:  "http://phishing-kit.tk/login",
			want: domain.IncidentPhishing,
		},
		{
			name: "malware keyword",
			url:  "https://example.com/malware.exe",
			want: domain.IncidentMalware,
		},
		{
			name: "scam keyword is case insensitive",
			url:  "https://Crypto-SCAM.example/",
			want: domain.IncidentScam,
		},
		{
			name:   "ipv4 host",
			url:    "http://192.168.10.4/admin",
			checks: []domain.BasicCheck{{Type: "redirect_chain"}},
			want:   domain.IncidentSuspiciousIP,
		},
		{
			name: "ipv6 host",
			url:  "http://[2001:db8::1]:8080/",
			want: domain.IncidentSuspiciousIP,
		},
		{
			name:   "suspicious tld before checks",
			url:    "http://evil-bank-login.tk/",
			checks: []domain.BasicCheck{{Type: "phishing_pattern", Severity: "high"}},
			want:   domain.IncidentSuspiciousDomain,
		},
		{
			name: "first recognized check",
			url:  "https://login.example.com/",
			checks: []domain.BasicCheck{
				{Type: "page_title"},
				{Type: "redirect_chain"},
				{Type: "phishing_pattern"},
			},
			want: domain.IncidentRedirect,
		},
		{
			name:   "ssl check",
			url:    "https://shop.example.com/",
			checks: []domain.BasicCheck{{Type: "ssl_certificate"}},
			want:   domain.IncidentInsecure,
		},
		{
			name:   "words are matched whole",
			url:    "https://shop.example.com/",
			checks: []domain.BasicCheck{{Type: "script_injection"}},
			want:   domain.IncidentOther,
		},
		{
			name: "nothing matches",
			url:  "https://example.com/",
			want: domain.IncidentOther,
		},
		{
			name: "unparsable url",
			url:  "http://%zz",
			want: domain.IncidentOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, incident.DeriveType(tt.url, tt.checks))
		})
	}
}

func TestActionFor(t *testing.T) {
	require.Equal(t, domain.UserActionBlocked, incident.ActionFor(domain.RiskLevelHigh))
	require.Equal(t, domain.UserActionWarned, incident.ActionFor(domain.RiskLevelMedium))
	require.Equal(t, domain.UserActionAllowed, incident.ActionFor(domain.RiskLevelLow))
}

func TestBuild_HighRisk(t *testing.T) {
	duration := 0.25
	res := domain.ClassificationResult{
		RiskLevel:     domain.RiskLevelHigh,
		RiskScore:     92,
		AnalysisLevel: domain.AnalysisLevelAdvanced,
		ScanDuration:  &duration,
		BasicChecks: []domain.BasicCheck{
			{Type: "phishing_pattern", Severity: "high", Message: "Suspicious login form"},
		},
	}
	client := domain.ClientInfo{UserAgent: "ua", Version: "1.0.0", SessionID: "s", TabID: 7, Timestamp: 42}

	inc := incident.Build("http://evil-bank-login.tk/", res, client)

	require.Equal(t, "http://evil-bank-login.tk/", inc.URL)
	require.True(t, inc.Blocked)
	require.Equal(t, domain.UserActionBlocked, inc.UserAction)
	require.Equal(t, domain.IncidentSuspiciousDomain, inc.IncidentType)
	require.Equal(t, []domain.Threat{
		{Type: "phishing_pattern", Severity: "high", Description: "Suspicious login form"},
	}, inc.Threats)
	require.Equal(t, domain.AnalysisLevelAdvanced, inc.AnalysisDetails.AnalysisLevel)
	require.Equal(t, res.BasicChecks, inc.AnalysisDetails.BasicChecks)
	require.Equal(t, &duration, inc.AnalysisDetails.ScanDuration)
	require.Equal(t, client, inc.ClientInfo)
}

func TestBuild_LowRiskWithoutChecks(t *testing.T) {
	inc := incident.Build("https://example.com/", domain.ClassificationResult{RiskLevel: domain.RiskLevelLow}, domain.ClientInfo{})

	require.False(t, inc.Blocked)
	require.Equal(t, domain.UserActionAllowed, inc.UserAction)
	require.NotNil(t, inc.Threats)
	require.Empty(t, inc.Threats)
	require.NotNil(t, inc.AnalysisDetails.BasicChecks)
}
