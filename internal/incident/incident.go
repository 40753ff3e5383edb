// Package incident derives incident records from classification results and
// delivers them to the backend, either directly or through the job queue.
package incident

import (
	"net"
	"net/url"
	"strings"
	"unicode"
	"urlguard/pkg/domain"
)

// SuspiciousTLDs are top-level domains that mark a host as suspicious.
var SuspiciousTLDs = []string{ //nolint: gochecknoglobals
	".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".click", ".download", ".zip", ".country", ".work",
}

// keywordTypes is checked in order against the lower-cased URL and against check types.
var keywordTypes = []struct { //nolint: gochecknoglobals
	keyword string
	typ     domain.IncidentType
}{
	{"phishing", domain.IncidentPhishing},
	{"malware", domain.IncidentMalware},
	{"scam", domain.IncidentScam},
}

// checkTypes maps words of BasicCheck.Type (e.g. "phishing_pattern") to incident types.
var checkTypes = map[string]domain.IncidentType{ //nolint: gochecknoglobals
	"phishing": domain.IncidentPhishing,
	"malware":  domain.IncidentMalware,
	"scam":     domain.IncidentScam,
	"redirect": domain.IncidentRedirect,
	"ssl":      domain.IncidentInsecure,
	"https":    domain.IncidentInsecure,
	"insecure": domain.IncidentInsecure,
	"ip":       domain.IncidentSuspiciousIP,
	"domain":   domain.IncidentSuspiciousDomain,
}

// DeriveType infers the incident type of rawURL. Priority: keyword in the URL,
// literal IP host, suspicious TLD, first check whose type is recognized, other.
func DeriveType(rawURL string, checks []domain.BasicCheck) domain.IncidentType {
	lower := strings.ToLower(rawURL)
	for _, k := range keywordTypes {
		if strings.Contains(lower, k.keyword) {
			return k.typ
		}
	}

	host := hostOf(rawURL)
	if host != "" && net.ParseIP(host) != nil {
		return domain.IncidentSuspiciousIP
	}
	for _, tld := range SuspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return domain.IncidentSuspiciousDomain
		}
	}

	for _, c := range checks {
		words := strings.FieldsFunc(strings.ToLower(c.Type), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if typ, ok := checkTypes[w]; ok {
				return typ
			}
		}
	}

	return domain.IncidentOther
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// Threats renders one threat per check, in order.
func Threats(checks []domain.BasicCheck) []domain.Threat {
	threats := make([]domain.Threat, 0, len(checks))
	for _, c := range checks {
		threats = append(threats, domain.Threat{
			Type:        c.Type,
			Severity:    c.Severity,
			Description: c.Message,
		})
	}

	return threats
}

// ActionFor is the user action implied by a risk level.
func ActionFor(level domain.RiskLevel) domain.UserAction {
	switch level {
	case domain.RiskLevelHigh:
		return domain.UserActionBlocked
	case domain.RiskLevelMedium:
		return domain.UserActionWarned
	default:
		return domain.UserActionAllowed
	}
}

// Build assembles the incident for a classification of rawURL.
func Build(rawURL string, res domain.ClassificationResult, client domain.ClientInfo) domain.Incident {
	checks := res.BasicChecks
	if checks == nil {
		checks = []domain.BasicCheck{}
	}

	return domain.Incident{
		URL:          rawURL,
		RiskLevel:    res.RiskLevel,
		RiskScore:    res.RiskScore,
		Blocked:      res.IsHigh(),
		UserAction:   ActionFor(res.RiskLevel),
		IncidentType: DeriveType(rawURL, checks),
		Threats:      Threats(checks),
		AnalysisDetails: domain.AnalysisDetails{
			AnalysisLevel: res.AnalysisLevel,
			BasicChecks:   checks,
			ScanDuration:  res.ScanDuration,
		},
		ClientInfo: client,
	}
}
