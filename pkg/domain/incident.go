package domain

// IncidentType is the coarse category reported to the backend.
type IncidentType string

const (
	IncidentPhishing         IncidentType = "phishing"
	IncidentMalware          IncidentType = "malware"
	IncidentScam             IncidentType = "scam"
	IncidentSuspiciousIP     IncidentType = "suspicious_ip"
	IncidentSuspiciousDomain IncidentType = "suspicious_domain"
	IncidentRedirect         IncidentType = "suspicious_redirect"
	IncidentInsecure         IncidentType = "insecure_connection"
	IncidentOther            IncidentType = "other"
)

// UserAction records what happened to the user's navigation.
type UserAction string

const (
	UserActionBlocked  UserAction = "blocked"
	UserActionWarned   UserAction = "warned"
	UserActionAllowed  UserAction = "allowed"
	UserActionReported UserAction = "reported"
)

// Threat is a user-facing rendering of one BasicCheck.
type Threat struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// ClientInfo describes the reporting client.
type ClientInfo struct {
	UserAgent string `json:"userAgent"`
	Version   string `json:"extensionVersion"`
	SessionID string `json:"sessionId"`
	TabID     TabID  `json:"tabId"`
	Timestamp int64  `json:"timestamp"`
}

// AnalysisDetails carries the raw evidence alongside an incident.
type AnalysisDetails struct {
	AnalysisLevel AnalysisLevel `json:"analysisLevel"`
	BasicChecks   []BasicCheck  `json:"basicChecks"`
	ScanDuration  *float64      `json:"scanDuration,omitempty"`
}

// Incident is sent downstream after a classification. It is never retained
// by the guard itself.
type Incident struct {
	URL             string          `json:"url"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	RiskScore       int             `json:"riskScore"`
	Blocked         bool            `json:"blocked"`
	UserAction      UserAction      `json:"userAction"`
	IncidentType    IncidentType    `json:"incidentType"`
	Threats         []Threat        `json:"threats"`
	AnalysisDetails AnalysisDetails `json:"analysisDetails"`
	ClientInfo      ClientInfo      `json:"clientInfo"`
}
