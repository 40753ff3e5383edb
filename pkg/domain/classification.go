package domain

import "time"

// RiskLevel is the coarse verdict returned by the remote classifier.
type RiskLevel string

const (
	// RiskLevelLow marks a URL considered safe (score <= 30 by convention).
	RiskLevelLow RiskLevel = "low"
	// RiskLevelMedium marks a suspicious URL (score 31-69 by convention).
	RiskLevelMedium RiskLevel = "medium"
	// RiskLevelHigh marks a dangerous URL (score >= 70 by convention). Only
	// this level blocks navigation.
	RiskLevelHigh RiskLevel = "high"
)

// Valid reports whether l is one of the known risk levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	default:
		return false
	}
}

// AnalysisLevel is the fidelity requested from the classifier.
type AnalysisLevel string

const (
	// AnalysisLevelBasic is used for latency-sensitive, cacheable checks.
	AnalysisLevelBasic AnalysisLevel = "basic"
	// AnalysisLevelAdvanced is used for priority (pre-navigation) checks.
	AnalysisLevelAdvanced AnalysisLevel = "advanced"
)

// AnalysisLevelFor maps a priority flag to the analysis level sent upstream.
func AnalysisLevelFor(priority bool) AnalysisLevel {
	if priority {
		return AnalysisLevelAdvanced
	}

	return AnalysisLevelBasic
}

// BasicCheck is one piece of evidence produced by the classifier.
type BasicCheck struct {
	Type     string         `json:"type"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// ClassificationResult is the classifier's verdict for a single URL.
type ClassificationResult struct {
	// RiskLevel is the coarse verdict.
	RiskLevel RiskLevel `json:"riskLevel"`
	// RiskScore is in the 0-100 range. It is expected to agree with RiskLevel
	// but the client does not enforce it.
	RiskScore int `json:"riskScore"`
	// BasicChecks is the ordered evidence list used for threats and incident typing.
	BasicChecks []BasicCheck `json:"basicChecks"`
	// AnalysisLevel echoes the requested level.
	AnalysisLevel AnalysisLevel `json:"analysisLevel,omitempty"`
	// ScanDuration is diagnostic only.
	ScanDuration *float64 `json:"scanDuration,omitempty"`
}

// IsHigh reports whether the result should block navigation.
func (r *ClassificationResult) IsHigh() bool {
	return r != nil && r.RiskLevel == RiskLevelHigh
}

// SafeResult is the implicit verdict for URLs exempt from classification.
func SafeResult() *ClassificationResult {
	return &ClassificationResult{
		RiskLevel:     RiskLevelLow,
		RiskScore:     0,
		BasicChecks:   []BasicCheck{},
		AnalysisLevel: AnalysisLevelBasic,
	}
}

// CacheEntry is a classification captured at a point in time.
type CacheEntry struct {
	Result    ClassificationResult
	Timestamp time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}
