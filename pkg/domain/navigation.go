package domain

// TabID identifies a browser tab. It is assigned by the browser host.
type TabID int

// Trigger identifies which lifecycle signal produced a navigation attempt.
type Trigger string

const (
	// TriggerPreNavigation fires before any content of a main-frame
	// navigation is loaded.
	TriggerPreNavigation Trigger = "beforeNavigate"
	// TriggerTabLoading fires when a tab starts loading, and for client-side
	// URL changes reported by the page itself.
	TriggerTabLoading Trigger = "loading"
	// TriggerTabComplete fires once the tab finished rendering.
	TriggerTabComplete Trigger = "complete"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerPreNavigation, TriggerTabLoading, TriggerTabComplete:
		return true
	default:
		return false
	}
}

// Navigation is a single attempt to visit URL in a tab.
type Navigation struct {
	TabID   TabID
	URL     string
	Trigger Trigger
}

// State is the state of a navigation attempt.
//
//	UNCHECKED -> CHECKING -> {ALLOWED, WARNED, BLOCKED}
//
// A URL held in the block registry goes straight to BLOCKED.
type State string

const (
	StateUnchecked State = "UNCHECKED"
	StateChecking  State = "CHECKING"
	StateAllowed   State = "ALLOWED"
	StateWarned    State = "WARNED"
	StateBlocked   State = "BLOCKED"
	// StateSkipped is reported for system URLs and for triggers that did not
	// need to decide anything (e.g. a loading signal for an unblocked URL).
	StateSkipped State = "SKIPPED"
)

// Terminal reports whether s ends an attempt.
func (s State) Terminal() bool {
	switch s {
	case StateAllowed, StateWarned, StateBlocked, StateSkipped:
		return true
	default:
		return false
	}
}

// Enforcement describes how a block was applied to the tab.
type Enforcement string

const (
	EnforcementNone      Enforcement = ""
	EnforcementRedirect  Enforcement = "redirect"
	EnforcementInjection Enforcement = "injection"
)

// Decision is the outcome of one navigation attempt.
type Decision struct {
	Navigation Navigation
	State      State
	// Result is the classification that led to the decision. It is nil for
	// registry short-circuits, system URLs and failed classifications.
	Result *ClassificationResult
	// FromRegistry is set when the block registry decided the attempt.
	FromRegistry bool
	// ClassificationFailed is set when the classifier failed and the attempt
	// was allowed by the fail-open policy.
	ClassificationFailed bool
	// Enforcement tells how a BLOCKED decision reached the tab.
	Enforcement Enforcement
	// RedirectURL is the blocking page address, set for redirect enforcement.
	RedirectURL string
}
