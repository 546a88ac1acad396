package gateway

import (
	"time"

	"github.com/meridianapp/ipcguard/internal/sectypes"
)

// Decision is the closed set of gateway outcomes.
type Decision string

const (
	// DecisionAllowed means the command may proceed with SanitizedArgs.
	DecisionAllowed Decision = "allowed"
	// DecisionDenied means the command must not execute.
	DecisionDenied Decision = "denied"
	// DecisionRequiresElevation means the command could proceed once the
	// caller acquires the listed permissions or verifies MFA.
	DecisionRequiresElevation Decision = "requires_elevation"
	// DecisionConditionallyAllowed means the command may proceed only after
	// the caller satisfies the listed conditions (confirmation prompts,
	// completed backups).
	DecisionConditionallyAllowed Decision = "conditionally_allowed"
)

// ValidationResult is the gateway's answer for one command request. It is a
// tagged union over Decision; only the fields relevant to the decision are
// populated. Reason is deliberately short and non-sensitive; full diagnostic
// detail goes to the audit trail only.
type ValidationResult struct {
	Decision Decision `json:"decision"`
	// Command is the canonical command name after alias resolution.
	Command string `json:"command,omitempty"`
	// SanitizedArgs replaces the caller's arguments on allowed outcomes.
	SanitizedArgs any `json:"sanitized_args,omitempty"`
	// RiskScore is the effective risk of the request, 0 to 100.
	RiskScore int `json:"risk_score"`
	// RequiredPermissions lists what an elevation would need.
	RequiredPermissions []string `json:"required_permissions,omitempty"`
	// Conditions lists what a conditional allow requires before execution.
	Conditions []string `json:"conditions,omitempty"`
	// Violation classifies denials and elevation requests.
	Violation sectypes.ViolationType `json:"violation_type,omitempty"`
	// Reason is a short, non-sensitive explanation for refusals.
	Reason string `json:"reason,omitempty"`
	// RetryAfter is set on rate-limited denials.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Allowed reports whether the command may execute immediately.
func (r ValidationResult) Allowed() bool {
	return r.Decision == DecisionAllowed
}
