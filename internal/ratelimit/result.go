package ratelimit

import "time"

// Decision is the closed set of rate limit check outcomes.
type Decision int

const (
	// DecisionAllowed means the request is within quota.
	DecisionAllowed Decision = iota
	// DecisionLimited means the request exceeded a quota bound and should
	// be retried after RetryAfter.
	DecisionLimited
	// DecisionBlocked means the key is inside an escalated penalty window
	// and every request is refused until UnblockAfter elapses.
	DecisionBlocked
)

// String returns a string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionLimited:
		return "limited"
	case DecisionBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one rate limit check.
type Result struct {
	Decision Decision
	// Remaining is the minute-quota left after an allowed request.
	Remaining int
	// ResetAfter is when the current window fully drains.
	ResetAfter time.Duration
	// RetryAfter is the suggested wait before retrying a limited request.
	RetryAfter time.Duration
	// UnblockAfter is the remaining penalty window for a blocked key.
	UnblockAfter time.Duration
	// Reason is a short, non-sensitive explanation for refusals.
	Reason string
}
