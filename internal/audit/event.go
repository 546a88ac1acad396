// Package audit records security events emitted by the authorization
// pipeline. Events are append-only: once stamped they are never mutated.
// A Logger buffers routine events and flushes them in batches to a Writer,
// while high-severity events bypass the buffer and are persisted before the
// caller's decision returns. Rolling statistics and an alert hook give
// operators a live view of high-risk activity.
package audit

import (
	"fmt"
	"time"
)

// EventType classifies the origin of a security event.
type EventType string

const (
	// EventLogin covers session creation, MFA, and logout activity.
	EventLogin EventType = "login"
	// EventLogout records explicit session termination.
	EventLogout EventType = "logout"
	// EventCommand records the outcome of an IPC command authorization.
	EventCommand EventType = "command"
	// EventRateLimit records throttling and penalty decisions.
	EventRateLimit EventType = "rate_limit"
	// EventInputValidation records sanitizer rejections and rewrites.
	EventInputValidation EventType = "input_validation"
	// EventPermission records permission and elevation failures.
	EventPermission EventType = "permission"
	// EventSystem covers internal gateway errors and lifecycle events.
	EventSystem EventType = "system"
)

// Severity orders events by operational urgency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
	SeverityEmergency
)

// String returns a string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a configuration string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info", "":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "critical":
		return SeverityCritical, nil
	case "emergency":
		return SeverityEmergency, nil
	default:
		return SeverityInfo, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// Outcome is the closed set of event results.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeSanitized Outcome = "sanitized"
	OutcomeWarning   Outcome = "warning"
)

// Event is one immutable security event. ID and Timestamp are stamped by
// the Logger; callers leave them zero.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"event_type"`
	Severity  Severity       `json:"severity"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Command   string         `json:"command,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	RiskScore int            `json:"risk_score"`
	Details   map[string]any `json:"details,omitempty"`
}
