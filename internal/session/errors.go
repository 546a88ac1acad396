package session

import "errors"

// Error definitions
var (
	// ErrSessionNotFound is returned when no session exists for an ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMFANotEnabled is returned when MFA verification is attempted on a
	// session that never enabled it.
	ErrMFANotEnabled = errors.New("mfa not enabled for session")
)
