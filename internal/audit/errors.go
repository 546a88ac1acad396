package audit

import "errors"

// Error definitions
var (
	// ErrUnknownSeverity is returned when a configuration string does not
	// name a known severity.
	ErrUnknownSeverity = errors.New("unknown severity")
	// ErrLoggerClosed is returned when an event is logged after Close.
	ErrLoggerClosed = errors.New("audit logger is closed")
)
