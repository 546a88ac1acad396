package sanitize

import "errors"

// Error definitions
var (
	// ErrInvalidPattern is returned when a built-in or configured pattern
	// cannot be compiled at construction time.
	ErrInvalidPattern = errors.New("invalid sanitizer pattern")
)
