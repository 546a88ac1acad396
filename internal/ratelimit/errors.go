package ratelimit

import "errors"

// Error definitions
var (
	// ErrUnknownStrategy is returned when a configuration string does not
	// name a known rate limiting strategy.
	ErrUnknownStrategy = errors.New("unknown rate limit strategy")
)
