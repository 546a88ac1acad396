package whitelist

import "errors"

// Error definitions
var (
	// ErrUnknownClassification is returned when a configuration string
	// does not name a known classification tier.
	ErrUnknownClassification = errors.New("unknown classification")

	// ErrInvalidPattern is returned when an argument or global blocked
	// pattern in a profile cannot be compiled.
	ErrInvalidPattern = errors.New("invalid whitelist pattern")

	// ErrDuplicateProfile is returned when two profiles share a canonical
	// command name.
	ErrDuplicateProfile = errors.New("duplicate command profile")

	// ErrAliasCollision is returned when an alias shadows a registered
	// canonical command name or another alias.
	ErrAliasCollision = errors.New("alias collides with existing name")

	// ErrDanglingAlias is returned when an alias points at a command name
	// with no registered profile. Alias resolution must be total.
	ErrDanglingAlias = errors.New("alias target has no profile")

	// ErrRiskScoreRange is returned when a profile's risk score is outside
	// the 0-100 range.
	ErrRiskScoreRange = errors.New("risk score out of range")
)
