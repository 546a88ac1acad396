// Package whitelist is the registry of command security profiles. Every
// privileged operation exposed over the IPC boundary is described by a
// Profile: its classification tier, required permissions, argument pattern
// constraints, risk score, rate cap, and MFA requirement. The registry also
// owns the permission-inheritance hierarchy, the alias table, and a set of
// global blocked patterns applied to every request as defense in depth.
package whitelist

import (
	"fmt"
	"regexp"
)

// Profile is the static security configuration for one canonical command.
type Profile struct {
	// Name is the canonical command name.
	Name string
	// Classification is the command's security tier.
	Classification Classification
	// RequiredPermissions must all be covered by the caller's expanded
	// permission set.
	RequiredPermissions []string
	// AllowedArgPatterns, when non-empty, requires the serialized
	// arguments to match at least one pattern.
	AllowedArgPatterns []string
	// BlockedArgPatterns rejects the request when any pattern matches the
	// serialized arguments.
	BlockedArgPatterns []string
	// RiskScore is the 0-100 heuristic used to scale rate limits and
	// audit severity.
	RiskScore int
	// MaxPerMinute overrides the default per-minute rate cap when > 0.
	MaxPerMinute int
	// RequiresMFA demands a verified MFA factor on the session.
	RequiresMFA bool
	// Conditions, when non-empty, turns a passing validation into
	// ConditionallyAllowed with these conditions attached.
	Conditions []string
	// Description is operator documentation, surfaced by the CLI.
	Description string
}

// compiledProfile is a Profile with its argument patterns compiled. Built
// once at registry construction; immutable afterwards.
type compiledProfile struct {
	Profile
	allowed []*regexp.Regexp
	blocked []*regexp.Regexp
}

func compileProfile(p Profile) (*compiledProfile, error) {
	if p.RiskScore < 0 || p.RiskScore > 100 {
		return nil, fmt.Errorf("%w: command %q has risk score %d", ErrRiskScoreRange, p.Name, p.RiskScore)
	}
	cp := &compiledProfile{Profile: p}
	for _, pattern := range p.AllowedArgPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: command %q allowed pattern %q: %w", ErrInvalidPattern, p.Name, pattern, err)
		}
		cp.allowed = append(cp.allowed, re)
	}
	for _, pattern := range p.BlockedArgPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: command %q blocked pattern %q: %w", ErrInvalidPattern, p.Name, pattern, err)
		}
		cp.blocked = append(cp.blocked, re)
	}
	return cp, nil
}
