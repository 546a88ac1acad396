package whitelist

import "fmt"

// Classification is a command's fixed security tier. It controls whether
// permission checks even apply: Blocked is evaluated before any permission
// or pattern logic and can never be satisfied.
type Classification int

const (
	// ClassPublic commands need no session permissions.
	ClassPublic Classification = iota
	// ClassAuthenticated commands need an authenticated session.
	ClassAuthenticated
	// ClassPrivileged commands need specific granted permissions.
	ClassPrivileged
	// ClassAdministrative commands need administrative permissions.
	ClassAdministrative
	// ClassRestricted commands need administrative permissions plus MFA
	// and are subject to the tightest rate caps.
	ClassRestricted
	// ClassBlocked commands are never executable regardless of permissions.
	ClassBlocked
)

const (
	classPublicString         = "public"
	classAuthenticatedString  = "authenticated"
	classPrivilegedString     = "privileged"
	classAdministrativeString = "administrative"
	classRestrictedString     = "restricted"
	classBlockedString        = "blocked"
)

// String returns the configuration representation of the classification.
func (c Classification) String() string {
	switch c {
	case ClassPublic:
		return classPublicString
	case ClassAuthenticated:
		return classAuthenticatedString
	case ClassPrivileged:
		return classPrivilegedString
	case ClassAdministrative:
		return classAdministrativeString
	case ClassRestricted:
		return classRestrictedString
	case ClassBlocked:
		return classBlockedString
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler for config round-trips.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so classifications can
// be written as strings in TOML configuration.
func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification converts a configuration string to a Classification.
func ParseClassification(s string) (Classification, error) {
	switch s {
	case classPublicString:
		return ClassPublic, nil
	case classAuthenticatedString:
		return ClassAuthenticated, nil
	case classPrivilegedString:
		return ClassPrivileged, nil
	case classAdministrativeString:
		return ClassAdministrative, nil
	case classRestrictedString:
		return ClassRestricted, nil
	case classBlockedString:
		return ClassBlocked, nil
	default:
		return ClassPublic, fmt.Errorf("%w: %q", ErrUnknownClassification, s)
	}
}
