// Package session owns the security contexts issued to IPC callers. A
// Registry creates sessions with an initial permission set, tracks
// authentication and MFA state, suspends sessions after repeated failed
// attempts, and expires them on TTL or idle timeout. Callers receive
// snapshots; the registry keeps exclusive ownership of the live records.
package session

import (
	"time"
)

// SecurityLevel orders sessions by the sensitivity of what they may reach.
type SecurityLevel int

const (
	// LevelStandard is the default for ordinary UI sessions.
	LevelStandard SecurityLevel = iota
	// LevelElevated sessions carry administrative permissions and require
	// MFA verification before they validate.
	LevelElevated
	// LevelPrivileged sessions may reach restricted operations. MFA is
	// required here as well.
	LevelPrivileged
)

// String returns a string representation of the security level.
func (l SecurityLevel) String() string {
	switch l {
	case LevelStandard:
		return "standard"
	case LevelElevated:
		return "elevated"
	case LevelPrivileged:
		return "privileged"
	default:
		return "unknown"
	}
}

// Status is the closed set of validation outcomes for a session lookup.
type Status int

const (
	// StatusValid means the session exists, is current, and satisfied all
	// authentication requirements.
	StatusValid Status = iota
	// StatusRequiresMFA means the session exists but multi-factor
	// verification is still pending.
	StatusRequiresMFA
	// StatusSuspended means the session is locked out after repeated
	// failed attempts.
	StatusSuspended
	// StatusExpired means the session is unknown, past its TTL, idle too
	// long, or failed its source binding.
	StatusExpired
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusRequiresMFA:
		return "requires_mfa"
	case StatusSuspended:
		return "suspended"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// session is the registry-owned record. All mutation happens under the
// registry lock.
type session struct {
	id            string
	userID        string
	windowLabel   string
	sourceIP      string
	userAgent     string
	level         SecurityLevel
	permissions   map[string]struct{}
	mfaEnabled    bool
	mfaVerified   bool
	failedCount   int
	suspendedTill time.Time
	createdAt     time.Time
	lastActivity  time.Time
}

// Snapshot is the caller-visible copy of a session. It is detached from the
// registry; mutating it has no effect on the live record.
type Snapshot struct {
	ID           string
	UserID       string
	WindowLabel  string
	SourceIP     string
	UserAgent    string
	Level        SecurityLevel
	Permissions  []string
	MFAEnabled   bool
	MFAVerified  bool
	CreatedAt    time.Time
	LastActivity time.Time
}

func (s *session) snapshot() Snapshot {
	perms := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		perms = append(perms, p)
	}
	return Snapshot{
		ID:           s.id,
		UserID:       s.userID,
		WindowLabel:  s.windowLabel,
		SourceIP:     s.sourceIP,
		UserAgent:    s.userAgent,
		Level:        s.level,
		Permissions:  perms,
		MFAEnabled:   s.mfaEnabled,
		MFAVerified:  s.mfaVerified,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}
