package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the registry's lifecycle thresholds. The values are
// deliberately configurable; the defaults below are operational choices, not
// protocol constants.
type Config struct {
	// TTL is the absolute lifetime of a session from creation.
	TTL time.Duration
	// IdleTimeout expires sessions with no validated activity.
	IdleTimeout time.Duration
	// SuspendThreshold is the failed-attempt count that suspends a session.
	SuspendThreshold int
	// SuspendDuration is how long a suspended session stays locked out.
	SuspendDuration time.Duration
}

// DefaultConfig returns the registry's fallback thresholds.
func DefaultConfig() Config {
	return Config{
		TTL:              30 * time.Minute,
		IdleTimeout:      15 * time.Minute,
		SuspendThreshold: 5,
		SuspendDuration:  15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.SuspendThreshold <= 0 {
		c.SuspendThreshold = def.SuspendThreshold
	}
	if c.SuspendDuration <= 0 {
		c.SuspendDuration = def.SuspendDuration
	}
	return c
}

// Stats is a point-in-time view of registry activity.
type Stats struct {
	ActiveSessions    int
	SuspendedSessions int
	TotalCreated      uint64
	TotalExpired      uint64
	TotalSuspended    uint64
}

// Registry is the in-memory session store. Safe for concurrent use.
type Registry struct {
	cfg   Config
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session

	created   uint64
	expired   uint64
	suspended uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// NewRegistry creates an empty registry with the given thresholds. Zero
// fields in cfg fall back to DefaultConfig.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	r := &Registry{
		cfg:      cfg.withDefaults(),
		clock:    time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOptions carries the optional attributes of a new session.
type CreateOptions struct {
	UserID      string
	SourceIP    string
	UserAgent   string
	Level       SecurityLevel
	Permissions []string
}

// Create issues a new session bound to a window label and returns its
// snapshot. The session ID is a fresh UUIDv4.
func (r *Registry) Create(windowLabel string, opts CreateOptions) Snapshot {
	now := r.clock()
	s := &session{
		id:           uuid.New().String(),
		userID:       opts.UserID,
		windowLabel:  windowLabel,
		sourceIP:     opts.SourceIP,
		userAgent:    opts.UserAgent,
		level:        opts.Level,
		permissions:  make(map[string]struct{}, len(opts.Permissions)),
		createdAt:    now,
		lastActivity: now,
	}
	for _, p := range opts.Permissions {
		s.permissions[p] = struct{}{}
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.created++
	r.mu.Unlock()
	return s.snapshot()
}

// Validate resolves a session ID to its current status. A sourceIP of ""
// skips source binding; a mismatching sourceIP counts as a failed attempt
// and the lookup fails. On StatusValid the session's activity clock is
// refreshed and a snapshot is returned.
func (r *Registry) Validate(sessionID, sourceIP string) (Status, Snapshot) {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return StatusExpired, Snapshot{}
	}
	if now.Before(s.suspendedTill) {
		return StatusSuspended, Snapshot{}
	}
	if r.isExpired(s, now) {
		delete(r.sessions, sessionID)
		r.expired++
		return StatusExpired, Snapshot{}
	}
	if sourceIP != "" && s.sourceIP != "" && s.sourceIP != sourceIP {
		r.recordFailure(s, now)
		return StatusExpired, Snapshot{}
	}
	if r.requiresMFA(s) {
		return StatusRequiresMFA, s.snapshot()
	}

	s.lastActivity = now
	return StatusValid, s.snapshot()
}

func (r *Registry) isExpired(s *session, now time.Time) bool {
	return now.Sub(s.createdAt) >= r.cfg.TTL || now.Sub(s.lastActivity) >= r.cfg.IdleTimeout
}

func (r *Registry) requiresMFA(s *session) bool {
	if s.mfaVerified {
		return false
	}
	return s.mfaEnabled || s.level >= LevelElevated
}

// recordFailure must be called with the registry lock held.
func (r *Registry) recordFailure(s *session, now time.Time) {
	s.failedCount++
	if s.failedCount >= r.cfg.SuspendThreshold {
		s.suspendedTill = now.Add(r.cfg.SuspendDuration)
		s.failedCount = 0
		s.mfaVerified = false
		r.suspended++
	}
}

// RecordFailedAttempt accumulates an authentication failure against a
// session. Reaching the configured threshold suspends the session.
func (r *Registry) RecordFailedAttempt(sessionID string) error {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	r.recordFailure(s, now)
	return nil
}

// SetPermissions replaces a session's permission set wholesale.
func (r *Registry) SetPermissions(sessionID string, permissions []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	next := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		next[p] = struct{}{}
	}
	s.permissions = next
	return nil
}

// EnableMFA marks the session as requiring multi-factor verification from
// the next validation onward.
func (r *Registry) EnableMFA(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.mfaEnabled = true
	s.mfaVerified = false
	return nil
}

// VerifyMFA records a successful second-factor check. The actual factor
// verification happens upstream; the registry only tracks the outcome.
func (r *Registry) VerifyMFA(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if !s.mfaEnabled && s.level < LevelElevated {
		return fmt.Errorf("%w: %s", ErrMFANotEnabled, sessionID)
	}
	s.mfaVerified = true
	s.failedCount = 0
	return nil
}

// Logout removes a session immediately. Removing an unknown ID is not an
// error.
func (r *Registry) Logout(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// CleanupExpired sweeps sessions past their TTL or idle timeout and returns
// the number removed. Suspended sessions survive until they expire too.
func (r *Registry) CleanupExpired() int {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if r.isExpired(s, now) {
			delete(r.sessions, id)
			r.expired++
			removed++
		}
	}
	return removed
}

// Statistics returns current registry counters.
func (r *Registry) Statistics() Stats {
	now := r.clock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	suspended := 0
	for _, s := range r.sessions {
		if now.Before(s.suspendedTill) {
			suspended++
		}
	}
	return Stats{
		ActiveSessions:    len(r.sessions),
		SuspendedSessions: suspended,
		TotalCreated:      r.created,
		TotalExpired:      r.expired,
		TotalSuspended:    r.suspended,
	}
}
