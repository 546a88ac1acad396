// Package gateway composes the sanitizer, command whitelist, rate limiter,
// session registry, and audit logger into the single authorization decision
// point for IPC commands. Every dependency is an interface so the gateway
// can be constructed with test doubles; every terminal outcome emits exactly
// one audit event; every internal fault resolves to a denial.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianapp/ipcguard/internal/audit"
	"github.com/meridianapp/ipcguard/internal/ratelimit"
	"github.com/meridianapp/ipcguard/internal/sanitize"
	"github.com/meridianapp/ipcguard/internal/sectypes"
	"github.com/meridianapp/ipcguard/internal/session"
	"github.com/meridianapp/ipcguard/internal/whitelist"
)

// InputSanitizer screens command names and argument structures.
type InputSanitizer interface {
	ValidateIPCInput(command string, args any) (any, sanitize.Result)
}

// CommandValidator decides whether a command is acceptable for a permission
// set and reports per-command risk.
type CommandValidator interface {
	Validate(command string, args any, userPermissions []string, mfaVerified bool) whitelist.Decision
	Resolve(name string) (string, bool)
	RiskOf(name string) int
}

// RateLimiter throttles per (session, endpoint) keys.
type RateLimiter interface {
	Check(sessionID, endpoint string, riskScore int) ratelimit.Result
	Prune(maxIdle time.Duration) int
	Statistics() ratelimit.Stats
}

// SessionStore issues and validates security contexts.
type SessionStore interface {
	Create(windowLabel string, opts session.CreateOptions) session.Snapshot
	Validate(sessionID, sourceIP string) (session.Status, session.Snapshot)
	CleanupExpired() int
	Statistics() session.Stats
}

// AuditSink records security events.
type AuditSink interface {
	Log(event audit.Event) error
	Flush() error
	Statistics() audit.Stats
}

// Report aggregates the statistics of every gateway dependency.
type Report struct {
	Sessions  session.Stats   `json:"sessions"`
	RateLimit ratelimit.Stats `json:"rate_limit"`
	Audit     audit.Stats     `json:"audit"`
}

// Gateway is the authorization pipeline. Construct with New; the zero value
// is not usable.
type Gateway struct {
	sanitizer InputSanitizer
	validator CommandValidator
	limiter   RateLimiter
	sessions  SessionStore
	auditor   AuditSink
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSanitizer replaces the input sanitizer.
func WithSanitizer(s InputSanitizer) Option {
	return func(g *Gateway) { g.sanitizer = s }
}

// WithValidator replaces the command validator.
func WithValidator(v CommandValidator) Option {
	return func(g *Gateway) { g.validator = v }
}

// WithRateLimiter replaces the rate limiter.
func WithRateLimiter(l RateLimiter) Option {
	return func(g *Gateway) { g.limiter = l }
}

// WithSessionStore replaces the session registry.
func WithSessionStore(s SessionStore) Option {
	return func(g *Gateway) { g.sessions = s }
}

// WithAuditSink replaces the audit logger.
func WithAuditSink(a AuditSink) Option {
	return func(g *Gateway) { g.auditor = a }
}

// WithLogger replaces the operational slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New constructs a Gateway. Dependencies not overridden by options get
// working defaults: the built-in command profiles, default sanitizer limits,
// default rate limits, an in-memory session registry, and an audit logger
// that discards events.
func New(opts ...Option) (*Gateway, error) {
	g := &Gateway{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}

	if g.sanitizer == nil {
		s, err := sanitize.New(sanitize.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build default sanitizer: %w", err)
		}
		g.sanitizer = s
	}
	if g.validator == nil {
		reg, err := whitelist.NewRegistry(
			whitelist.DefaultProfiles(),
			whitelist.DefaultAliases(),
			whitelist.DefaultHierarchy(),
			whitelist.DefaultGlobalBlockedPatterns(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build default command registry: %w", err)
		}
		g.validator = reg
	}
	if g.limiter == nil {
		g.limiter = ratelimit.New(ratelimit.DefaultConfig(), nil)
	}
	if g.sessions == nil {
		g.sessions = session.NewRegistry(session.DefaultConfig())
	}
	if g.auditor == nil {
		g.auditor = audit.NewLogger(audit.DiscardWriter{}, audit.DefaultConfig())
	}
	return g, nil
}

// CreateSession issues a new session bound to a window label and returns its
// ID.
func (g *Gateway) CreateSession(windowLabel string, opts session.CreateOptions) string {
	snap := g.sessions.Create(windowLabel, opts)
	g.record(audit.Event{
		Type:      audit.EventLogin,
		Severity:  audit.SeverityInfo,
		SessionID: snap.ID,
		UserID:    snap.UserID,
		Outcome:   audit.OutcomeSuccess,
		Details: map[string]any{
			"window_label":   windowLabel,
			"security_level": snap.Level.String(),
		},
	})
	return snap.ID
}

// ValidateCommand runs the full authorization pipeline for one request:
// session lookup, input validation, rate limiting, then whitelist and
// permission checks. Exactly one audit event is emitted per call. The
// pipeline is fail-closed: a panic in any dependency resolves to a denial,
// never an allow.
func (g *Gateway) ValidateCommand(command string, args any, sessionID string) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("authorization pipeline fault",
				"command", command,
				"panic", r)
			result = g.deny(sessionID, command, sectypes.ViolationInternalError,
				"internal error", 100)
		}
	}()

	// Session lookup.
	if sessionID == "" {
		return g.deny(sessionID, command, sectypes.ViolationSessionInvalid,
			"session id is required", 50)
	}
	status, snap := g.sessions.Validate(sessionID, "")
	switch status {
	case session.StatusValid:
		// proceed
	case session.StatusRequiresMFA:
		g.record(audit.Event{
			Type:      audit.EventPermission,
			Severity:  audit.SeverityWarning,
			SessionID: sessionID,
			Command:   command,
			Outcome:   audit.OutcomeFailure,
			RiskScore: 40,
			Details:   map[string]any{"stage": "session", "status": status.String()},
		})
		return ValidationResult{
			Decision:            DecisionRequiresElevation,
			Violation:           sectypes.ViolationMFARequired,
			Reason:              "mfa required",
			RiskScore:           40,
			RequiredPermissions: []string{"mfa.verified"},
		}
	case session.StatusSuspended:
		return g.deny(sessionID, command, sectypes.ViolationSessionSuspended,
			"session is suspended", 60)
	default:
		return g.deny(sessionID, command, sectypes.ViolationSessionExpired,
			"session is not valid", 50)
	}

	// Input validation.
	sanitizedArgs, res := g.sanitizer.ValidateIPCInput(command, args)
	if !res.OK() {
		g.record(audit.Event{
			Type:      audit.EventInputValidation,
			Severity:  audit.SeverityError,
			SessionID: sessionID,
			UserID:    snap.UserID,
			Command:   command,
			Outcome:   audit.OutcomeBlocked,
			RiskScore: 80,
			Details: map[string]any{
				"code":   res.Code,
				"reason": res.Reason,
			},
		})
		return ValidationResult{
			Decision:  DecisionDenied,
			RiskScore: 80,
			Violation: sectypes.ViolationInputRejected,
			Reason:    "input rejected",
		}
	}
	inputSanitized := res.Status == sanitize.StatusSanitized

	// Rate limiting. The canonical name keys the quota so aliases cannot
	// split it; risk scales the effective limits.
	endpoint := command
	if canonical, ok := g.validator.Resolve(command); ok {
		endpoint = canonical
	}
	risk := g.validator.RiskOf(command)
	rl := g.limiter.Check(sessionID, endpoint, risk)
	switch rl.Decision {
	case ratelimit.DecisionLimited:
		g.record(audit.Event{
			Type:      audit.EventRateLimit,
			Severity:  audit.SeverityWarning,
			SessionID: sessionID,
			UserID:    snap.UserID,
			Command:   endpoint,
			Outcome:   audit.OutcomeBlocked,
			RiskScore: 30,
			Details:   map[string]any{"reason": rl.Reason},
		})
		return ValidationResult{
			Decision:   DecisionDenied,
			Command:    endpoint,
			RiskScore:  30,
			Violation:  sectypes.ViolationRateLimited,
			Reason:     "rate limit exceeded",
			RetryAfter: rl.RetryAfter,
		}
	case ratelimit.DecisionBlocked:
		g.record(audit.Event{
			Type:      audit.EventRateLimit,
			Severity:  audit.SeverityError,
			SessionID: sessionID,
			UserID:    snap.UserID,
			Command:   endpoint,
			Outcome:   audit.OutcomeBlocked,
			RiskScore: 60,
			Details:   map[string]any{"reason": rl.Reason},
		})
		return ValidationResult{
			Decision:   DecisionDenied,
			Command:    endpoint,
			RiskScore:  60,
			Violation:  sectypes.ViolationRateLimitBlocked,
			Reason:     "rate limit penalty active",
			RetryAfter: rl.UnblockAfter,
		}
	}

	// Whitelist and permissions.
	decision := g.validator.Validate(command, sanitizedArgs, snap.Permissions, snap.MFAVerified)
	switch decision.Kind {
	case whitelist.DecisionDenied:
		severity := audit.SeverityWarning
		if decision.RiskScore >= 90 {
			severity = audit.SeverityCritical
		}
		g.record(audit.Event{
			Type:      audit.EventCommand,
			Severity:  severity,
			SessionID: sessionID,
			UserID:    snap.UserID,
			Command:   decision.Command,
			Outcome:   audit.OutcomeBlocked,
			RiskScore: decision.RiskScore,
			Details: map[string]any{
				"violation": string(decision.Violation),
				"reason":    decision.Reason,
			},
		})
		return ValidationResult{
			Decision:  DecisionDenied,
			Command:   decision.Command,
			RiskScore: decision.RiskScore,
			Violation: decision.Violation,
			Reason:    decision.Reason,
		}

	case whitelist.DecisionRequiresElevation:
		g.record(audit.Event{
			Type:      audit.EventPermission,
			Severity:  audit.SeverityWarning,
			SessionID: sessionID,
			UserID:    snap.UserID,
			Command:   decision.Command,
			Outcome:   audit.OutcomeFailure,
			RiskScore: decision.RiskScore,
			Details: map[string]any{
				"violation": string(decision.Violation),
				"required":  decision.RequiredPermissions,
			},
		})
		return ValidationResult{
			Decision:            DecisionRequiresElevation,
			Command:             decision.Command,
			RiskScore:           decision.RiskScore,
			Violation:           decision.Violation,
			Reason:              decision.Reason,
			RequiredPermissions: decision.RequiredPermissions,
		}
	}

	outcome := audit.OutcomeSuccess
	if inputSanitized {
		outcome = audit.OutcomeSanitized
	}
	g.record(audit.Event{
		Type:      audit.EventCommand,
		Severity:  audit.SeverityInfo,
		SessionID: sessionID,
		UserID:    snap.UserID,
		Command:   decision.Command,
		Outcome:   outcome,
		RiskScore: decision.RiskScore,
	})

	if len(decision.Conditions) > 0 {
		return ValidationResult{
			Decision:      DecisionConditionallyAllowed,
			Command:       decision.Command,
			SanitizedArgs: sanitizedArgs,
			RiskScore:     decision.RiskScore,
			Conditions:    decision.Conditions,
		}
	}
	return ValidationResult{
		Decision:            DecisionAllowed,
		Command:             decision.Command,
		SanitizedArgs:       sanitizedArgs,
		RiskScore:           decision.RiskScore,
		RequiredPermissions: decision.RequiredPermissions,
	}
}

// deny emits the audit event for a terminal denial and builds its result.
func (g *Gateway) deny(sessionID, command string, violation sectypes.ViolationType, reason string, risk int) ValidationResult {
	severity := audit.SeverityWarning
	if violation == sectypes.ViolationInternalError {
		severity = audit.SeverityCritical
	}
	g.record(audit.Event{
		Type:      audit.EventCommand,
		Severity:  severity,
		SessionID: sessionID,
		Command:   command,
		Outcome:   audit.OutcomeBlocked,
		RiskScore: risk,
		Details:   map[string]any{"violation": string(violation)},
	})
	return ValidationResult{
		Decision:  DecisionDenied,
		RiskScore: risk,
		Violation: violation,
		Reason:    reason,
	}
}

// record logs an audit event. A persistence failure never changes the
// authorization outcome; it is reported through the operational logger.
func (g *Gateway) record(event audit.Event) {
	if err := g.auditor.Log(event); err != nil {
		g.logger.Error("audit event not persisted",
			"event_type", string(event.Type),
			"error", err)
	}
}

// Statistics aggregates the counters of every dependency.
func (g *Gateway) Statistics() Report {
	return Report{
		Sessions:  g.sessions.Statistics(),
		RateLimit: g.limiter.Statistics(),
		Audit:     g.auditor.Statistics(),
	}
}

// Flush persists buffered audit events immediately.
func (g *Gateway) Flush() error {
	return g.auditor.Flush()
}

// Cleanup sweeps expired sessions and stale rate limit keys once.
func (g *Gateway) Cleanup() (sessionsRemoved, keysRemoved int) {
	sessionsRemoved = g.sessions.CleanupExpired()
	keysRemoved = g.limiter.Prune(0)
	return sessionsRemoved, keysRemoved
}

// RunSweeper periodically runs Cleanup and flushes the audit buffer until
// the context is cancelled. Intended to run on its own goroutine.
func (g *Gateway) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := g.Flush(); err != nil {
				g.logger.Error("final audit flush failed", "error", err)
			}
			return
		case <-ticker.C:
			sessions, keys := g.Cleanup()
			if err := g.Flush(); err != nil {
				g.logger.Error("periodic audit flush failed", "error", err)
			}
			g.logger.Debug("sweep complete",
				"expired_sessions", sessions,
				"pruned_keys", keys)
		}
	}
}
