package audit

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// defaultBufferSize is how many routine events accumulate before a
	// batch flush.
	defaultBufferSize = 100

	// alertRiskThreshold triggers the alert hook regardless of severity.
	alertRiskThreshold = 70

	// highRiskScore is the bound for the daily high-risk counter.
	highRiskScore = 50
)

// Config holds the logger's buffering and alerting thresholds.
type Config struct {
	// BufferSize is the routine-event batch size. Zero selects the default.
	BufferSize int
	// AlertSeverity is the minimum severity that fires the alert hook.
	AlertSeverity Severity
	// SyncSeverity is the minimum severity written synchronously, skipping
	// the buffer.
	SyncSeverity Severity
}

// DefaultConfig returns the logger's fallback thresholds.
func DefaultConfig() Config {
	return Config{
		BufferSize:    defaultBufferSize,
		AlertSeverity: SeverityCritical,
		SyncSeverity:  SeverityCritical,
	}
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.AlertSeverity == SeverityInfo {
		c.AlertSeverity = SeverityCritical
	}
	if c.SyncSeverity == SeverityInfo {
		c.SyncSeverity = SeverityCritical
	}
	return c
}

// AlertFunc receives events that crossed the alert thresholds. It runs
// synchronously on the logging goroutine and must return quickly.
type AlertFunc func(Event)

// Stats is a point-in-time view of recorded events.
type Stats struct {
	TotalEvents   uint64
	ByType        map[EventType]uint64
	BySeverity    map[Severity]uint64
	LastHour      int
	LastDay       int
	HighRiskToday int
}

// Logger stamps, buffers, and persists security events. Safe for concurrent
// use. Routine events are buffered and flushed in batches; events at or
// above SyncSeverity are persisted before Log returns.
type Logger struct {
	cfg    Config
	writer Writer
	alert  AlertFunc
	clock  func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	buffer  []Event
	closed  bool

	totals     uint64
	byType     map[EventType]uint64
	bySeverity map[Severity]uint64
	recent     []recentEvent
}

// recentEvent is the retained metadata for rolling statistics.
type recentEvent struct {
	at   time.Time
	risk int
}

// Option configures a Logger.
type Option func(*Logger)

// WithAlertFunc installs the alert hook.
func WithAlertFunc(fn AlertFunc) Option {
	return func(l *Logger) { l.alert = fn }
}

// WithClock replaces the time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Logger) { l.clock = clock }
}

// WithSlog replaces the fallback logger used when persistence fails.
func WithSlog(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// NewLogger creates a Logger persisting to writer.
func NewLogger(writer Writer, cfg Config, opts ...Option) *Logger {
	l := &Logger{
		cfg:        cfg.withDefaults(),
		writer:     writer,
		clock:      time.Now,
		logger:     slog.Default(),
		entropy:    ulid.Monotonic(rand.Reader, 0),
		byType:     make(map[EventType]uint64),
		bySeverity: make(map[Severity]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buffer = make([]Event, 0, l.cfg.BufferSize)
	return l
}

// Log stamps the event with an ID and timestamp, updates statistics, and
// persists it. Events at or above SyncSeverity are written before Log
// returns; everything else is buffered until the batch fills or Flush is
// called. A failed write is reported through the fallback slog logger and
// returned, but never drops the statistics update.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoggerClosed
	}

	now := l.clock()
	event.Timestamp = now
	event.ID = ulid.MustNew(ulid.Timestamp(now), l.entropy).String()
	if event.RiskScore < 0 {
		event.RiskScore = 0
	}
	if event.RiskScore > 100 {
		event.RiskScore = 100
	}

	l.totals++
	l.byType[event.Type]++
	l.bySeverity[event.Severity]++
	l.recent = append(l.recent, recentEvent{at: now, risk: event.RiskScore})
	l.pruneRecentLocked(now)

	if l.alert != nil && (event.Severity >= l.cfg.AlertSeverity || event.RiskScore >= alertRiskThreshold) {
		l.alert(event)
	}

	if event.Severity >= l.cfg.SyncSeverity {
		return l.flushLocked(event)
	}

	l.buffer = append(l.buffer, event)
	if len(l.buffer) >= l.cfg.BufferSize {
		return l.flushLocked()
	}
	return nil
}

// flushLocked writes the buffer plus any extra events. Must be called with
// the logger lock held.
func (l *Logger) flushLocked(extra ...Event) error {
	batch := make([]Event, 0, len(l.buffer)+len(extra))
	batch = append(batch, l.buffer...)
	batch = append(batch, extra...)
	l.buffer = l.buffer[:0]

	if len(batch) == 0 {
		return nil
	}
	if err := l.writer.WriteEvents(batch); err != nil {
		l.logger.Error("audit trail write failed",
			"error", err,
			"dropped_events", len(batch))
		return fmt.Errorf("failed to persist audit events: %w", err)
	}
	return nil
}

// Flush persists all buffered events immediately.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLoggerClosed
	}
	return l.flushLocked()
}

// Close flushes outstanding events and closes the writer. Further Log calls
// fail with ErrLoggerClosed.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.flushLocked()
	closeErr := l.writer.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (l *Logger) pruneRecentLocked(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	idx := 0
	for idx < len(l.recent) && l.recent[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		l.recent = append(l.recent[:0], l.recent[idx:]...)
	}
}

// Statistics returns rolling event counters. The last-hour and last-day
// windows are trailing; the high-risk counter covers the current UTC day.
func (l *Logger) Statistics() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneRecentLocked(now)

	stats := Stats{
		TotalEvents: l.totals,
		ByType:      make(map[EventType]uint64, len(l.byType)),
		BySeverity:  make(map[Severity]uint64, len(l.bySeverity)),
	}
	for k, v := range l.byType {
		stats.ByType[k] = v
	}
	for k, v := range l.bySeverity {
		stats.BySeverity[k] = v
	}

	hourCutoff := now.Add(-time.Hour)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, r := range l.recent {
		if r.at.After(hourCutoff) {
			stats.LastHour++
		}
		stats.LastDay++
		if r.risk >= highRiskScore && !r.at.Before(dayStart) {
			stats.HighRiskToday++
		}
	}
	return stats
}

// LogAuthentication records a session lifecycle event. Failures are
// warnings with a moderate risk default.
func (l *Logger) LogAuthentication(sessionID, userID string, outcome Outcome, details map[string]any) error {
	severity := SeverityInfo
	risk := 0
	if outcome == OutcomeFailure || outcome == OutcomeBlocked {
		severity = SeverityWarning
		risk = 40
	}
	return l.Log(Event{
		Type:      EventLogin,
		Severity:  severity,
		SessionID: sessionID,
		UserID:    userID,
		Outcome:   outcome,
		RiskScore: risk,
		Details:   details,
	})
}

// LogCommand records an IPC command authorization outcome. riskScore comes
// from the command's profile; a blocked command with no profile risk
// defaults to Warning at risk 50.
func (l *Logger) LogCommand(sessionID, command string, outcome Outcome, riskScore int, details map[string]any) error {
	severity := SeverityInfo
	switch outcome {
	case OutcomeBlocked:
		severity = SeverityWarning
		if riskScore == 0 {
			riskScore = 50
		}
		if riskScore >= 90 {
			severity = SeverityCritical
		}
	case OutcomeFailure:
		severity = SeverityWarning
	case OutcomeWarning:
		severity = SeverityWarning
	}
	return l.Log(Event{
		Type:      EventCommand,
		Severity:  severity,
		SessionID: sessionID,
		Command:   command,
		Outcome:   outcome,
		RiskScore: riskScore,
		Details:   details,
	})
}

// LogInputValidation records a sanitizer decision. Outright rejections are
// treated as injection attempts at Error severity.
func (l *Logger) LogInputValidation(sessionID, command string, outcome Outcome, reason string) error {
	severity := SeverityInfo
	risk := 0
	switch outcome {
	case OutcomeSanitized:
		severity = SeverityWarning
		risk = 30
	case OutcomeBlocked, OutcomeFailure:
		severity = SeverityError
		risk = 80
	}
	return l.Log(Event{
		Type:      EventInputValidation,
		Severity:  severity,
		SessionID: sessionID,
		Command:   command,
		Outcome:   outcome,
		RiskScore: risk,
		Details:   map[string]any{"reason": reason},
	})
}

// LogRateLimit records a throttling decision.
func (l *Logger) LogRateLimit(sessionID, command string, outcome Outcome, reason string) error {
	severity := SeverityWarning
	risk := 30
	if outcome == OutcomeBlocked {
		severity = SeverityError
		risk = 60
	}
	return l.Log(Event{
		Type:      EventRateLimit,
		Severity:  severity,
		SessionID: sessionID,
		Command:   command,
		Outcome:   outcome,
		RiskScore: risk,
		Details:   map[string]any{"reason": reason},
	})
}
