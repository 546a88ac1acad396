package ratelimit

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// shardCount is the number of independent lock domains for keyed
	// state. Must be a power of two.
	shardCount = 64

	// violationThreshold is the number of Limited outcomes that escalate
	// a key into the penalty window.
	violationThreshold = 5

	// defaultIdleRetention is how long inactive keys survive before the
	// periodic sweep prunes them.
	defaultIdleRetention = time.Hour

	secondWindow = time.Second
	burstWindow  = 5 * time.Second
	minuteWindow = time.Minute
)

// entry is the keyed state for one (session, endpoint) pair. Each entry is
// owned by exactly one shard; all mutation happens under that shard's lock.
type entry struct {
	// timestamps is the time-ordered record of recent allowed requests,
	// pruned to the minute window on every check.
	timestamps []time.Time

	// Fixed-window state.
	windowStart time.Time
	windowCount int

	// Token-bucket state.
	tokens      float64
	lastRefill  time.Time
	bucketReady bool

	violations   int
	penaltyUntil time.Time
	lastSeen     time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Stats is a point-in-time view of limiter activity.
type Stats struct {
	TotalRequests   uint64
	LimitedRequests uint64
	ActiveKeys      int
}

// Limiter is the multi-strategy rate limiter. Safe for concurrent use; the
// lock scope of a check is limited to the single shard owning the key, so
// calls for different sessions proceed in parallel.
type Limiter struct {
	defaults Config

	mu        sync.RWMutex
	overrides map[string]Config

	shards [shardCount]shard

	clock   func() time.Time
	total   atomic.Uint64
	limited atomic.Uint64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) { l.clock = clock }
}

// New creates a Limiter with the given default limits and per-endpoint
// overrides. Zero fields in an override fall back to the defaults.
func New(defaults Config, overrides map[string]Config, opts ...Option) *Limiter {
	defaults = defaults.withDefaults(DefaultConfig())
	l := &Limiter{
		defaults:  defaults,
		overrides: make(map[string]Config, len(overrides)),
		clock:     time.Now,
	}
	for endpoint, cfg := range overrides {
		l.overrides[endpoint] = cfg.withDefaults(defaults)
	}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]*entry)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReplaceOverrides swaps the per-endpoint configuration, for hot reload.
// Existing keyed state is preserved; the new limits apply from the next
// check onward.
func (l *Limiter) ReplaceOverrides(overrides map[string]Config) {
	next := make(map[string]Config, len(overrides))
	for endpoint, cfg := range overrides {
		next[endpoint] = cfg.withDefaults(l.defaults)
	}
	l.mu.Lock()
	l.overrides = next
	l.mu.Unlock()
}

func (l *Limiter) configFor(endpoint string) Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cfg, ok := l.overrides[endpoint]; ok {
		return cfg
	}
	return l.defaults
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.shards[h.Sum32()&(shardCount-1)]
}

// Check evaluates one request for the (sessionID, endpoint) key. riskScore
// scales the effective limits down so higher-risk commands are throttled
// harder even within quota.
func (l *Limiter) Check(sessionID, endpoint string, riskScore int) Result {
	cfg := l.configFor(endpoint)
	now := l.clock()
	key := sessionID + "\x00" + endpoint

	sh := l.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		e = &entry{}
		sh.entries[key] = e
	}
	e.lastSeen = now
	l.total.Add(1)

	// An active penalty window refuses everything regardless of quota.
	if now.Before(e.penaltyUntil) {
		return Result{
			Decision:     DecisionBlocked,
			UnblockAfter: e.penaltyUntil.Sub(now),
			Reason:       "key is in a rate limit penalty window",
		}
	}

	var res Result
	switch cfg.Strategy {
	case StrategyFixedWindow:
		res = l.checkFixedWindow(e, cfg, riskScore, now)
	case StrategyTokenBucket:
		res = l.checkTokenBucket(e, cfg, riskScore, now)
	case StrategyAdaptive:
		res = l.checkAdaptive(e, cfg, riskScore, now)
	default:
		res = l.checkSlidingWindow(e, cfg, riskScore, now)
	}

	if res.Decision == DecisionLimited {
		l.limited.Add(1)
		e.violations++
		if e.violations >= violationThreshold {
			penalty := time.Duration(float64(cfg.CooldownPeriod) * cfg.PenaltyMultiplier)
			e.penaltyUntil = now.Add(penalty)
			e.violations = 0
		}
	}
	return res
}

// Prune removes keys idle beyond maxIdle with no active penalty. A
// non-positive maxIdle selects the default one-hour retention. Returns the
// number of keys removed. Locks are taken one shard at a time so an
// in-flight check is never stalled behind the full sweep.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		maxIdle = defaultIdleRetention
	}
	now := l.clock()
	removed := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.Sub(e.lastSeen) >= maxIdle && !now.Before(e.penaltyUntil) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Statistics returns current limiter activity counters.
func (l *Limiter) Statistics() Stats {
	active := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		active += len(sh.entries)
		sh.mu.Unlock()
	}
	return Stats{
		TotalRequests:   l.total.Load(),
		LimitedRequests: l.limited.Load(),
		ActiveKeys:      active,
	}
}

// loadFactor is the global ratio of limited to total requests, used by the
// adaptive strategy.
func (l *Limiter) loadFactor() float64 {
	total := l.total.Load()
	if total == 0 {
		return 0
	}
	return float64(l.limited.Load()) / float64(total)
}
