package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianapp/ipcguard/internal/ratelimit"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ratelimit.Strategy
		wantErr bool
	}{
		{name: "sliding window", input: "sliding_window", want: ratelimit.StrategySlidingWindow},
		{name: "empty defaults to sliding", input: "", want: ratelimit.StrategySlidingWindow},
		{name: "fixed window", input: "fixed_window", want: ratelimit.StrategyFixedWindow},
		{name: "token bucket", input: "token_bucket", want: ratelimit.StrategyTokenBucket},
		{name: "adaptive", input: "adaptive", want: ratelimit.StrategyAdaptive},
		{name: "unknown", input: "leaky_bucket", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ratelimit.ParseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ratelimit.ErrUnknownStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLimiter_BurstLimit(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 100,
		RequestsPerMinute: 100,
		BurstLimit:        3,
	}, nil, ratelimit.WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		res := l.Check("sess-1", "save_settings", 10)
		require.Equal(t, ratelimit.DecisionAllowed, res.Decision, "request %d should pass", i+1)
		clock.Advance(10 * time.Millisecond)
	}

	res := l.Check("sess-1", "save_settings", 10)
	assert.Equal(t, ratelimit.DecisionLimited, res.Decision)
	assert.Positive(t, res.RetryAfter)
	assert.NotEmpty(t, res.Reason)
}

func TestLimiter_PerSecondLimit(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 2,
		RequestsPerMinute: 100,
		BurstLimit:        50,
	}, nil, ratelimit.WithClock(clock.Now))

	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
	assert.Equal(t, ratelimit.DecisionLimited, l.Check("s", "ep", 0).Decision)

	// The one-second window drains.
	clock.Advance(1100 * time.Millisecond)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
}

func TestLimiter_PenaltyEscalation(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 1,
		RequestsPerMinute: 100,
		BurstLimit:        50,
		PenaltyMultiplier: 2.0,
		CooldownPeriod:    time.Minute,
	}, nil, ratelimit.WithClock(clock.Now))

	require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)

	// Five limited outcomes in a row trip the penalty.
	for i := 0; i < 5; i++ {
		res := l.Check("s", "ep", 0)
		require.Equal(t, ratelimit.DecisionLimited, res.Decision, "violation %d", i+1)
	}

	res := l.Check("s", "ep", 0)
	require.Equal(t, ratelimit.DecisionBlocked, res.Decision)
	assert.Positive(t, res.UnblockAfter)
	assert.LessOrEqual(t, res.UnblockAfter, 2*time.Minute)

	// Still blocked just before the penalty expires.
	clock.Advance(119 * time.Second)
	assert.Equal(t, ratelimit.DecisionBlocked, l.Check("s", "ep", 0).Decision)

	// Past the penalty the key recovers.
	clock.Advance(2 * time.Second)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 1,
		RequestsPerMinute: 100,
		BurstLimit:        50,
	}, nil, ratelimit.WithClock(clock.Now))

	require.Equal(t, ratelimit.DecisionAllowed, l.Check("sess-1", "ep", 0).Decision)
	require.Equal(t, ratelimit.DecisionLimited, l.Check("sess-1", "ep", 0).Decision)

	// A different session and a different endpoint are untouched.
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("sess-2", "ep", 0).Decision)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("sess-1", "other", 0).Decision)
}

func TestLimiter_RiskScaling(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 10,
		RequestsPerMinute: 100,
		BurstLimit:        50,
	}, nil, ratelimit.WithClock(clock.Now))

	// Risk above 80 scales the per-second bound to 40%: floor(10*0.4) = 4.
	for i := 0; i < 4; i++ {
		require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 90).Decision)
	}
	assert.Equal(t, ratelimit.DecisionLimited, l.Check("s", "ep", 90).Decision)
}

func TestLimiter_EndpointOverrides(t *testing.T) {
	clock := newFakeClock()
	overrides := map[string]ratelimit.Config{
		"factory_reset": {RequestsPerSecond: 1, RequestsPerMinute: 2, BurstLimit: 1},
	}
	l := ratelimit.New(ratelimit.DefaultConfig(), overrides, ratelimit.WithClock(clock.Now))

	require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "factory_reset", 0).Decision)
	assert.Equal(t, ratelimit.DecisionLimited, l.Check("s", "factory_reset", 0).Decision)

	// Unlisted endpoints use the defaults.
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "get_app_info", 0).Decision)
}

func TestLimiter_ReplaceOverrides(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.DefaultConfig(), nil, ratelimit.WithClock(clock.Now))

	require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)

	l.ReplaceOverrides(map[string]ratelimit.Config{
		"ep": {RequestsPerSecond: 1, RequestsPerMinute: 1, BurstLimit: 1},
	})

	res := l.Check("s", "ep", 0)
	assert.Equal(t, ratelimit.DecisionLimited, res.Decision)
}

func TestLimiter_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 100,
		RequestsPerMinute: 3,
		BurstLimit:        100,
		Strategy:          ratelimit.StrategyFixedWindow,
	}, nil, ratelimit.WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
	}
	res := l.Check("s", "ep", 0)
	require.Equal(t, ratelimit.DecisionLimited, res.Decision)
	assert.Positive(t, res.RetryAfter)

	// Next window opens after 60s.
	clock.Advance(61 * time.Second)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
}

func TestLimiter_TokenBucket(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 100,
		RequestsPerMinute: 6,
		BurstLimit:        100,
		Strategy:          ratelimit.StrategyTokenBucket,
	}, nil, ratelimit.WithClock(clock.Now))

	// Capacity 6 at cost 1 per low-risk request.
	for i := 0; i < 6; i++ {
		require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision, "request %d", i+1)
	}
	res := l.Check("s", "ep", 0)
	require.Equal(t, ratelimit.DecisionLimited, res.Decision)
	assert.Positive(t, res.RetryAfter)

	// Refill rate is 6/60 = 0.1 tokens per second; after 10s one token is
	// available again.
	clock.Advance(11 * time.Second)
	assert.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 0).Decision)
}

func TestLimiter_TokenBucketHighRiskCost(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 100,
		RequestsPerMinute: 30,
		BurstLimit:        100,
		Strategy:          ratelimit.StrategyTokenBucket,
	}, nil, ratelimit.WithClock(clock.Now))

	// Risk above 80 scales capacity to 12 and costs 3 tokens per request,
	// so only four requests fit.
	for i := 0; i < 4; i++ {
		require.Equal(t, ratelimit.DecisionAllowed, l.Check("s", "ep", 95).Decision, "request %d", i+1)
	}
	assert.Equal(t, ratelimit.DecisionLimited, l.Check("s", "ep", 95).Decision)
}

func TestLimiter_AdaptiveTightensUnderViolations(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 2,
		RequestsPerMinute: 60,
		BurstLimit:        50,
		Strategy:          ratelimit.StrategyAdaptive,
	}, nil, ratelimit.WithClock(clock.Now))

	allowed, refused := 0, 0
	for i := 0; i < 50; i++ {
		if l.Check("s", "ep", 0).Decision == ratelimit.DecisionAllowed {
			allowed++
		} else {
			refused++
		}
		clock.Advance(100 * time.Millisecond)
	}
	assert.Positive(t, allowed)
	assert.Positive(t, refused)
	assert.Equal(t, 50, allowed+refused)
}

func TestLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.DefaultConfig(), nil, ratelimit.WithClock(clock.Now))

	l.Check("old", "ep", 0)
	clock.Advance(2 * time.Hour)
	l.Check("fresh", "ep", 0)

	removed := l.Prune(time.Hour)
	assert.Equal(t, 1, removed)

	stats := l.Statistics()
	assert.Equal(t, 1, stats.ActiveKeys)
}

func TestLimiter_Statistics(t *testing.T) {
	clock := newFakeClock()
	l := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: 1,
		RequestsPerMinute: 100,
		BurstLimit:        50,
	}, nil, ratelimit.WithClock(clock.Now))

	l.Check("s", "ep", 0)
	l.Check("s", "ep", 0)

	stats := l.Statistics()
	assert.Equal(t, uint64(2), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.LimitedRequests)
	assert.Equal(t, 1, stats.ActiveKeys)
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	l := ratelimit.New(ratelimit.DefaultConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessions := []string{"a", "b", "c", "d"}
			for j := 0; j < 100; j++ {
				l.Check(sessions[(n+j)%len(sessions)], "ep", 30)
			}
		}(i)
	}
	wg.Wait()

	stats := l.Statistics()
	assert.Equal(t, uint64(800), stats.TotalRequests)
}
