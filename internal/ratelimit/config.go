// Package ratelimit throttles IPC requests per (session, endpoint) key. Four
// interchangeable strategies are supported: fixed window, sliding window
// (the default), token bucket, and adaptive. Repeat offenders escalate into
// a penalty window during which every request is refused outright. Keyed
// state lives in a sharded map so concurrent sessions never contend on
// unrelated keys.
package ratelimit

import (
	"fmt"
	"time"
)

// Strategy selects the rate limiting algorithm for an endpoint.
type Strategy int

const (
	// StrategySlidingWindow keeps an ordered list of recent request
	// instants and enforces second, burst, and minute bounds. Default.
	StrategySlidingWindow Strategy = iota
	// StrategyFixedWindow counts requests in the current 60s bucket.
	StrategyFixedWindow
	// StrategyTokenBucket refills a float token count continuously;
	// request cost scales with risk score.
	StrategyTokenBucket
	// StrategyAdaptive recomputes the effective minute limit from global
	// load and the key's own violation history, then evaluates the
	// sliding-window algorithm against it.
	StrategyAdaptive
)

const (
	strategySlidingString  = "sliding_window"
	strategyFixedString    = "fixed_window"
	strategyTokenString    = "token_bucket"
	strategyAdaptiveString = "adaptive"
)

// String returns the configuration representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategySlidingWindow:
		return strategySlidingString
	case StrategyFixedWindow:
		return strategyFixedString
	case StrategyTokenBucket:
		return strategyTokenString
	case StrategyAdaptive:
		return strategyAdaptiveString
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML configuration.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStrategy converts a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case strategySlidingString, "":
		return StrategySlidingWindow, nil
	case strategyFixedString:
		return StrategyFixedWindow, nil
	case strategyTokenString:
		return StrategyTokenBucket, nil
	case strategyAdaptiveString:
		return StrategyAdaptive, nil
	default:
		return StrategySlidingWindow, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Config holds the limits for one endpoint. Zero fields fall back to the
// limiter's defaults when used as an override.
type Config struct {
	// RequestsPerSecond bounds the trailing one-second window.
	RequestsPerSecond int
	// RequestsPerMinute bounds the trailing sixty-second window and sets
	// the token bucket capacity.
	RequestsPerMinute int
	// BurstLimit bounds the trailing five-second window.
	BurstLimit int
	// Strategy selects the algorithm.
	Strategy Strategy
	// PenaltyMultiplier scales CooldownPeriod into the penalty window.
	PenaltyMultiplier float64
	// CooldownPeriod is the base penalty duration after repeated
	// violations.
	CooldownPeriod time.Duration
}

// DefaultConfig returns the global fallback limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		RequestsPerMinute: 60,
		BurstLimit:        20,
		Strategy:          StrategySlidingWindow,
		PenaltyMultiplier: 2.0,
		CooldownPeriod:    time.Minute,
	}
}

// withDefaults fills zero fields from the fallback configuration.
func (c Config) withDefaults(fallback Config) Config {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = fallback.RequestsPerSecond
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = fallback.RequestsPerMinute
	}
	if c.BurstLimit <= 0 {
		c.BurstLimit = fallback.BurstLimit
	}
	if c.PenaltyMultiplier <= 0 {
		c.PenaltyMultiplier = fallback.PenaltyMultiplier
	}
	if c.CooldownPeriod <= 0 {
		c.CooldownPeriod = fallback.CooldownPeriod
	}
	return c
}

// riskScale returns the multiplier applied to effective limits for a given
// risk score: higher-risk calls are throttled harder even within quota.
func riskScale(riskScore int) float64 {
	switch {
	case riskScore <= 20:
		return 1.0
	case riskScore <= 50:
		return 0.8
	case riskScore <= 80:
		return 0.6
	default:
		return 0.4
	}
}

// riskCost returns the token-bucket cost of a request by risk score.
func riskCost(riskScore int) float64 {
	switch {
	case riskScore <= 20:
		return 1.0
	case riskScore <= 50:
		return 1.5
	case riskScore <= 80:
		return 2.0
	default:
		return 3.0
	}
}

// scaleLimit applies the risk multiplier to a limit, never dropping below 1.
func scaleLimit(limit int, factor float64) int {
	scaled := int(float64(limit) * factor)
	if scaled < 1 {
		return 1
	}
	return scaled
}
