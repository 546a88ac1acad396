package ratelimit

import "time"

// pruneTimestamps drops instants older than the minute window, keeping the
// per-key record bounded.
func pruneTimestamps(e *entry, now time.Time) {
	cutoff := now.Add(-minuteWindow)
	idx := 0
	for idx < len(e.timestamps) && !e.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		e.timestamps = append(e.timestamps[:0], e.timestamps[idx:]...)
	}
}

func countSince(timestamps []time.Time, cutoff time.Time) int {
	// Timestamps are ordered; walk backwards from the newest.
	count := 0
	for i := len(timestamps) - 1; i >= 0; i-- {
		if timestamps[i].After(cutoff) {
			count++
		} else {
			break
		}
	}
	return count
}

// checkSlidingWindow evaluates the second, burst, and minute bounds in
// most-restrictive-first order against the ordered request record.
func (l *Limiter) checkSlidingWindow(e *entry, cfg Config, riskScore int, now time.Time) Result {
	return l.slidingWindowWithLimit(e, cfg, riskScore, now, cfg.RequestsPerMinute)
}

func (l *Limiter) slidingWindowWithLimit(e *entry, cfg Config, riskScore int, now time.Time, minuteLimit int) Result {
	factor := riskScale(riskScore)
	effSecond := scaleLimit(cfg.RequestsPerSecond, factor)
	effBurst := scaleLimit(cfg.BurstLimit, factor)
	effMinute := scaleLimit(minuteLimit, factor)

	pruneTimestamps(e, now)

	if countSince(e.timestamps, now.Add(-secondWindow)) >= effSecond {
		return Result{
			Decision:   DecisionLimited,
			RetryAfter: secondWindow,
			Reason:     "per-second limit exceeded",
		}
	}
	if countSince(e.timestamps, now.Add(-burstWindow)) >= effBurst {
		return Result{
			Decision:   DecisionLimited,
			RetryAfter: burstWindow,
			Reason:     "burst limit exceeded",
		}
	}
	if len(e.timestamps) >= effMinute {
		retry := minuteWindow
		if len(e.timestamps) > 0 {
			retry = e.timestamps[0].Add(minuteWindow).Sub(now)
		}
		return Result{
			Decision:   DecisionLimited,
			RetryAfter: retry,
			Reason:     "per-minute limit exceeded",
		}
	}

	e.timestamps = append(e.timestamps, now)
	return Result{
		Decision:   DecisionAllowed,
		Remaining:  effMinute - len(e.timestamps),
		ResetAfter: e.timestamps[0].Add(minuteWindow).Sub(now),
	}
}

// checkFixedWindow counts requests in the trailing 60s bucket anchored at
// the first request of the window.
func (l *Limiter) checkFixedWindow(e *entry, cfg Config, riskScore int, now time.Time) Result {
	effMinute := scaleLimit(cfg.RequestsPerMinute, riskScale(riskScore))

	if e.windowStart.IsZero() || now.Sub(e.windowStart) >= minuteWindow {
		e.windowStart = now
		e.windowCount = 0
	}
	reset := e.windowStart.Add(minuteWindow).Sub(now)

	if e.windowCount >= effMinute {
		return Result{
			Decision:   DecisionLimited,
			RetryAfter: reset,
			Reason:     "window limit exceeded",
		}
	}
	e.windowCount++
	return Result{
		Decision:   DecisionAllowed,
		Remaining:  effMinute - e.windowCount,
		ResetAfter: reset,
	}
}

// checkTokenBucket refills continuously at capacity/60 tokens per second and
// charges each request a cost scaled by its risk score.
func (l *Limiter) checkTokenBucket(e *entry, cfg Config, riskScore int, now time.Time) Result {
	capacity := float64(scaleLimit(cfg.RequestsPerMinute, riskScale(riskScore)))
	refillRate := capacity / minuteWindow.Seconds()

	if !e.bucketReady {
		e.tokens = capacity
		e.lastRefill = now
		e.bucketReady = true
	} else {
		elapsed := now.Sub(e.lastRefill).Seconds()
		if elapsed > 0 {
			e.tokens += elapsed * refillRate
			if e.tokens > capacity {
				e.tokens = capacity
			}
			e.lastRefill = now
		}
	}

	cost := riskCost(riskScore)
	if e.tokens < cost {
		deficit := cost - e.tokens
		retry := time.Duration(deficit / refillRate * float64(time.Second))
		return Result{
			Decision:   DecisionLimited,
			RetryAfter: retry,
			Reason:     "token bucket exhausted",
		}
	}
	e.tokens -= cost
	return Result{
		Decision:   DecisionAllowed,
		Remaining:  int(e.tokens),
		ResetAfter: time.Duration((capacity - e.tokens) / refillRate * float64(time.Second)),
	}
}

// adaptiveViolationCap bounds the per-key violation contribution so a noisy
// key can never drive its own limit to zero.
const adaptiveViolationCap = 0.5

// checkAdaptive shrinks the minute limit by global load and the key's own
// violation history, then evaluates the sliding-window algorithm against the
// adjusted limit.
func (l *Limiter) checkAdaptive(e *entry, cfg Config, riskScore int, now time.Time) Result {
	load := l.loadFactor()
	violationFactor := 0.1 * float64(e.violations)
	if violationFactor > adaptiveViolationCap {
		violationFactor = adaptiveViolationCap
	}
	scale := 1.0 - load - violationFactor
	if scale < 0.1 {
		scale = 0.1
	}
	adjusted := int(float64(cfg.RequestsPerMinute) * scale)
	if adjusted < 1 {
		adjusted = 1
	}
	return l.slidingWindowWithLimit(e, cfg, riskScore, now, adjusted)
}
