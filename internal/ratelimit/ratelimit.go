package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultWindow   = time.Hour
	DefaultMax      = 3
	DefaultDailyCap = 100
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed           bool
	Reason            string
	RetryAfterMinutes int
}

// RateLimiter enforces a per-identifier sliding window plus a global daily
// cap. State lives in process memory only: counters reset on restart, and
// multiple instances each enforce their limits independently. This is a
// soft limit, not a security boundary.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	max      int

	dailyCap   int
	dailyCount int
	dailyReset time.Time

	now func() time.Time
}

func NewRateLimiter(window time.Duration, max, dailyCap int) *RateLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}

	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
		dailyCap: dailyCap,
		now:      time.Now,
	}
	rl.dailyReset = rl.now().Add(24 * time.Hour)
	return rl
}

// CheckAndRecord decides whether a request from identifier may proceed and,
// only if allowed, records it against both counters. The ordering matters:
// the global cap is consulted before any per-identifier state is read or
// pruned, and a denied request leaves both counters untouched.
func (rl *RateLimiter) CheckAndRecord(identifier string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	if now.After(rl.dailyReset) {
		rl.dailyCount = 0
		rl.dailyReset = now.Add(24 * time.Hour)
	}

	if rl.dailyCount >= rl.dailyCap {
		return Decision{
			Allowed: false,
			Reason:  "Daily limit reached. Please try again tomorrow.",
		}
	}

	cutoff := now.Add(-rl.window)
	recent := pruneBefore(rl.requests[identifier], cutoff)

	if len(recent) >= rl.max {
		rl.requests[identifier] = recent
		retryAfter := retryAfterMinutes(recent[0], rl.window, now)
		return Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("Too many requests. Please try again in %d %s.", retryAfter, pluralMinutes(retryAfter)),
			RetryAfterMinutes: retryAfter,
		}
	}

	rl.requests[identifier] = append(recent, now)
	rl.dailyCount++
	return Decision{Allowed: true}
}

// Stats reports current limiter occupancy for the ops endpoint.
type Stats struct {
	TrackedIdentifiers int       `json:"tracked_identifiers"`
	DailyCount         int       `json:"daily_count"`
	DailyCap           int       `json:"daily_cap"`
	DailyResetAt       time.Time `json:"daily_reset_at"`
}

func (rl *RateLimiter) Stats() Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return Stats{
		TrackedIdentifiers: len(rl.requests),
		DailyCount:         rl.dailyCount,
		DailyCap:           rl.dailyCap,
		DailyResetAt:       rl.dailyReset,
	}
}

// SetClock replaces the limiter's time source. Test hook.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
	rl.dailyReset = now().Add(24 * time.Hour)
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	n := copy(ts, ts[i:])
	return ts[:n]
}

// retryAfterMinutes is the ceiling, in minutes, of the time until the
// oldest surviving entry leaves the window.
func retryAfterMinutes(oldest time.Time, window time.Duration, now time.Time) int {
	remaining := oldest.Add(window).Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "minute"
	}
	return "minutes"
}
