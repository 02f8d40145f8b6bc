// Package ratelimit enforces a sliding-window cap on outbound model calls.
package ratelimit

import (
	"sync"
	"time"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// DefaultLimit and DefaultWindow give at most 10 calls per 60 seconds.
const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Limiter guards outbound model calls with a sliding window of timestamps.
// The zero value is not usable; construct with New.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	calls     []time.Time
	nowFunc   func() time.Time
}

// New returns a Limiter admitting at most limit calls per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		nowFunc: time.Now,
	}
}

// Check prunes expired timestamps, then admits the call (recording now) if
// the window has room, or returns *gitalkyerrors.RateLimited with the wait
// until the oldest admitted call ages out.
func (l *Limiter) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.prune(now)

	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return nil
	}

	wait := l.window
	if len(l.calls) > 0 {
		wait = l.window - now.Sub(l.calls[0])
	}
	if wait < 0 {
		wait = 0
	}
	return &gitalkyerrors.RateLimited{WaitSeconds: wait.Seconds()}
}

// prune drops timestamps older than the window. Callers must hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && l.calls[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = l.calls[i:]
	}
}
