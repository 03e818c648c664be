// Package ratelimit implements per-client fixed-window request counting.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWindow  = 15 * time.Minute
	DefaultCeiling = 100
)

type window struct {
	count int
	start time.Time
}

// Decision describes the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied client should wait, rounded up to a second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return (wait + time.Second - 1).Truncate(time.Second)
}

type Limiter struct {
	window  time.Duration
	ceiling int
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func New(windowDuration time.Duration, ceiling int) *Limiter {
	if windowDuration <= 0 {
		windowDuration = DefaultWindow
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	return &Limiter{
		window:  windowDuration,
		ceiling: ceiling,
		now:     time.Now,
		windows: map[string]*window{},
	}
}

func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

func (l *Limiter) Window() time.Duration { return l.window }

func (l *Limiter) Ceiling() int { return l.ceiling }

// Allow counts one request for key. A window resets once window duration has
// elapsed since it started, boundary instant included.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) >= l.window {
		w = &window{count: 1, start: now}
		l.windows[key] = w
		return l.decision(true, w)
	}

	if w.count >= l.ceiling {
		return l.decision(false, w)
	}

	w.count++
	return l.decision(true, w)
}

func (l *Limiter) decision(allowed bool, w *window) Decision {
	return Decision{
		Allowed:   allowed,
		Limit:     l.ceiling,
		Remaining: max(l.ceiling-w.count, 0),
		ResetAt:   w.start.Add(l.window),
	}
}

// Sweep drops every window that has already elapsed and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// StartSweeper sweeps on every tick until ctx is done.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.Sweep(); removed > 0 {
				slog.Debug("rate limit windows swept", "removed", removed, "remaining", l.Len())
			}
		}
	}
}
