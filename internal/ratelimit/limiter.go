// Package ratelimit provides per-user sliding-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

const (
	defaultMaxRequests = 3
	defaultWindow      = 60 * time.Second
)

// Limiter tracks request timestamps per user and admits a request only
// when fewer than max requests fall inside the trailing window. Windows
// are pruned lazily on each check; there is no background sweeper.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	byUser map[string][]time.Time
}

// New creates a limiter. Non-positive arguments fall back to defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = defaultMaxRequests
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		max:    max,
		window: window,
		byUser: make(map[string][]time.Time),
	}
}

// Admit records and admits one request for the user if their window has
// room, and reports whether it was admitted. A rejected request is not
// recorded and does not extend the window.
func (l *Limiter) Admit(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admitAt(userID, time.Now())
}

func (l *Limiter) admitAt(userID string, now time.Time) bool {
	cutoff := now.Add(-l.window)
	kept := l.byUser[userID][:0]
	for _, ts := range l.byUser[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.byUser[userID] = kept
		return false
	}
	l.byUser[userID] = append(kept, now)
	return true
}

// Remaining reports how many requests the user could still make right now.
func (l *Limiter) Remaining(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	used := 0
	for _, ts := range l.byUser[userID] {
		if ts.After(cutoff) {
			used++
		}
	}
	if used >= l.max {
		return 0
	}
	return l.max - used
}

// RetryAfter reports how long until the user's oldest in-window request
// expires. Zero means the user is not currently limited.
func (l *Limiter) RetryAfter(userID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	var oldest time.Time
	used := 0
	for _, ts := range l.byUser[userID] {
		if ts.After(cutoff) {
			if oldest.IsZero() || ts.Before(oldest) {
				oldest = ts
			}
			used++
		}
	}
	if used < l.max {
		return 0
	}
	return oldest.Add(l.window).Sub(now)
}
