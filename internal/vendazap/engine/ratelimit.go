package engine

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the maximum number of answered messages per
	// conversation per minute when no explicit limit is configured.
	DefaultRateLimit = 10

	// defaultRateLimitWindow is the sliding window duration.
	defaultRateLimitWindow = time.Minute
)

// RateLimiter enforces a per-conversation sliding-window limit on answered
// messages, protecting the completion API budget from message floods.
//
// Internally it holds the answer timestamps for each conversation within the
// current window and prunes stale entries on every Allow call, keeping
// memory bounded to O(limit) entries per active conversation.
//
// RateLimiter is safe for concurrent use from multiple goroutines.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	counters  map[string][]time.Time // conversationID → timestamps in window
	lastSweep time.Time
}

// NewRateLimiter returns a RateLimiter that allows at most limit answers per
// conversation within window.
//
// If limit ≤ 0 it defaults to DefaultRateLimit.
// If window ≤ 0 it defaults to one minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		limit:     limit,
		window:    window,
		counters:  make(map[string][]time.Time),
		lastSweep: time.Now(),
	}
}

// Allow returns true when the conversation is permitted another answered
// message and records the current timestamp. Returns false when the
// conversation has exhausted its quota for the current window.
func (r *RateLimiter) Allow(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Conversations that went idle never call Allow again, so their entries
	// are reaped here at most once per window.
	if now.Sub(r.lastSweep) >= r.window {
		r.sweep(cutoff)
		r.lastSweep = now
	}

	recent := r.counters[conversationID][:0]
	for _, ts := range r.counters[conversationID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.limit {
		r.counters[conversationID] = recent
		return false
	}

	r.counters[conversationID] = append(recent, now)
	return true
}

// sweep drops every conversation whose timestamps all predate cutoff.
// Caller holds r.mu.
func (r *RateLimiter) sweep(cutoff time.Time) {
	for id, stamps := range r.counters {
		idle := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(r.counters, id)
		}
	}
}
