package engine

import (
	"testing"
	"time"
)

func TestRateLimiter_SweepsIdleConversations(t *testing.T) {
	r := NewRateLimiter(5, 30*time.Millisecond)
	r.Allow("idle")
	time.Sleep(70 * time.Millisecond)

	// This call is past the sweep interval and must reap the idle entry.
	r.Allow("active")

	r.mu.Lock()
	_, idleKept := r.counters["idle"]
	tracked := len(r.counters)
	r.mu.Unlock()

	if idleKept {
		t.Error("idle conversation entry survived the sweep")
	}
	if tracked != 1 {
		t.Errorf("tracked conversations: got %d, want 1", tracked)
	}
}

func TestRateLimiter_SweepKeepsActiveConversations(t *testing.T) {
	r := NewRateLimiter(5, time.Minute)
	r.Allow("a")
	r.lastSweep = time.Now().Add(-2 * time.Minute) // force a sweep on the next call
	r.Allow("b")

	r.mu.Lock()
	_, aKept := r.counters["a"]
	r.mu.Unlock()

	if !aKept {
		t.Error("in-window conversation was reaped")
	}
}
