package ratelimit_test

import (
	"testing"
	"time"

	"github.com/artpar/socketgate/domain/ratelimit"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

const window = 10 * time.Second

func TestConsume_FreshCounterAllows(t *testing.T) {
	result, state := ratelimit.Consume(ratelimit.CounterState{}, 5, window, 1, baseTime)

	if !result.Allowed {
		t.Error("expected fresh counter to allow")
	}
	if result.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", result.Remaining)
	}
	if state.Count != 1 {
		t.Errorf("count = %d, want 1", state.Count)
	}
	if !state.ResetAt.Equal(baseTime.Add(window)) {
		t.Errorf("resetAt = %v, want %v", state.ResetAt, baseTime.Add(window))
	}
}

func TestConsume_DeniesAtLimit(t *testing.T) {
	state := ratelimit.CounterState{Count: 5, ResetAt: baseTime.Add(3 * time.Second)}

	result, newState := ratelimit.Consume(state, 5, window, 1, baseTime)

	if result.Allowed {
		t.Error("expected denial at limit")
	}
	if result.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", result.Remaining)
	}
	if newState.Count != 5 {
		t.Errorf("count = %d, want 5 (unchanged)", newState.Count)
	}
	if !result.ResetAt.Equal(state.ResetAt) {
		t.Errorf("resetAt = %v, want %v", result.ResetAt, state.ResetAt)
	}
}

func TestConsume_ExactlyLimitWithinWindow(t *testing.T) {
	state := ratelimit.CounterState{}
	for i := 0; i < 5; i++ {
		var result ratelimit.ConsumeResult
		result, state = ratelimit.Consume(state, 5, window, 1, baseTime)
		if !result.Allowed {
			t.Fatalf("consume %d denied, want allowed", i+1)
		}
	}

	result, _ := ratelimit.Consume(state, 5, window, 1, baseTime)
	if result.Allowed {
		t.Error("6th consume allowed, want denied")
	}
	if result.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", result.Remaining)
	}
}

func TestConsume_ResetsExpiredWindow(t *testing.T) {
	state := ratelimit.CounterState{Count: 5, ResetAt: baseTime}

	// Consulting at exactly ResetAt starts a new window.
	result, newState := ratelimit.Consume(state, 5, window, 1, baseTime)

	if !result.Allowed {
		t.Error("expected allow after window elapsed")
	}
	if newState.Count != 1 {
		t.Errorf("count = %d, want 1", newState.Count)
	}
	if !newState.ResetAt.Equal(baseTime.Add(window)) {
		t.Errorf("resetAt = %v, want %v", newState.ResetAt, baseTime.Add(window))
	}
}

func TestConsume_MultipleTokens(t *testing.T) {
	result, state := ratelimit.Consume(ratelimit.CounterState{}, 5, window, 3, baseTime)

	if !result.Allowed {
		t.Error("expected allow for 3 of 5 tokens")
	}
	if result.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", result.Remaining)
	}

	result, _ = ratelimit.Consume(state, 5, window, 3, baseTime)
	if result.Allowed {
		t.Error("expected denial when tokens exceed remaining")
	}
	if result.Remaining != 2 {
		t.Errorf("remaining = %d, want 2 (denial does not consume)", result.Remaining)
	}
}

func TestConsume_DenialPersistsWindowReset(t *testing.T) {
	state := ratelimit.CounterState{Count: 5, ResetAt: baseTime.Add(-time.Second)}

	// Expired window resets, then a too-large request is denied; the reset
	// must still be visible in the returned state.
	result, newState := ratelimit.Consume(state, 5, window, 6, baseTime)

	if result.Allowed {
		t.Error("expected denial for oversized request")
	}
	if newState.Count != 0 {
		t.Errorf("count = %d, want 0 after reset", newState.Count)
	}
	if !newState.ResetAt.Equal(baseTime.Add(window)) {
		t.Errorf("resetAt = %v, want %v", newState.ResetAt, baseTime.Add(window))
	}
}

func TestRoomUserKey(t *testing.T) {
	if got := ratelimit.RoomUserKey("lobby", "u1"); got != "lobby::u1" {
		t.Errorf("key = %q, want %q", got, "lobby::u1")
	}
}
