// Package ratelimit provides pure rate limiting algorithms.
// All functions are deterministic - same input always produces same output.
package ratelimit

import "time"

// Scope is the dimension along which a limit is enforced.
type Scope string

const (
	ScopeUser     Scope = "user"
	ScopeRoom     Scope = "room"
	ScopeUserRoom Scope = "user_room"
)

// CounterState represents a fixed-window counter for a single key (value type).
type CounterState struct {
	Count   int       // Tokens consumed in the current window
	ResetAt time.Time // When the current window ends
}

// ConsumeResult represents the outcome of a consume attempt (value type).
type ConsumeResult struct {
	Allowed   bool
	Remaining int       // Tokens remaining in window
	ResetAt   time.Time // When the counter resets
}

// Decision is the outcome of a multi-scope check. Scope, Limit, Remaining and
// ResetAt are only populated when a scope denied the request.
type Decision struct {
	Allowed   bool
	Scope     Scope
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow is the decision returned when every evaluated scope passed.
var Allow = Decision{Allowed: true}

// Consume attempts to take tokens from a fixed-window counter.
// This is a PURE function - no side effects, deterministic.
//
// A zero-value state, or a state whose window has elapsed, is treated as a
// fresh counter spanning [now, now+window). The returned state must be
// persisted by the caller; on denial the state still carries any window reset
// that occurred, but the count is unchanged.
func Consume(state CounterState, limit int, window time.Duration, tokens int, now time.Time) (ConsumeResult, CounterState) {
	if state.ResetAt.IsZero() || !now.Before(state.ResetAt) {
		state = CounterState{Count: 0, ResetAt: now.Add(window)}
	}

	if state.Count+tokens > limit {
		remaining := limit - state.Count
		if remaining < 0 {
			remaining = 0
		}
		return ConsumeResult{
			Allowed:   false,
			Remaining: remaining,
			ResetAt:   state.ResetAt,
		}, state
	}

	state.Count += tokens
	remaining := limit - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return ConsumeResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   state.ResetAt,
	}, state
}

// RoomUserKey builds the counter key for the user-in-room scope.
func RoomUserKey(roomID, userID string) string {
	return roomID + "::" + userID
}
