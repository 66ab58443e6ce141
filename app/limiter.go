// Package app provides application services that orchestrate domain logic.
package app

import (
	"sync"
	"time"

	"github.com/artpar/socketgate/domain/ratelimit"
	"github.com/artpar/socketgate/ports"
)

// LimiterConfig holds the per-scope budgets for one namespace.
// A limit of 0 leaves that scope unconstrained.
type LimiterConfig struct {
	Window        time.Duration
	PerUser       int
	PerRoom       int
	PerUserInRoom int
}

// LimiterDeps contains dependencies for Limiter.
type LimiterDeps struct {
	Users     ports.CounterStore
	Rooms     ports.CounterStore
	UserRooms ports.CounterStore
	Clock     ports.Clock
}

// Limiter enforces sliding-window event budgets across the user, user-in-room
// and room scopes. Checks within one limiter are serialized, which keeps the
// counter stores free of read-modify-write races.
type Limiter struct {
	mu        sync.Mutex
	cfg       LimiterConfig
	users     ports.CounterStore
	rooms     ports.CounterStore
	userRooms ports.CounterStore
	clock     ports.Clock
}

// NewLimiter creates a limiter over the given counter stores.
func NewLimiter(cfg LimiterConfig, deps LimiterDeps) *Limiter {
	return &Limiter{
		cfg:       cfg,
		users:     deps.Users,
		rooms:     deps.Rooms,
		userRooms: deps.UserRooms,
		clock:     deps.Clock,
	}
}

// Check consumes tokens across all applicable scopes.
//
// Scopes are evaluated user first, then user-in-room, then room; the first
// violated scope wins. Consumption on earlier passing scopes is deliberately
// not rolled back when a later scope denies. An empty roomID skips the
// room-bound scopes entirely. tokens <= 0 is an automatic allow with no
// mutation. An empty userID is a programming error: the caller must resolve
// an identity before consulting the limiter.
func (l *Limiter) Check(userID, roomID string, tokens int) ratelimit.Decision {
	if tokens <= 0 {
		return ratelimit.Allow
	}
	if userID == "" {
		panic("limiter: check requires a user identifier")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()

	if l.cfg.PerUser > 0 {
		if decision, denied := l.consume(l.users, userID, l.cfg.PerUser, ratelimit.ScopeUser, tokens, now); denied {
			return decision
		}
	}

	if roomID != "" {
		if l.cfg.PerUserInRoom > 0 {
			key := ratelimit.RoomUserKey(roomID, userID)
			if decision, denied := l.consume(l.userRooms, key, l.cfg.PerUserInRoom, ratelimit.ScopeUserRoom, tokens, now); denied {
				return decision
			}
		}
		if l.cfg.PerRoom > 0 {
			if decision, denied := l.consume(l.rooms, roomID, l.cfg.PerRoom, ratelimit.ScopeRoom, tokens, now); denied {
				return decision
			}
		}
	}

	return ratelimit.Allow
}

func (l *Limiter) consume(store ports.CounterStore, key string, limit int, scope ratelimit.Scope, tokens int, now time.Time) (ratelimit.Decision, bool) {
	state, _ := store.Get(key)
	result, next := ratelimit.Consume(state, limit, l.cfg.Window, tokens, now)
	store.Set(key, next)

	if result.Allowed {
		return ratelimit.Allow, false
	}
	return ratelimit.Decision{
		Allowed:   false,
		Scope:     scope,
		Limit:     limit,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAt,
	}, true
}

// Sweep removes expired counters from every scope and returns the total.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.users.Sweep(now) + l.rooms.Sweep(now) + l.userRooms.Sweep(now)
}

// CounterSizes reports tracked counters per scope, for observability.
func (l *Limiter) CounterSizes() (users, rooms, userRooms int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.users.Len(), l.rooms.Len(), l.userRooms.Len()
}
