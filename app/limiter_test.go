package app_test

import (
	"testing"
	"time"

	"github.com/artpar/socketgate/adapters/clock"
	"github.com/artpar/socketgate/adapters/memory"
	"github.com/artpar/socketgate/app"
	"github.com/artpar/socketgate/domain/ratelimit"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newLimiter(cfg app.LimiterConfig, clk *clock.Fake) *app.Limiter {
	return app.NewLimiter(cfg, app.LimiterDeps{
		Users:     memory.NewCounterStore(),
		Rooms:     memory.NewCounterStore(),
		UserRooms: memory.NewCounterStore(),
		Clock:     clk,
	})
}

func TestCheck_ExactlyLimitPerWindow(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second, PerUser: 3}, clk)

	for i := 0; i < 3; i++ {
		if d := limiter.Check("u1", "", 1); !d.Allowed {
			t.Fatalf("check %d denied, want allowed", i+1)
		}
	}

	d := limiter.Check("u1", "", 1)
	if d.Allowed {
		t.Fatal("4th check allowed, want denied")
	}
	if d.Scope != ratelimit.ScopeUser {
		t.Errorf("scope = %q, want user", d.Scope)
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
	if !d.ResetAt.Equal(baseTime.Add(time.Second)) {
		t.Errorf("resetAt = %v, want %v", d.ResetAt, baseTime.Add(time.Second))
	}
}

func TestCheck_CounterResetsAfterWindow(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second, PerUser: 1}, clk)

	limiter.Check("u1", "", 1)
	if d := limiter.Check("u1", "", 1); d.Allowed {
		t.Fatal("expected exhaustion")
	}

	clk.Advance(time.Second)
	if d := limiter.Check("u1", "", 1); !d.Allowed {
		t.Error("expected fresh counter after window elapsed")
	}
}

func TestCheck_NilRoomSkipsRoomScopes(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{
		Window: time.Second, PerRoom: 1, PerUserInRoom: 1,
	}, clk)

	// No user limit configured and no room: nothing can deny, ever.
	for i := 0; i < 10; i++ {
		if d := limiter.Check("u1", "", 1); !d.Allowed {
			t.Fatal("room scopes must be skipped without a room")
		}
	}
}

func TestCheck_ZeroTokensIsNoOp(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second, PerUser: 1}, clk)

	limiter.Check("u1", "", 0)
	limiter.Check("u1", "", -3)

	// The budget is still untouched.
	if d := limiter.Check("u1", "", 1); !d.Allowed {
		t.Error("non-positive tokens must not consume budget")
	}
}

func TestCheck_UserScopeWinsOverUserRoom(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{
		Window: time.Second, PerUser: 1, PerUserInRoom: 1,
	}, clk)

	limiter.Check("u1", "r1", 1)

	// Both scopes are now exhausted; user is evaluated first.
	d := limiter.Check("u1", "r1", 1)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.Scope != ratelimit.ScopeUser {
		t.Errorf("scope = %q, want user (evaluated first)", d.Scope)
	}
}

func TestCheck_UserRoomBeforeRoom(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{
		Window: time.Second, PerRoom: 1, PerUserInRoom: 1,
	}, clk)

	limiter.Check("u1", "r1", 1)

	d := limiter.Check("u1", "r1", 1)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.Scope != ratelimit.ScopeUserRoom {
		t.Errorf("scope = %q, want user_room before room", d.Scope)
	}
}

func TestCheck_PartialConsumptionNotRolledBack(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{
		Window: time.Second, PerUser: 3, PerUserInRoom: 1,
	}, clk)

	limiter.Check("u1", "r1", 1) // user 1/3, user_room 1/1
	limiter.Check("u1", "r1", 1) // user 2/3, denied at user_room

	// The two denials above still consumed user-scope budget.
	d := limiter.Check("u1", "", 1)
	if !d.Allowed {
		t.Fatal("third user-scope token should still be available")
	}
	if d := limiter.Check("u1", "", 1); d.Allowed {
		t.Error("user budget should be exhausted by earlier passing checks")
	}
}

func TestCheck_ZeroLimitIsUnconstrained(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second}, clk)

	for i := 0; i < 100; i++ {
		if d := limiter.Check("u1", "r1", 1); !d.Allowed {
			t.Fatal("unconfigured scopes must never deny")
		}
	}
}

func TestCheck_EmptyUserPanics(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second, PerUser: 1}, clk)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty user ID")
		}
	}()
	limiter.Check("", "r1", 1)
}

func TestCheck_RoomScopeSharedAcrossUsers(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{Window: time.Second, PerRoom: 2}, clk)

	limiter.Check("u1", "r1", 1)
	limiter.Check("u2", "r1", 1)

	d := limiter.Check("u3", "r1", 1)
	if d.Allowed {
		t.Fatal("room budget is shared across users")
	}
	if d.Scope != ratelimit.ScopeRoom {
		t.Errorf("scope = %q, want room", d.Scope)
	}
}

func TestSweep_RemovesExpiredAcrossScopes(t *testing.T) {
	clk := clock.NewFake(baseTime)
	limiter := newLimiter(app.LimiterConfig{
		Window: time.Second, PerUser: 10, PerRoom: 10, PerUserInRoom: 10,
	}, clk)

	limiter.Check("u1", "r1", 1)

	users, rooms, userRooms := limiter.CounterSizes()
	if users != 1 || rooms != 1 || userRooms != 1 {
		t.Fatalf("sizes = %d/%d/%d, want 1/1/1", users, rooms, userRooms)
	}

	clk.Advance(2 * time.Second)
	if removed := limiter.Sweep(clk.Now()); removed != 3 {
		t.Errorf("swept = %d, want 3", removed)
	}
}
