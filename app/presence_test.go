package app_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/app"
	"github.com/artpar/socketgate/domain/presence"
)

type fakeSocket struct {
	id     string
	frames []frame
}

type frame struct {
	event string
	data  any
}

func (f *fakeSocket) ID() string { return f.id }

func (f *fakeSocket) Send(event string, data any) error {
	f.frames = append(f.frames, frame{event: event, data: data})
	return nil
}

func (f *fakeSocket) presenceFrames() []presence.Event {
	var out []presence.Event
	for _, fr := range f.frames {
		if fr.event == "presence" {
			out = append(out, fr.data.(presence.Event))
		}
	}
	return out
}

func newPresence() *app.Presence {
	return app.NewPresence("pods", zerolog.Nop())
}

func TestConnect_HandshakeAutoJoinAndSnapshot(t *testing.T) {
	p := newPresence()

	s1 := &fakeSocket{id: "s1"}
	p.Connect(s1, []string{"r1"})

	s2 := &fakeSocket{id: "s2"}
	p.Connect(s2, []string{"r2"})

	// s2's snapshot covers every room in the namespace, not just its own.
	events := s2.presenceFrames()
	counts := map[string]int{}
	for _, ev := range events {
		if ev.Namespace != "pods" {
			t.Errorf("namespace = %q, want pods", ev.Namespace)
		}
		counts[ev.RoomID] = ev.Count
	}
	if counts["r1"] != 1 || counts["r2"] != 1 {
		t.Errorf("snapshot counts = %v, want r1:1 r2:1", counts)
	}
}

func TestJoin_IdempotentCountsOnce(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	p.Connect(s1, nil)

	p.Join("s1", []string{"r1"})
	p.Join("s1", []string{"r1"})

	if got := p.Count("r1"); got != 1 {
		t.Errorf("count = %d, want 1 after duplicate join", got)
	}
	// One broadcast for the real join, none for the duplicate.
	if got := len(s1.presenceFrames()); got != 1 {
		t.Errorf("presence frames = %d, want 1", got)
	}
}

func TestJoin_BroadcastsToAllMembersIncludingActor(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	s2 := &fakeSocket{id: "s2"}
	p.Connect(s1, nil)
	p.Connect(s2, nil)

	p.Join("s1", []string{"r1"})
	p.Join("s2", []string{"r1"})

	// s1 saw its own join (count 1) and s2's join (count 2).
	got := s1.presenceFrames()
	if len(got) != 2 || got[0].Count != 1 || got[1].Count != 2 {
		t.Errorf("s1 frames = %+v, want counts [1 2]", got)
	}
	// The acting socket also received the second broadcast.
	s2Frames := s2.presenceFrames()
	if len(s2Frames) != 1 || s2Frames[0].Count != 2 {
		t.Errorf("s2 frames = %+v, want count [2]", s2Frames)
	}
}

func TestLeave_NeverJoinedIsSilent(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	p.Connect(s1, nil)

	p.Leave("s1", []string{"r1"})

	if got := len(s1.presenceFrames()); got != 0 {
		t.Errorf("presence frames = %d, want 0 for no-op leave", got)
	}
}

func TestDisconnect_BroadcastsPerRoom(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	s2 := &fakeSocket{id: "s2"}
	p.Connect(s1, []string{"r1", "r2"})
	p.Connect(s2, []string{"r1", "r2"})

	s2.frames = nil
	p.Disconnect("s1")

	// One decremented broadcast per vacated room, delivered to the remaining
	// member.
	events := s2.presenceFrames()
	if len(events) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(events))
	}
	seen := map[string]int{}
	for _, ev := range events {
		seen[ev.RoomID] = ev.Count
	}
	if seen["r1"] != 1 || seen["r2"] != 1 {
		t.Errorf("counts = %v, want r1:1 r2:1", seen)
	}
	if got := p.RoomCount(); got != 2 {
		t.Errorf("rooms tracked = %d, want 2", got)
	}
}

func TestDisconnect_LastMemberDeletesRooms(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	p.Connect(s1, []string{"r1"})

	p.Disconnect("s1")

	if got := p.RoomCount(); got != 0 {
		t.Errorf("rooms tracked = %d, want 0", got)
	}
}

func TestPublish_DeliversToRoomMembersExceptSender(t *testing.T) {
	p := newPresence()
	s1 := &fakeSocket{id: "s1"}
	s2 := &fakeSocket{id: "s2"}
	s3 := &fakeSocket{id: "s3"}
	p.Connect(s1, []string{"r1"})
	p.Connect(s2, []string{"r1"})
	p.Connect(s3, []string{"r2"})

	delivered := p.Publish("s1", "chat:message", []string{"r1"}, map[string]any{"text": "hi"})

	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
	var chats int
	for _, fr := range s2.frames {
		if fr.event == "chat:message" {
			chats++
		}
	}
	if chats != 1 {
		t.Errorf("s2 chat frames = %d, want 1", chats)
	}
	for _, fr := range s3.frames {
		if fr.event == "chat:message" {
			t.Error("s3 is not in r1 and must not receive the event")
		}
	}
	for _, fr := range s1.frames {
		if fr.event == "chat:message" {
			t.Error("sender must not receive its own publish")
		}
	}
}

func TestNamespaces_Isolated(t *testing.T) {
	pods := app.NewPresence("pods", zerolog.Nop())
	guilds := app.NewPresence("guilds", zerolog.Nop())

	s1 := &fakeSocket{id: "s1"}
	pods.Connect(s1, []string{"r1"})

	if got := guilds.Count("r1"); got != 0 {
		t.Errorf("guilds count = %d, want 0 (no cross-namespace leakage)", got)
	}
}
