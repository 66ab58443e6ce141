package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/domain/presence"
	"github.com/artpar/socketgate/ports"
)

// Presence maintains live room membership for one namespace and keeps every
// room's members informed of occupancy changes.
//
// Sends happen while the membership lock is held so that broadcast counts are
// always consistent with the map; ports.Sender implementations must therefore
// never block.
type Presence struct {
	namespace string
	logger    zerolog.Logger

	mu      sync.Mutex
	rooms   *presence.Rooms
	senders map[string]ports.Sender
}

// NewPresence creates the presence controller for a namespace.
func NewPresence(namespace string, logger zerolog.Logger) *Presence {
	return &Presence{
		namespace: namespace,
		logger:    logger,
		rooms:     presence.NewRooms(),
		senders:   make(map[string]ports.Sender),
	}
}

// Connect registers a socket, auto-joins any rooms carried by its handshake,
// and sends the socket a private snapshot covering every room currently
// tracked in the namespace.
func (p *Presence) Connect(s ports.Sender, handshakeRooms []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.senders[s.ID()] = s
	for _, roomID := range handshakeRooms {
		p.joinLocked(s.ID(), roomID)
	}

	// Snapshot spans the whole namespace, not just the socket's own rooms.
	for roomID, count := range p.rooms.Occupancy() {
		_ = s.Send("presence", presence.Event{
			Namespace: p.namespace,
			RoomID:    roomID,
			Count:     count,
		})
	}
}

// Join adds the socket to the given rooms. Joining an occupied room again is
// a no-op and triggers no broadcast.
func (p *Presence) Join(socketID string, roomIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, roomID := range roomIDs {
		p.joinLocked(socketID, roomID)
	}
}

// Leave removes the socket from the given rooms. Leaving a room the socket
// never joined is a no-op and triggers no broadcast.
func (p *Presence) Leave(socketID string, roomIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, roomID := range roomIDs {
		p.leaveLocked(socketID, roomID)
	}
}

// Disconnect removes the socket from every room it occupies, broadcasting one
// presence update per affected room, and forgets the socket.
func (p *Presence) Disconnect(socketID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, roomID := range p.rooms.JoinedRooms(socketID) {
		p.leaveLocked(socketID, roomID)
	}
	delete(p.senders, socketID)
}

// Publish forwards an event to every member of each room except the sender.
// Returns the number of sockets the event was delivered to.
func (p *Presence) Publish(fromSocketID, event string, roomIDs []string, data any) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	delivered := 0
	for _, roomID := range roomIDs {
		for _, socketID := range p.rooms.Members(roomID) {
			if socketID == fromSocketID {
				continue
			}
			if s := p.senders[socketID]; s != nil {
				if err := s.Send(event, data); err == nil {
					delivered++
				}
			}
		}
	}
	return delivered
}

// RoomCount returns how many rooms currently have members.
func (p *Presence) RoomCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms.RoomCount()
}

// Count returns the occupancy of one room.
func (p *Presence) Count(roomID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms.Count(roomID)
}

func (p *Presence) joinLocked(socketID, roomID string) {
	if roomID == "" || !p.rooms.Join(roomID, socketID) {
		return
	}
	p.logger.Debug().
		Str("namespace", p.namespace).
		Str("room", roomID).
		Str("socket", socketID).
		Msg("socket joined room")
	p.broadcastLocked(roomID)
}

func (p *Presence) leaveLocked(socketID, roomID string) {
	if !p.rooms.Leave(roomID, socketID) {
		return
	}
	p.logger.Debug().
		Str("namespace", p.namespace).
		Str("room", roomID).
		Str("socket", socketID).
		Msg("socket left room")
	p.broadcastLocked(roomID)
}

// broadcastLocked sends the room's current occupancy to all of its members.
func (p *Presence) broadcastLocked(roomID string) {
	event := presence.Event{
		Namespace: p.namespace,
		RoomID:    roomID,
		Count:     p.rooms.Count(roomID),
	}
	for _, socketID := range p.rooms.Members(roomID) {
		if s := p.senders[socketID]; s != nil {
			_ = s.Send("presence", event)
		}
	}
}
