// Package presence provides pure room membership bookkeeping for a single
// namespace. Not safe for concurrent use; callers serialize access.
package presence

// Event is the payload broadcast whenever a room's occupancy changes.
type Event struct {
	Namespace string `json:"namespace"`
	RoomID    string `json:"roomId"`
	Count     int    `json:"count"`
}

// Rooms tracks which sockets occupy which rooms, plus the reverse index used
// for idempotent joins and disconnect teardown.
type Rooms struct {
	members map[string]map[string]struct{} // roomID -> socketIDs
	joined  map[string]map[string]struct{} // socketID -> roomIDs
}

// NewRooms creates an empty membership map.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds the socket to the room. Returns false if it was already a member.
func (r *Rooms) Join(roomID, socketID string) bool {
	joined := r.joined[socketID]
	if joined == nil {
		joined = make(map[string]struct{})
		r.joined[socketID] = joined
	}
	if _, ok := joined[roomID]; ok {
		return false
	}
	joined[roomID] = struct{}{}

	members := r.members[roomID]
	if members == nil {
		members = make(map[string]struct{})
		r.members[roomID] = members
	}
	members[socketID] = struct{}{}
	return true
}

// Leave removes the socket from the room, deleting the room entry once empty.
// Returns false if the socket was not a member.
func (r *Rooms) Leave(roomID, socketID string) bool {
	joined := r.joined[socketID]
	if joined == nil {
		return false
	}
	if _, ok := joined[roomID]; !ok {
		return false
	}
	delete(joined, roomID)
	if len(joined) == 0 {
		delete(r.joined, socketID)
	}

	if members := r.members[roomID]; members != nil {
		delete(members, socketID)
		if len(members) == 0 {
			delete(r.members, roomID)
		}
	}
	return true
}

// Count returns the current occupancy of a room.
func (r *Rooms) Count(roomID string) int {
	return len(r.members[roomID])
}

// Members returns the socket IDs currently in a room.
func (r *Rooms) Members(roomID string) []string {
	members := r.members[roomID]
	out := make([]string, 0, len(members))
	for socketID := range members {
		out = append(out, socketID)
	}
	return out
}

// JoinedRooms returns the rooms the socket currently occupies.
func (r *Rooms) JoinedRooms(socketID string) []string {
	joined := r.joined[socketID]
	out := make([]string, 0, len(joined))
	for roomID := range joined {
		out = append(out, roomID)
	}
	return out
}

// Occupancy returns a snapshot of every tracked room and its count.
func (r *Rooms) Occupancy() map[string]int {
	out := make(map[string]int, len(r.members))
	for roomID, members := range r.members {
		out[roomID] = len(members)
	}
	return out
}

// RoomCount returns how many rooms currently have members.
func (r *Rooms) RoomCount() int {
	return len(r.members)
}
