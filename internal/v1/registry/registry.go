// Package registry holds the process-local room and membership state.
//
// The registry exclusively owns room records and per-room membership sets.
// Rooms and memberships live in two independently locked maps; no operation
// ever holds both locks, so callers must tolerate the window where a room
// record is gone while its membership set still exists (or vice versa). A
// missing membership set reads as empty.
package registry

import (
	"errors"
	"sync"

	"github.com/reactive-rooms/relay/internal/v1/types"
)

// ErrRoomExists is returned by CreateRoom when the id is already taken.
// Practically unreachable with UUIDv4 ids, but the check is mandatory.
var ErrRoomExists = errors.New("room already exists")

// Registry is safe for concurrent use. No operation blocks on I/O.
type Registry struct {
	roomsMu sync.RWMutex
	rooms   map[types.RoomID]types.Room

	membersMu sync.RWMutex
	members   map[types.RoomID]map[types.UserID]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		rooms:   make(map[types.RoomID]types.Room),
		members: make(map[types.RoomID]map[types.UserID]struct{}),
	}
}

// CreateRoom inserts the room record and an empty membership set.
func (r *Registry) CreateRoom(room types.Room) error {
	r.roomsMu.Lock()
	if _, exists := r.rooms[room.ID]; exists {
		r.roomsMu.Unlock()
		return ErrRoomExists
	}
	r.rooms[room.ID] = room
	r.roomsMu.Unlock()

	r.membersMu.Lock()
	if _, exists := r.members[room.ID]; !exists {
		r.members[room.ID] = make(map[types.UserID]struct{})
	}
	r.membersMu.Unlock()
	return nil
}

// GetRoom returns a snapshot copy of the room record.
func (r *Registry) GetRoom(roomID types.RoomID) (types.Room, bool) {
	r.roomsMu.RLock()
	defer r.roomsMu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// RemoveRoom deletes the room record and its membership set. Idempotent.
func (r *Registry) RemoveRoom(roomID types.RoomID) (types.Room, bool) {
	r.roomsMu.Lock()
	room, ok := r.rooms[roomID]
	delete(r.rooms, roomID)
	r.roomsMu.Unlock()

	r.membersMu.Lock()
	delete(r.members, roomID)
	r.membersMu.Unlock()
	return room, ok
}

// RoomCount returns the current number of rooms.
func (r *Registry) RoomCount() int {
	r.roomsMu.RLock()
	defer r.roomsMu.RUnlock()
	return len(r.rooms)
}

// RoomsPaginated returns the [page*size, page*size+size) window of a single
// snapshot plus the total room count at snapshot time. Ordering is
// unspecified but stable within one call. Size bounds are enforced upstream.
func (r *Registry) RoomsPaginated(page, size int) ([]types.Room, int) {
	r.roomsMu.RLock()
	all := make([]types.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		all = append(all, room)
	}
	r.roomsMu.RUnlock()

	total := len(all)
	start := page * size
	if start >= total {
		return []types.Room{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total
}

// AddUser adds the user to the room's membership set. Returns true only if
// the user was newly added; false when the room is missing or the user was
// already a member.
func (r *Registry) AddUser(roomID types.RoomID, userID types.UserID) bool {
	r.membersMu.Lock()
	defer r.membersMu.Unlock()
	users, ok := r.members[roomID]
	if !ok {
		return false
	}
	if _, present := users[userID]; present {
		return false
	}
	users[userID] = struct{}{}
	return true
}

// RemoveUser removes the user from the room. No-op if either is missing.
func (r *Registry) RemoveUser(roomID types.RoomID, userID types.UserID) {
	r.membersMu.Lock()
	defer r.membersMu.Unlock()
	if users, ok := r.members[roomID]; ok {
		delete(users, userID)
	}
}

// IsUserInRoom reports current membership.
func (r *Registry) IsUserInRoom(roomID types.RoomID, userID types.UserID) bool {
	r.membersMu.RLock()
	defer r.membersMu.RUnlock()
	users, ok := r.members[roomID]
	if !ok {
		return false
	}
	_, present := users[userID]
	return present
}

// UserCount returns the number of joined users; 0 for a missing room.
func (r *Registry) UserCount(roomID types.RoomID) int {
	r.membersMu.RLock()
	defer r.membersMu.RUnlock()
	return len(r.members[roomID])
}

// Users returns a snapshot copy of the room's membership.
func (r *Registry) Users(roomID types.RoomID) []types.UserID {
	r.membersMu.RLock()
	defer r.membersMu.RUnlock()
	users := r.members[roomID]
	out := make([]types.UserID, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	return out
}

// ClearUsers atomically empties the membership set and returns the prior
// members. Returns nil for a missing room.
func (r *Registry) ClearUsers(roomID types.RoomID) []types.UserID {
	r.membersMu.Lock()
	defer r.membersMu.Unlock()
	users, ok := r.members[roomID]
	if !ok {
		return nil
	}
	out := make([]types.UserID, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	r.members[roomID] = make(map[types.UserID]struct{})
	return out
}
