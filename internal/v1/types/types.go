// Package types defines the core domain vocabulary shared across the relay:
// room and user identifiers, the directed event enums, and the message
// envelopes that travel between sessions through the mailbox fabric.
package types

import (
	"github.com/google/uuid"
)

// RoomID is the unique identifier of a room. It is always a UUIDv4 in its
// canonical string form.
type RoomID string

// UserID is an opaque identifier supplied by the identity provider.
type UserID string

// RoomType is an opaque, application-defined room category (e.g. "chess").
type RoomType string

// NewRoomID mints a fresh random RoomID.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

// ParseRoomID validates that s is a well-formed UUID and returns it in
// canonical form.
func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RoomID(id.String()), nil
}

// Room is the registry record for a live room. Immutable after creation.
type Room struct {
	ID       RoomID
	HostID   UserID
	RoomType RoomType
}

// NewRoom creates a room record with a fresh RoomID.
func NewRoom(hostID UserID, roomType RoomType) Room {
	return Room{
		ID:       NewRoomID(),
		HostID:   hostID,
		RoomType: roomType,
	}
}

// IsHost reports whether id is the room's designated host. Comparison is
// literal string equality against the principal subject.
func (r Room) IsHost(id UserID) bool {
	return r.HostID == id
}
