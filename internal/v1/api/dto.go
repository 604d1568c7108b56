package api

import "github.com/reactive-rooms/relay/internal/v1/types"

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	Type   types.RoomType `json:"type" binding:"required"`
	HostID types.UserID   `json:"hostId" binding:"required"`
}

// CreateRoomResponse is the body of a successful room creation.
type CreateRoomResponse struct {
	RoomID types.RoomID `json:"roomId"`
}

// RoomSummary is one row of the room listing.
type RoomSummary struct {
	RoomID      types.RoomID   `json:"roomId"`
	HostID      types.UserID   `json:"hostId"`
	Type        types.RoomType `json:"type"`
	PlayerCount int            `json:"playerCount"`
}

// RoomsPage is the body of GET /api/rooms.
type RoomsPage struct {
	Rooms      []RoomSummary `json:"rooms"`
	TotalRooms int           `json:"totalRooms"`
	Page       int           `json:"page"`
	Size       int           `json:"size"`
}
