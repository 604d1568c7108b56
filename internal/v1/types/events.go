package types

import "encoding/json"

// ToHostEvent enumerates server-emitted events on a host socket.
type ToHostEvent string

const (
	HostEventJoinRoom   ToHostEvent = "JoinRoom"
	HostEventLeaveRoom  ToHostEvent = "LeaveRoom"
	HostEventMessage    ToHostEvent = "Message"
	HostEventDisconnect ToHostEvent = "Disconnect"
)

// ToUserEvent enumerates server-emitted events on a user socket.
type ToUserEvent string

const (
	UserEventMessage    ToUserEvent = "Message"
	UserEventDisconnect ToUserEvent = "Disconnect"
)

// DisconnectReason explains why a session is being closed.
type DisconnectReason string

const (
	ReasonKicked        DisconnectReason = "Kicked"
	ReasonRoomClosed    DisconnectReason = "RoomClosed"
	ReasonUserClosed    DisconnectReason = "UserClosed"
	ReasonNewConnection DisconnectReason = "NewConnection"
	ReasonPingPong      DisconnectReason = "PingPong"
)

// DisconnectPayload is the "message" body of a Disconnect event.
type DisconnectPayload struct {
	Reason DisconnectReason `json:"reason"`
}

// ToHostMessage is the envelope delivered into a host mailbox and serialized
// onto the host socket as a JSON text frame.
type ToHostMessage struct {
	Event   ToHostEvent     `json:"event"`
	UserID  UserID          `json:"userId"`
	Message json.RawMessage `json:"message,omitempty"`
}

// ToUserMessage is the envelope delivered into a user mailbox and serialized
// onto the user socket as a JSON text frame.
type ToUserMessage struct {
	Event   ToUserEvent     `json:"event"`
	UserID  UserID          `json:"userId"`
	Message json.RawMessage `json:"message,omitempty"`
}

// NewJoinRoom announces a user joining to the room's host.
func NewJoinRoom(userID UserID) ToHostMessage {
	return ToHostMessage{Event: HostEventJoinRoom, UserID: userID}
}

// NewLeaveRoom announces a user leaving to the room's host.
func NewLeaveRoom(userID UserID) ToHostMessage {
	return ToHostMessage{Event: HostEventLeaveRoom, UserID: userID}
}

// NewHostMessage wraps a user payload for delivery to the host.
func NewHostMessage(userID UserID, payload json.RawMessage) ToHostMessage {
	return ToHostMessage{Event: HostEventMessage, UserID: userID, Message: payload}
}

// NewHostDisconnect builds the host-addressed disconnect signal.
func NewHostDisconnect(userID UserID, reason DisconnectReason) ToHostMessage {
	return ToHostMessage{Event: HostEventDisconnect, UserID: userID, Message: reasonPayload(reason)}
}

// NewUserMessage wraps a host payload for delivery to a user.
func NewUserMessage(userID UserID, payload json.RawMessage) ToUserMessage {
	return ToUserMessage{Event: UserEventMessage, UserID: userID, Message: payload}
}

// NewUserDisconnect builds the disconnect signal for a user session.
func NewUserDisconnect(userID UserID, reason DisconnectReason) ToUserMessage {
	return ToUserMessage{Event: UserEventDisconnect, UserID: userID, Message: reasonPayload(reason)}
}

func reasonPayload(reason DisconnectReason) json.RawMessage {
	// DisconnectPayload marshaling cannot fail.
	b, _ := json.Marshal(DisconnectPayload{Reason: reason})
	return b
}
