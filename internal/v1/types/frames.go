package types

import "encoding/json"

// Client-chosen event names on inbound text frames.
const (
	FrameEventMessage    = "MESSAGE"
	FrameEventDisconnect = "DISCONNECT"
)

// HostFrame is the shape of a text frame received on a host socket.
// "message" is forwarded verbatim; the relay never inspects it.
type HostFrame struct {
	Event   string          `json:"event"`
	UserID  UserID          `json:"userId"`
	Message json.RawMessage `json:"message"`
}

// UserFrame is the shape of a text frame received on a user socket.
type UserFrame struct {
	Event   string          `json:"event"`
	Message json.RawMessage `json:"message"`
}

// ParseHostFrame decodes an inbound host frame.
func ParseHostFrame(data []byte) (HostFrame, error) {
	var f HostFrame
	err := json.Unmarshal(data, &f)
	return f, err
}

// ParseUserFrame decodes an inbound user frame.
func ParseUserFrame(data []byte) (UserFrame, error) {
	var f UserFrame
	err := json.Unmarshal(data, &f)
	return f, err
}
