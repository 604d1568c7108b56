package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/fabric"
	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/metrics"
	"github.com/reactive-rooms/relay/internal/v1/registry"
	"github.com/reactive-rooms/relay/internal/v1/types"
)

// hostSession owns the room's socket and the host mailbox consumer. One per
// room. When it ends, for any reason, the room ends with it.
type hostSession struct {
	reg  *registry.Registry
	fab  *fabric.Fabric
	conn wsConn

	roomID types.RoomID
	hostID types.UserID

	// Overridable in tests.
	pingPeriod  time.Duration
	pongTimeout time.Duration
	writeWait   time.Duration
}

func newHostSession(reg *registry.Registry, fab *fabric.Fabric, conn wsConn, room types.Room) *hostSession {
	return &hostSession{
		reg:         reg,
		fab:         fab,
		conn:        conn,
		roomID:      room.ID,
		hostID:      room.HostID,
		pingPeriod:  pingPeriod,
		pongTimeout: pongTimeout,
		writeWait:   writeWait,
	}
}

// run drives the session from Serving to Closing and performs teardown.
// It returns only after the socket is closed and the reader pump has exited.
func (s *hostSession) run(ctx context.Context) {
	metrics.IncConnection()
	defer metrics.DecConnection()

	inbox := s.fab.RegisterHost(s.roomID)
	frames := readFrames(s.conn)

	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	// Zero means no ping is outstanding.
	var pongDeadline time.Time

	logging.Info(ctx, "Host session started",
		zap.String("roomId", string(s.roomID)), zap.String("hostId", string(s.hostID)))

	cause := "socket_closed"

serving:
	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				cause = "mailbox_closed"
				break serving
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error(ctx, "Failed to serialize host event", zap.Error(err))
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			werr := s.conn.WriteMessage(websocket.TextMessage, data)
			if msg.Event == types.HostEventDisconnect && msg.UserID == s.hostID {
				// Admin cancel path. The frame is best effort; close either way.
				cause = "disconnected"
				break serving
			}
			if werr != nil {
				logging.Warn(ctx, "Host socket write failed", zap.Error(werr))
				cause = "write_error"
				break serving
			}

		case fr, ok := <-frames:
			if !ok {
				break serving
			}
			switch fr.kind {
			case framePong:
				pongDeadline = time.Time{}
			case frameText:
				s.handleFrame(ctx, fr.data)
			case frameClosed:
				if fr.err != nil && !isExpectedClose(fr.err) {
					logging.Warn(ctx, "Host socket read failed", zap.Error(fr.err))
				}
				break serving
			}

		case <-ticker.C:
			if !pongDeadline.IsZero() && time.Now().After(pongDeadline) {
				logging.Warn(ctx, "Host pong timeout", zap.String("roomId", string(s.roomID)))
				cause = "pong_timeout"
				break serving
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				cause = "ping_error"
				break serving
			}
			pongDeadline = time.Now().Add(s.pongTimeout)
		}
	}

	s.teardown(ctx, cause)

	s.conn.Close()
	for range frames {
		// Drain until the pump exits.
	}
}

// handleFrame routes one inbound text frame from the host.
func (s *hostSession) handleFrame(ctx context.Context, data []byte) {
	f, err := types.ParseHostFrame(data)
	if err != nil {
		logging.Warn(ctx, "Ignoring malformed host frame", zap.Error(err))
		return
	}
	if !s.reg.IsUserInRoom(s.roomID, f.UserID) {
		logging.Warn(ctx, "Host frame addressed a non-member",
			zap.String("roomId", string(s.roomID)), zap.String("userId", string(f.UserID)))
		return
	}

	switch f.Event {
	case types.FrameEventMessage:
		s.fab.SendToUser(f.UserID, s.roomID, types.NewUserMessage(f.UserID, f.Message))
	case types.FrameEventDisconnect:
		s.fab.SendToUser(f.UserID, s.roomID, types.NewUserDisconnect(f.UserID, types.ReasonKicked))
	default:
		logging.Warn(ctx, "Ignoring unknown host event", zap.String("event", f.Event))
	}
}

// teardown closes the room: drop the host mailbox, flush the membership set,
// notify every remaining user, remove the room record. Runs once; every step
// is idempotent against the admin cancel path doing the same work.
func (s *hostSession) teardown(ctx context.Context, cause string) {
	s.fab.UnregisterHost(s.roomID)

	users := s.reg.ClearUsers(s.roomID)
	s.fab.DisconnectRoomUsers(s.roomID, users, types.ReasonRoomClosed)

	s.reg.RemoveRoom(s.roomID)

	metrics.ActiveRooms.Set(float64(s.reg.RoomCount()))
	metrics.RoomMembers.DeleteLabelValues(string(s.roomID))
	metrics.SessionsClosed.WithLabelValues("host", cause).Inc()

	logging.Info(ctx, "Host session closed",
		zap.String("roomId", string(s.roomID)), zap.String("cause", cause),
		zap.Int("disconnectedUsers", len(users)))
}
