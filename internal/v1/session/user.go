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

// userSession owns one joined user's socket and mailbox consumer.
type userSession struct {
	reg  *registry.Registry
	fab  *fabric.Fabric
	conn wsConn

	roomID types.RoomID
	userID types.UserID

	// Overridable in tests.
	pingPeriod  time.Duration
	pongTimeout time.Duration
	writeWait   time.Duration
}

func newUserSession(reg *registry.Registry, fab *fabric.Fabric, conn wsConn, roomID types.RoomID, userID types.UserID) *userSession {
	return &userSession{
		reg:         reg,
		fab:         fab,
		conn:        conn,
		roomID:      roomID,
		userID:      userID,
		pingPeriod:  pingPeriod,
		pongTimeout: pongTimeout,
		writeWait:   writeWait,
	}
}

// run joins the room, drives the session from Joined to Closing, and performs
// teardown. It returns only after the socket is closed and the reader pump
// has exited.
func (s *userSession) run(ctx context.Context) {
	metrics.IncConnection()
	defer metrics.DecConnection()

	s.reg.AddUser(s.roomID, s.userID)
	metrics.RoomMembers.WithLabelValues(string(s.roomID)).Set(float64(s.reg.UserCount(s.roomID)))

	// Registering displaces any prior session under the same key with
	// Disconnect(NewConnection).
	inbox := s.fab.RegisterUser(s.userID, s.roomID)
	s.fab.SendToHost(s.roomID, types.NewJoinRoom(s.userID))

	frames := readFrames(s.conn)

	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	var pongDeadline time.Time

	logging.Info(ctx, "User session started",
		zap.String("roomId", string(s.roomID)), zap.String("userId", string(s.userID)))

	cause := "socket_closed"

joined:
	for {
		select {
		case msg, ok := <-inbox:
			if !ok {
				cause = "mailbox_closed"
				break joined
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error(ctx, "Failed to serialize user event", zap.Error(err))
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if werr := s.conn.WriteMessage(websocket.TextMessage, data); werr != nil {
				// Best effort; a dead socket surfaces through the reader pump.
				logging.Warn(ctx, "User socket write failed", zap.Error(werr))
			}
			if msg.Event == types.UserEventDisconnect {
				cause = "disconnected"
				break joined
			}

		case fr, ok := <-frames:
			if !ok {
				break joined
			}
			switch fr.kind {
			case framePong:
				pongDeadline = time.Time{}
			case frameText:
				s.handleFrame(ctx, fr.data)
			case frameClosed:
				if fr.err != nil && !isExpectedClose(fr.err) {
					logging.Warn(ctx, "User socket read failed", zap.Error(fr.err))
				}
				break joined
			}

		case <-ticker.C:
			if !pongDeadline.IsZero() && time.Now().After(pongDeadline) {
				logging.Warn(ctx, "User pong timeout",
					zap.String("roomId", string(s.roomID)), zap.String("userId", string(s.userID)))
				cause = "pong_timeout"
				break joined
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				cause = "ping_error"
				break joined
			}
			pongDeadline = time.Now().Add(s.pongTimeout)
		}
	}

	s.teardown(ctx, cause)

	s.conn.Close()
	for range frames {
	}
}

// handleFrame routes one inbound text frame from the user.
func (s *userSession) handleFrame(ctx context.Context, data []byte) {
	f, err := types.ParseUserFrame(data)
	if err != nil {
		logging.Warn(ctx, "Ignoring malformed user frame", zap.Error(err))
		return
	}
	if f.Event != types.FrameEventMessage {
		logging.Warn(ctx, "Ignoring unknown user event", zap.String("event", f.Event))
		return
	}
	s.fab.SendToHost(s.roomID, types.NewHostMessage(s.userID, f.Message))
}

// teardown leaves the room and tells the host. Runs once.
func (s *userSession) teardown(ctx context.Context, cause string) {
	s.reg.RemoveUser(s.roomID, s.userID)
	metrics.RoomMembers.WithLabelValues(string(s.roomID)).Set(float64(s.reg.UserCount(s.roomID)))

	s.fab.UnregisterUser(s.userID, s.roomID)
	s.fab.SendToHost(s.roomID, types.NewLeaveRoom(s.userID))

	metrics.SessionsClosed.WithLabelValues("user", cause).Inc()

	logging.Info(ctx, "User session closed",
		zap.String("roomId", string(s.roomID)), zap.String("userId", string(s.userID)),
		zap.String("cause", cause))
}
