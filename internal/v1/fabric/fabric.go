// Package fabric routes messages between a room's host session and its user
// sessions through bounded, lossy mailboxes.
//
// Delivery is at-most-once and strictly non-blocking: a full or missing
// mailbox drops the message silently. A slow consumer can therefore never
// apply backpressure to an unrelated sender.
package fabric

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/metrics"
	"github.com/reactive-rooms/relay/internal/v1/types"
)

type userKey struct {
	User types.UserID
	Room types.RoomID
}

// Fabric owns all producer handles. Each Register* call hands the caller the
// matching consumer end; the caller owns it until its session terminates.
type Fabric struct {
	hostsMu sync.RWMutex
	hosts   map[types.RoomID]*mailbox[types.ToHostMessage]

	usersMu sync.RWMutex
	users   map[userKey]*mailbox[types.ToUserMessage]
}

// New returns an empty fabric.
func New() *Fabric {
	return &Fabric{
		hosts: make(map[types.RoomID]*mailbox[types.ToHostMessage]),
		users: make(map[userKey]*mailbox[types.ToUserMessage]),
	}
}

// RegisterHost creates the room's host mailbox and returns its consumer end.
// A pre-existing mailbox under the same room is closed and overwritten; its
// consumer observes channel closure and terminates.
func (f *Fabric) RegisterHost(roomID types.RoomID) <-chan types.ToHostMessage {
	mb := newMailbox[types.ToHostMessage]()

	f.hostsMu.Lock()
	old := f.hosts[roomID]
	f.hosts[roomID] = mb
	f.hostsMu.Unlock()

	if old != nil {
		old.Close()
	}
	return mb.ch
}

// UnregisterHost drops the room's host mailbox. Any still-alive consumer
// observes channel closure. Idempotent.
func (f *Fabric) UnregisterHost(roomID types.RoomID) {
	f.hostsMu.Lock()
	mb := f.hosts[roomID]
	delete(f.hosts, roomID)
	f.hostsMu.Unlock()

	if mb != nil {
		mb.Close()
	}
}

// SendToHost delivers msg into the room's host mailbox, best effort.
func (f *Fabric) SendToHost(roomID types.RoomID, msg types.ToHostMessage) {
	f.hostsMu.RLock()
	mb := f.hosts[roomID]
	f.hostsMu.RUnlock()

	if mb == nil || !mb.TrySend(msg) {
		metrics.MessagesDropped.WithLabelValues("to_host").Inc()
		return
	}
	metrics.MessagesRelayed.WithLabelValues("to_host").Inc()
}

// RegisterUser creates the mailbox for (userID, roomID) and returns its
// consumer end. If a mailbox already existed under that key, the fabric first
// enqueues Disconnect(NewConnection) into it on a best-effort basis, then
// closes it; the displaced session converges either way.
func (f *Fabric) RegisterUser(userID types.UserID, roomID types.RoomID) <-chan types.ToUserMessage {
	key := userKey{User: userID, Room: roomID}
	mb := newMailbox[types.ToUserMessage]()

	f.usersMu.Lock()
	old := f.users[key]
	f.users[key] = mb
	f.usersMu.Unlock()

	if old != nil {
		if !old.TrySend(types.NewUserDisconnect(userID, types.ReasonNewConnection)) {
			logging.Warn(context.Background(), "Displacement notice dropped, old mailbox full",
				zap.String("userId", string(userID)), zap.String("roomId", string(roomID)))
		}
		old.Close()
	}
	return mb.ch
}

// UnregisterUser drops the (userID, roomID) mailbox. Idempotent.
func (f *Fabric) UnregisterUser(userID types.UserID, roomID types.RoomID) {
	key := userKey{User: userID, Room: roomID}

	f.usersMu.Lock()
	mb := f.users[key]
	delete(f.users, key)
	f.usersMu.Unlock()

	if mb != nil {
		mb.Close()
	}
}

// SendToUser delivers msg into the (userID, roomID) mailbox, best effort.
func (f *Fabric) SendToUser(userID types.UserID, roomID types.RoomID, msg types.ToUserMessage) {
	f.usersMu.RLock()
	mb := f.users[userKey{User: userID, Room: roomID}]
	f.usersMu.RUnlock()

	if mb == nil || !mb.TrySend(msg) {
		metrics.MessagesDropped.WithLabelValues("to_user").Inc()
		return
	}
	metrics.MessagesRelayed.WithLabelValues("to_user").Inc()
}

// DisconnectRoomUsers enqueues Disconnect(reason) to every listed user.
func (f *Fabric) DisconnectRoomUsers(roomID types.RoomID, userIDs []types.UserID, reason types.DisconnectReason) {
	for _, userID := range userIDs {
		f.SendToUser(userID, roomID, types.NewUserDisconnect(userID, reason))
	}
}

// DisconnectHost enqueues the host-addressed Disconnect(reason) event.
func (f *Fabric) DisconnectHost(roomID types.RoomID, hostID types.UserID, reason types.DisconnectReason) {
	f.SendToHost(roomID, types.NewHostDisconnect(hostID, reason))
}

// Idle reports whether no mailboxes remain. Used by graceful shutdown to
// observe session drain.
func (f *Fabric) Idle() bool {
	f.hostsMu.RLock()
	nHosts := len(f.hosts)
	f.hostsMu.RUnlock()

	f.usersMu.RLock()
	nUsers := len(f.users)
	f.usersMu.RUnlock()

	return nHosts == 0 && nUsers == 0
}
