package fabric

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactive-rooms/relay/internal/v1/types"
)

func TestMailboxTrySend(t *testing.T) {
	mb := newMailbox[int]()

	for i := 0; i < MailboxCapacity; i++ {
		require.True(t, mb.TrySend(i))
	}
	assert.False(t, mb.TrySend(999), "full mailbox rejects without blocking")

	assert.Equal(t, 0, <-mb.ch)
	assert.True(t, mb.TrySend(999), "draining frees capacity")
}

func TestMailboxClose(t *testing.T) {
	mb := newMailbox[int]()
	require.True(t, mb.TrySend(1))

	mb.Close()
	mb.Close() // idempotent

	assert.False(t, mb.TrySend(2), "send after close is rejected, not a panic")

	// Buffered messages drain before closure is observed.
	v, open := <-mb.ch
	assert.True(t, open)
	assert.Equal(t, 1, v)
	_, open = <-mb.ch
	assert.False(t, open)
}

func TestHostMailboxLifecycle(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()

	inbox := fab.RegisterHost(roomID)
	fab.SendToHost(roomID, types.NewJoinRoom("bob"))

	msg := <-inbox
	assert.Equal(t, types.HostEventJoinRoom, msg.Event)
	assert.Equal(t, types.UserID("bob"), msg.UserID)

	fab.UnregisterHost(roomID)
	_, open := <-inbox
	assert.False(t, open, "consumer observes closure after unregister")

	// Sends to a missing mailbox are silently dropped.
	fab.SendToHost(roomID, types.NewJoinRoom("carol"))
	assert.True(t, fab.Idle())
}

func TestRegisterHostOverwrites(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()

	first := fab.RegisterHost(roomID)
	second := fab.RegisterHost(roomID)

	_, open := <-first
	assert.False(t, open, "overwritten consumer observes closure")

	fab.SendToHost(roomID, types.NewJoinRoom("bob"))
	msg := <-second
	assert.Equal(t, types.UserID("bob"), msg.UserID)
}

func TestUserMailboxLifecycle(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()

	inbox := fab.RegisterUser("bob", roomID)
	fab.SendToUser("bob", roomID, types.NewUserMessage("bob", json.RawMessage(`"hi"`)))

	msg := <-inbox
	assert.Equal(t, types.UserEventMessage, msg.Event)

	// Same user in a different room is a distinct mailbox.
	fab.SendToUser("bob", "other-room", types.NewUserMessage("bob", json.RawMessage(`"nope"`)))
	assert.Empty(t, inbox)

	fab.UnregisterUser("bob", roomID)
	_, open := <-inbox
	assert.False(t, open)
	assert.True(t, fab.Idle())
}

func TestRegisterUserDisplacement(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()

	old := fab.RegisterUser("bob", roomID)
	replacement := fab.RegisterUser("bob", roomID)

	// The displaced consumer receives the notice, then closure.
	msg, open := <-old
	require.True(t, open)
	assert.Equal(t, types.UserEventDisconnect, msg.Event)
	assert.Contains(t, string(msg.Message), string(types.ReasonNewConnection))
	_, open = <-old
	assert.False(t, open)

	fab.SendToUser("bob", roomID, types.NewUserMessage("bob", json.RawMessage(`"hi"`)))
	got := <-replacement
	assert.Equal(t, types.UserEventMessage, got.Event)
}

func TestDisconnectFanout(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()

	bob := fab.RegisterUser("bob", roomID)
	carol := fab.RegisterUser("carol", roomID)
	host := fab.RegisterHost(roomID)

	fab.DisconnectRoomUsers(roomID, []types.UserID{"bob", "carol"}, types.ReasonRoomClosed)
	fab.DisconnectHost(roomID, "alice", types.ReasonRoomClosed)

	for _, inbox := range []<-chan types.ToUserMessage{bob, carol} {
		msg := <-inbox
		assert.Equal(t, types.UserEventDisconnect, msg.Event)
		assert.Contains(t, string(msg.Message), string(types.ReasonRoomClosed))
	}

	msg := <-host
	assert.Equal(t, types.HostEventDisconnect, msg.Event)
	assert.Equal(t, types.UserID("alice"), msg.UserID)
}

func TestConcurrentSendersNeverBlock(t *testing.T) {
	fab := New()
	roomID := types.NewRoomID()
	fab.RegisterHost(roomID) // consumer never drains

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fab.SendToHost(roomID, types.NewJoinRoom("bob"))
			}
		}()
	}
	wg.Wait()
	// 1000 sends into a capacity-256 mailbox returned without blocking; the
	// overflow was dropped.
}
