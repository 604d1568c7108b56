package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactive-rooms/relay/internal/v1/fabric"
	"github.com/reactive-rooms/relay/internal/v1/registry"
	"github.com/reactive-rooms/relay/internal/v1/types"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", Ping)
	r.POST("/api/rooms", h.CreateRoom)
	r.DELETE("/api/rooms/:roomId", h.CancelRoom)
	r.GET("/api/rooms", h.ListRooms)
	r.NoRoute(NotFound)
	return r
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRoom(t *testing.T) {
	reg := registry.New()
	router := newTestRouter(NewHandler(reg, fabric.New()))

	w := doJSON(router, http.MethodPost, "/api/rooms", `{"type":"chess","hostId":"alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateRoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	room, exists := reg.GetRoom(resp.RoomID)
	require.True(t, exists)
	assert.Equal(t, types.UserID("alice"), room.HostID)
	assert.Equal(t, types.RoomType("chess"), room.RoomType)
}

func TestCreateRoom_InvalidBody(t *testing.T) {
	router := newTestRouter(NewHandler(registry.New(), fabric.New()))

	for _, body := range []string{``, `{}`, `{"type":"chess"}`, `{"hostId":"alice"}`, `not json`} {
		w := doJSON(router, http.MethodPost, "/api/rooms", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %q", body)
	}
}

func TestCancelRoom_NotFound(t *testing.T) {
	router := newTestRouter(NewHandler(registry.New(), fabric.New()))

	w := doJSON(router, http.MethodDelete, "/api/rooms/9f4a1c2e-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/rooms/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelRoom_DisconnectsEveryone(t *testing.T) {
	reg := registry.New()
	fab := fabric.New()
	router := newTestRouter(NewHandler(reg, fab))

	room := types.NewRoom("alice", "chess")
	require.NoError(t, reg.CreateRoom(room))
	require.True(t, reg.AddUser(room.ID, "bob"))

	hostInbox := fab.RegisterHost(room.ID)
	userInbox := fab.RegisterUser("bob", room.ID)

	w := doJSON(router, http.MethodDelete, "/api/rooms/"+string(room.ID), "")
	require.Equal(t, http.StatusNoContent, w.Code)

	select {
	case msg := <-userInbox:
		assert.Equal(t, types.UserEventDisconnect, msg.Event)
		assert.Contains(t, string(msg.Message), string(types.ReasonRoomClosed))
	case <-time.After(time.Second):
		t.Fatal("user was not disconnected")
	}

	select {
	case msg := <-hostInbox:
		assert.Equal(t, types.HostEventDisconnect, msg.Event)
		assert.Equal(t, room.HostID, msg.UserID)
	case <-time.After(time.Second):
		t.Fatal("host was not disconnected")
	}

	_, exists := reg.GetRoom(room.ID)
	assert.False(t, exists, "defensive remove covers the host-absent case")
	assert.Equal(t, 0, reg.UserCount(room.ID))
}

func TestListRooms(t *testing.T) {
	reg := registry.New()
	router := newTestRouter(NewHandler(reg, fabric.New()))

	for i := 0; i < 5; i++ {
		room := types.NewRoom(types.UserID(fmt.Sprintf("host-%d", i)), "chess")
		require.NoError(t, reg.CreateRoom(room))
		require.True(t, reg.AddUser(room.ID, "bob"))
	}

	w := doJSON(router, http.MethodGet, "/api/rooms?page=0&size=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page RoomsPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Rooms, 3)
	assert.Equal(t, 5, page.TotalRooms)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 3, page.Size)
	for _, r := range page.Rooms {
		assert.Equal(t, 1, r.PlayerCount)
	}

	// Second page holds the remainder.
	w = doJSON(router, http.MethodGet, "/api/rooms?page=1&size=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Rooms, 2)

	// Past the end.
	w = doJSON(router, http.MethodGet, "/api/rooms?page=9&size=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Rooms)
	assert.Equal(t, 5, page.TotalRooms)
}

func TestListRooms_SizeBounds(t *testing.T) {
	router := newTestRouter(NewHandler(registry.New(), fabric.New()))

	for _, q := range []string{"size=0", "size=101", "size=-1", "size=abc", "page=-1"} {
		w := doJSON(router, http.MethodGet, "/api/rooms?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "query: %s", q)
	}

	w := doJSON(router, http.MethodGet, "/api/rooms", "")
	assert.Equal(t, http.StatusOK, w.Code, "defaults are within bounds")
}

func TestPingAndFallback(t *testing.T) {
	router := newTestRouter(NewHandler(registry.New(), fabric.New()))

	w := doJSON(router, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ping":"pong!"}`, w.Body.String())

	w = doJSON(router, http.MethodGet, "/nowhere", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}
