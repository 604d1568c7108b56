// Package session runs the long-lived host and user tasks behind upgraded
// sockets and dispatches incoming upgrade requests onto them.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/auth"
	"github.com/reactive-rooms/relay/internal/v1/fabric"
	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/registry"
	"github.com/reactive-rooms/relay/internal/v1/types"
)

// Connection types accepted on the upgrade query string.
const (
	connTypeHost = "host"
	connTypeUser = "user"
)

// Hub validates upgrade requests and owns the lifetime of every session
// goroutine it spawns.
type Hub struct {
	reg      *registry.Registry
	fab      *fabric.Fabric
	upgrader websocket.Upgrader
	wg       sync.WaitGroup
}

// NewHub creates a Hub. allowedOrigins gates browser upgrades; requests
// without an Origin header (non-browser clients) are always admitted.
func NewHub(reg *registry.Registry, fab *fabric.Fabric, allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Hub{
		reg: reg,
		fab: fab,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// ServeWs dispatches an authenticated upgrade request with query parameters
// roomId and type into a host or user session.
func (h *Hub) ServeWs(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token not provided"})
		return
	}

	roomID, err := types.ParseRoomID(c.Query("roomId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	room, exists := h.reg.GetRoom(roomID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	connType := c.Query("type")
	switch connType {
	case connTypeHost:
		if !principal.HasRole(auth.RoleHost) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		if room.HostID != types.UserID(principal.Subject) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not the host of this room"})
			return
		}
	case connTypeUser:
		if !principal.HasRole(auth.RoleUser) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection type"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure response.
		logging.Warn(c.Request.Context(), "WebSocket upgrade failed", zap.Error(err))
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		switch connType {
		case connTypeHost:
			newHostSession(h.reg, h.fab, conn, room).run(ctx)
		case connTypeUser:
			newUserSession(h.reg, h.fab, conn, roomID, types.UserID(principal.Subject)).run(ctx)
		}
	}()
}

// Shutdown signals every live session to close and waits for them to drain,
// or until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	if n := h.reg.RoomCount(); n > 0 {
		rooms, _ := h.reg.RoomsPaginated(0, n)
		for _, room := range rooms {
			users := h.reg.Users(room.ID)
			h.fab.DisconnectRoomUsers(room.ID, users, types.ReasonRoomClosed)
			h.fab.DisconnectHost(room.ID, room.HostID, types.ReasonRoomClosed)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
