// Package api implements the admin HTTP surface for room lifecycle.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reactive-rooms/relay/internal/v1/auth"
	"github.com/reactive-rooms/relay/internal/v1/fabric"
	"github.com/reactive-rooms/relay/internal/v1/logging"
	"github.com/reactive-rooms/relay/internal/v1/metrics"
	"github.com/reactive-rooms/relay/internal/v1/registry"
	"github.com/reactive-rooms/relay/internal/v1/types"
)

// List size bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler serves the admin room endpoints.
type Handler struct {
	reg *registry.Registry
	fab *fabric.Fabric
}

func NewHandler(reg *registry.Registry, fab *fabric.Fabric) *Handler {
	return &Handler{reg: reg, fab: fab}
}

// CreateRoom handles POST /api/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	room := types.NewRoom(req.HostID, req.Type)
	if err := h.reg.CreateRoom(room); err != nil {
		if errors.Is(err, registry.ErrRoomExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "room already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	metrics.ActiveRooms.Set(float64(h.reg.RoomCount()))

	logging.Info(c.Request.Context(), "Room created",
		zap.String("roomId", string(room.ID)), zap.String("hostId", string(room.HostID)),
		zap.String("type", string(room.RoomType)), zap.String("createdBy", callerSubject(c)))

	c.JSON(http.StatusCreated, CreateRoomResponse{RoomID: room.ID})
}

// CancelRoom handles DELETE /api/rooms/:roomId. It drains the room's members,
// signals the host, and defensively removes the record in case no host
// session is live to do it.
func (h *Handler) CancelRoom(c *gin.Context) {
	roomID, err := types.ParseRoomID(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	room, exists := h.reg.GetRoom(roomID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	users := h.reg.ClearUsers(roomID)
	h.fab.DisconnectRoomUsers(roomID, users, types.ReasonRoomClosed)
	h.fab.DisconnectHost(roomID, room.HostID, types.ReasonRoomClosed)

	// The host session's own teardown also removes the room; this covers the
	// host-absent case and is idempotent against that path.
	h.reg.RemoveRoom(roomID)

	metrics.ActiveRooms.Set(float64(h.reg.RoomCount()))
	metrics.RoomMembers.DeleteLabelValues(string(roomID))

	logging.Info(c.Request.Context(), "Room cancelled",
		zap.String("roomId", string(roomID)), zap.Int("disconnectedUsers", len(users)),
		zap.String("cancelledBy", callerSubject(c)))

	c.Status(http.StatusNoContent)
}

// ListRooms handles GET /api/rooms with page and size query parameters.
func (h *Handler) ListRooms(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 || size > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
		return
	}

	rooms, total := h.reg.RoomsPaginated(page, size)

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, RoomSummary{
			RoomID:      room.ID,
			HostID:      room.HostID,
			Type:        room.RoomType,
			PlayerCount: h.reg.UserCount(room.ID),
		})
	}

	c.JSON(http.StatusOK, RoomsPage{
		Rooms:      summaries,
		TotalRooms: total,
		Page:       page,
		Size:       size,
	})
}

func callerSubject(c *gin.Context) string {
	if p, ok := auth.PrincipalFromContext(c); ok {
		return p.Subject
	}
	return "unknown"
}

// Ping responds to the liveness probe.
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ping": "pong!"})
}

// NotFound is the fallback for unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
