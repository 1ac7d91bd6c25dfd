package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// Handler exposes the hub over SSE plus room membership endpoints.
type Handler struct {
	hub *Hub
	log *logger.Logger
}

func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

// RegisterRoutes mounts realtime routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stream", h.Stream)
	rg.POST("/subscribers/:id/rooms/:room", h.JoinRoom)
	rg.DELETE("/subscribers/:id/rooms/:room", h.LeaveRoom)
}

// canJoin restricts the managers room to admins and managers.
func canJoin(id httpkit.Identity, room string) bool {
	if room == RoomManagers {
		return id.IsManager()
	}
	return true
}

func parseRooms(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	rooms := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		room := strings.ToLower(strings.TrimSpace(part))
		if room == "" {
			continue
		}
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}
		rooms = append(rooms, room)
	}
	return rooms
}

// Stream opens an SSE connection. ?rooms=a,b joins rooms up front.
func (h *Handler) Stream(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	rooms := parseRooms(c.Query("rooms"))
	for _, room := range rooms {
		if !ValidRoom(room) {
			httpkit.HandleError(c, apperr.Validation(fmt.Sprintf("invalid room %q", room)))
			return
		}
		if !canJoin(id, room) {
			httpkit.HandleError(c, apperr.Forbidden("room requires a manager role"))
			return
		}
	}

	sub, err := h.hub.Subscribe(c.Request.Context(), id.UserID(), rooms...)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "realtime unavailable", err))
		return
	}
	defer h.hub.Unsubscribe(sub.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"subscriberId": sub.ID, "rooms": rooms})
	c.Writer.Flush()

	h.log.Info("realtime client connected", "sub_id", sub.ID, "user_id", id.UserID())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			h.log.Info("realtime client disconnected", "sub_id", sub.ID)
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case env, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(env.Data)
			if err != nil {
				h.log.Error("marshal realtime event", "event", env.Name, "error", err)
				continue
			}
			c.SSEvent(env.Name, string(data))
			c.Writer.Flush()
		}
	}
}

func (h *Handler) JoinRoom(c *gin.Context) {
	subID, room, ok := h.authorizeMembership(c)
	if !ok {
		return
	}
	if err := h.hub.Join(subID, room); err != nil {
		httpkit.HandleError(c, membershipError(err))
		return
	}
	rooms, _ := h.hub.Rooms(subID)
	httpkit.OK(c, gin.H{"subscriberId": subID, "rooms": rooms})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	subID, room, ok := h.authorizeMembership(c)
	if !ok {
		return
	}
	if err := h.hub.Leave(subID, room); err != nil {
		httpkit.HandleError(c, membershipError(err))
		return
	}
	rooms, _ := h.hub.Rooms(subID)
	httpkit.OK(c, gin.H{"subscriberId": subID, "rooms": rooms})
}

// authorizeMembership checks the caller owns the subscription and may use
// the room.
func (h *Handler) authorizeMembership(c *gin.Context) (string, string, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return "", "", false
	}

	subID := c.Param("id")
	room := strings.ToLower(strings.TrimSpace(c.Param("room")))
	if !ValidRoom(room) {
		httpkit.HandleError(c, apperr.Validation("invalid room name"))
		return "", "", false
	}

	owner, err := h.hub.Owner(subID)
	if err != nil || owner != id.UserID() {
		httpkit.HandleError(c, apperr.NotFound("subscriber not found"))
		return "", "", false
	}
	if !canJoin(id, room) {
		httpkit.HandleError(c, apperr.Forbidden("room requires a manager role"))
		return "", "", false
	}
	return subID, room, true
}

func membershipError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownSubscriber):
		return apperr.NotFound("subscriber not found")
	case errors.Is(err, ErrInvalidRoom):
		return apperr.Validation("invalid room name")
	default:
		return apperr.Wrap(apperr.KindInternal, "realtime unavailable", err)
	}
}

