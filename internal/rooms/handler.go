// Package rooms exposes the diagnostics API over live sessions: listing,
// inspection, code minting, and forced teardown. It reads through the session
// registry; all room mutation still flows through the realtime router.
package rooms

import (
	"errors"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streamroom/backend/internal/realtime"
	"github.com/streamroom/backend/internal/session"
	"github.com/streamroom/backend/pkg/response"
)

// Handler serves room diagnostics endpoints.
type Handler struct {
	registry *session.Registry
	router   *realtime.Router
	logger   *zap.Logger
}

// NewHandler creates the diagnostics handler.
func NewHandler(registry *session.Registry, router *realtime.Router, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, router: router, logger: logger}
}

type roomSummary struct {
	RoomCode     string    `json:"room_code"`
	Participants int       `json:"participants"`
	QueueLength  int       `json:"queue_length"`
	IsPlaying    bool      `json:"is_playing"`
	CreatedAt    time.Time `json:"created_at"`
}

// List returns a summary of every live room.
func (h *Handler) List(c *gin.Context) {
	codes := h.registry.ListRoomCodes()
	sort.Strings(codes)

	out := make([]roomSummary, 0, len(codes))
	for _, code := range codes {
		sess, err := h.registry.GetSession(code)
		if err != nil {
			continue // destroyed between list and lookup
		}
		snap := sess.Snapshot()
		out = append(out, roomSummary{
			RoomCode:     code,
			Participants: len(snap.Participants),
			QueueLength:  len(snap.Queue),
			IsPlaying:    snap.Playback.IsPlaying,
			CreatedAt:    snap.CreatedAt,
		})
	}
	response.OK(c, gin.H{"rooms": out, "count": len(out)})
}

// Get returns the full state of one room, with the playback position resolved
// at request time.
func (h *Handler) Get(c *gin.Context) {
	code := c.Param("code")
	sess, err := h.registry.GetSession(code)
	if err != nil {
		response.NotFound(c, "no live session for that room code")
		return
	}
	snap := sess.Snapshot()
	response.OK(c, gin.H{
		"room_code":         snap.RoomCode,
		"participants":      snap.Participants,
		"queue":             snap.Queue,
		"playback":          snap.Playback,
		"resolved_position": snap.Playback.ResolvedPosition(time.Now()),
		"message_count":     len(snap.Messages),
		"created_at":        snap.CreatedAt,
	})
}

// GenerateCode mints a room code not held by any live session. The session
// itself only materializes when the first participant joins.
func (h *Handler) GenerateCode(c *gin.Context) {
	var code string
	for {
		code = session.NewRoomCode()
		if !h.registry.Exists(code) {
			break
		}
	}
	response.Created(c, gin.H{"room_code": code})
}

// Destroy force-tears-down a live room, notifying members first.
func (h *Handler) Destroy(c *gin.Context) {
	code := c.Param("code")
	if err := h.router.DestroyRoom(code); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			response.NotFound(c, "no live session for that room code")
			return
		}
		response.Internal(c, "destroy failed")
		return
	}
	h.logger.Info("room force destroyed", zap.String("room_code", code))
	response.OK(c, gin.H{"room_code": code, "destroyed": true})
}
