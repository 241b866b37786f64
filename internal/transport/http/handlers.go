package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// StatsSource reports storage counters for /api/stats.
type StatsSource interface {
	GetStats(ctx context.Context) (map[string]int, error)
}

type Handlers struct {
	orch  *orch.Orchestrator
	stats StatsSource
}

func New(o *orch.Orchestrator, stats StatsSource) *Handlers {
	return &Handlers{orch: o, stats: stats}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *Handlers) GetRoom(c *gin.Context) {
	id := domain.ProjectID(c.Param("id"))
	snap, err := h.orch.GetRoomSnapshot(c.Request.Context(), id)
	switch {
	case errors.Is(err, orch.ErrUnknownRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "transport.http").Str("project", string(id)).Msg("room snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetRoleContent returns the last known content of one seat.
func (h *Handlers) GetRoleContent(c *gin.Context) {
	id := domain.ProjectID(c.Param("id"))
	role := domain.RoleID(c.Param("role"))
	content, err := h.orch.RoleContent(c.Request.Context(), id, role)
	switch {
	case errors.Is(err, orch.ErrUnknownRoom), errors.Is(err, core.ErrUnknownSeat):
		c.JSON(http.StatusNotFound, gin.H{"error": "role not found"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "transport.http").Str("project", string(id)).Str("role", string(role)).Msg("role content")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load role"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": content.Name, "content": string(content.Body)})
}

func (h *Handlers) Stats(c *gin.Context) {
	out := gin.H{}
	for k, v := range h.orch.Stats() {
		out[k] = v
	}
	if h.stats != nil {
		stored, err := h.stats.GetStats(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Str("module", "transport.http").Msg("storage stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
			return
		}
		for k, v := range stored {
			out[k] = v
		}
	}
	c.JSON(http.StatusOK, out)
}
