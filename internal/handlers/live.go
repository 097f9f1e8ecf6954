package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
)

// LiveHandler streams notification events over a websocket.
type LiveHandler struct {
	hub *realtime.Hub
	log *slog.Logger
}

func (h *LiveHandler) Notifications(c *gin.Context) {
	id, _ := middleware.CurrentUserID(c)
	// The upgrader has already answered the client when this fails.
	if err := h.hub.ServeWS(c.Writer, c.Request, id); err != nil {
		h.log.Debug("websocket upgrade failed", "user_id", id, "error", err)
	}
}
