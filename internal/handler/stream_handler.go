package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/realtime"
)

// StreamHandler upgrades slot stream requests to websockets.
type StreamHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamHandler builds a handler. checkOrigin may be nil to accept any origin.
func NewStreamHandler(hub *realtime.Hub, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Stream godoc
// @Summary Subscribe to a mentor's slot changes
// @Description Websocket stream of booking events (session.booked, session.completed, session.link_updated, availability.updated). Re-fetch slots when one arrives.
// @Tags Availability
// @Param mentorId path string true "Mentor ID"
// @Param access_token query string false "Bearer token when headers cannot be set"
// @Success 101
// @Router /availability/{mentorId}/slots/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	mentorID := c.Param("mentorId")
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("slot stream upgrade failed", zap.String("mentor_id", mentorID), zap.Error(err))
		return
	}
	realtime.Serve(h.hub, h.hub.Subscribe(mentorID), conn, h.logger)
}
