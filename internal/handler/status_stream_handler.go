package handler

import (
	"context"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/internal/service"
	internalWS "campus-desk-be/internal/websocket"
	"campus-desk-be/pkg/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type StatusStreamHandler struct {
	tracker *tracker.Tracker
	logger  logger.ILogger
}

func NewStatusStreamHandler(statusTracker *tracker.Tracker, log logger.ILogger) *StatusStreamHandler {
	return &StatusStreamHandler{
		tracker: statusTracker,
		logger:  log,
	}
}

func (h *StatusStreamHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/documents/v1/status/ws", auth, h.ServeWs)
}

// ServeWs validates the scope before upgrading so a bad request gets a
// normal JSON error instead of a dropped socket.
func (h *StatusStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userId := serverutils.UserID(c)
	scope, err := service.ParseScope(userId, c.Query("kind"), c.Query("course_id"))
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		handle, err := h.tracker.Track(context.Background(), scope)
		if err != nil {
			h.logger.Error("StatusStreamHandler", "Failed to start tracking", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
			conn.Close()
			return
		}

		h.logger.Info("StatusStreamHandler", "Status stream opened", map[string]interface{}{
			"user_id": userId.String(),
			"kind":    string(scope.Kind),
		})
		internalWS.ServeStatus(conn, handle, h.logger)
		h.logger.Info("StatusStreamHandler", "Status stream closed", map[string]interface{}{
			"user_id": userId.String(),
		})
	})(c)
}
