package handler

import (
	"game-exploration-be/internal/pkg/logger"
	internalWS "game-exploration-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const streamModule = "ExplorationStream"

// ExplorationStreamHandler upgrades viewers of a project to the session state
// stream. ?session_id=N follows a single session.
type ExplorationStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewExplorationStreamHandler(hub *internalWS.Hub, log logger.ILogger) *ExplorationStreamHandler {
	return &ExplorationStreamHandler{hub: hub, logger: log}
}

func (h *ExplorationStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/projects/:project_id/exploration", h.ServeWs)
}

func (h *ExplorationStreamHandler) ServeWs(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("project_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid project id")
	}

	sessionID, err := internalWS.ParseSessionFilter(c.Query("session_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session_id")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		fields := map[string]interface{}{"project_id": projectID, "session_id": sessionID}
		h.logger.Info(streamModule, "Viewer connected", fields)
		internalWS.Follow(h.hub, conn, projectID, sessionID)
		h.logger.Info(streamModule, "Viewer disconnected", fields)
	})(c)
}
