package handlers

import (
	"errors"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/app"
	chatController "github.com/Larry-Schultz/FFTBViewerV3/internal/controllers/chat"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/handlers/middleware"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	Handler
	chatController chatController.ChatControllerInterface
}

func NewChatHandler(app app.App, router fiber.Router) *ChatHandler {
	log := logger.New("handlers").File("chat_handler")
	return &ChatHandler{
		chatController: app.Controllers.Chat,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ChatHandler) Register() {
	chat := h.router.Group("/chat")

	chat.Get("/messages", h.GetMessages)
	chat.Post("/message", h.middleware.RequireRole(middleware.RELAY_ROLE, middleware.ADMIN_ROLE), h.PostMessage)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	return c.JSON(h.chatController.GetMessages())
}

func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("PostMessage")

	var msg services.ChatMessage
	if err := c.BodyParser(&msg); err != nil {
		log.Debug("Invalid chat message body", "error", err)
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.chatController.IngestMessage(c.UserContext(), msg)
	if err != nil {
		if errors.Is(err, services.ErrInvalidChatMessage) {
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		}
		log.Er("Failed to ingest chat message", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to process chat message")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "success",
		"result": result,
	})
}
