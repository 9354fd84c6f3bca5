package handlers

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/app"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/handlers/middleware"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	WebSocketHandler(router, app.Websocket)

	api := router.Group("/api")
	HealthHandler(api, app.Config, &app.Database)
	NewPlaylistHandler(*app, api).Register()
	NewSongsHandler(*app, api).Register()
	NewChatHandler(*app, api).Register()

	return nil
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}
