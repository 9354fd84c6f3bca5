package handlers

import (
	"context"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(router fiber.Router, config config.Config, db pinger) {
	router.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "unavailable",
				"version": config.GeneralVersion,
				"service": "fftbviewer_api",
			})
		}

		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": config.GeneralVersion,
			"service": "fftbviewer_api",
		})
	})
}
