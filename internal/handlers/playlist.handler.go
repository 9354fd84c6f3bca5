package handlers

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/app"
	playlistController "github.com/Larry-Schultz/FFTBViewerV3/internal/controllers/playlist"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type PlaylistHandler struct {
	Handler
	playlistController playlistController.PlaylistControllerInterface
}

func NewPlaylistHandler(app app.App, router fiber.Router) *PlaylistHandler {
	log := logger.New("handlers").File("playlist_handler")
	return &PlaylistHandler{
		playlistController: app.Controllers.Playlist,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PlaylistHandler) Register() {
	playlist := h.router.Group("/playlist")

	playlist.Get("/status", h.GetStatus)
	playlist.Get("/last-sync", h.GetLastSync)
	playlist.Post("/sync", h.middleware.RequireAdmin(), h.middleware.RateLimitSync(), h.ForceSync)

	h.router.Get("/stats", h.GetStats)
	h.router.Get("/latest-song-time", h.GetLatestSongTime)
}

func (h *PlaylistHandler) GetStatus(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetStatus")

	status, err := h.playlistController.GetStatus(c.UserContext())
	if err != nil {
		log.Er("Failed to load playlist status", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load playlist status")
	}

	return c.JSON(status)
}

func (h *PlaylistHandler) ForceSync(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("ForceSync")

	result, err := h.playlistController.ForceSync(c.UserContext())
	if err != nil {
		log.Er("Manual playlist sync failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Playlist sync failed")
	}

	message := "Playlist sync completed"
	if result.Skipped {
		message = "Playlist feed was empty, catalog left unchanged"
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"result":  result,
	})
}

func (h *PlaylistHandler) GetLastSync(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetLastSync")

	run, err := h.playlistController.GetLastSync(c.UserContext())
	if err != nil {
		log.Er("Failed to load last sync run", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load last sync")
	}
	if run == nil {
		return errorResponse(c, fiber.StatusNotFound, "No sync has run yet")
	}

	return c.JSON(run)
}

func (h *PlaylistHandler) GetStats(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetStats")

	stats, err := h.playlistController.GetStats(c.UserContext())
	if err != nil {
		log.Er("Failed to load catalog stats", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load stats")
	}

	return c.JSON(stats)
}

func (h *PlaylistHandler) GetLatestSongTime(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetLatestSongTime")

	times, err := h.playlistController.GetLatestSongTimes(c.UserContext())
	if err != nil {
		log.Er("Failed to load latest song time", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load latest song time")
	}

	return c.JSON(times)
}
