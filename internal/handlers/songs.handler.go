package handlers

import (
	"github.com/Larry-Schultz/FFTBViewerV3/internal/app"
	playlistController "github.com/Larry-Schultz/FFTBViewerV3/internal/controllers/playlist"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

type SongsHandler struct {
	Handler
	playlistController playlistController.PlaylistControllerInterface
}

func NewSongsHandler(app app.App, router fiber.Router) *SongsHandler {
	log := logger.New("handlers").File("songs_handler")
	return &SongsHandler{
		playlistController: app.Controllers.Playlist,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SongsHandler) Register() {
	songs := h.router.Group("/songs")

	songs.Get("/", h.ListSongs)
	songs.Get("/stats", h.GetStats)
	songs.Get("/most-played", h.GetMostPlayed)
	songs.Get("/recently-added", h.GetRecentlyAdded)

	h.router.Get("/plays/recent", h.GetRecentPlays)
}

func (h *SongsHandler) ListSongs(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("ListSongs")

	query := repositories.TrackListQuery{
		Page:          c.QueryInt("page", 0),
		Size:          c.QueryInt("size", repositories.DEFAULT_PAGE_SIZE),
		SortBy:        c.Query("sortBy", "title"),
		SortDirection: c.Query("sortDirection", "asc"),
		Search:        c.Query("search"),
	}

	page, err := h.playlistController.ListSongs(c.UserContext(), query)
	if err != nil {
		log.Er("Failed to list songs", err, "page", query.Page, "size", query.Size)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list songs")
	}

	return c.JSON(page)
}

func (h *SongsHandler) GetStats(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetStats")

	stats, err := h.playlistController.GetStats(c.UserContext())
	if err != nil {
		log.Er("Failed to load song stats", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load song stats")
	}

	return c.JSON(fiber.Map{
		"totalSongs":  stats.TotalSongs,
		"totalPlays":  stats.TotalPlays,
		"playedSongs": stats.PlayedSongs,
	})
}

func (h *SongsHandler) GetMostPlayed(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetMostPlayed")

	tracks, err := h.playlistController.GetMostPlayed(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		log.Er("Failed to load most played songs", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load most played songs")
	}

	return c.JSON(tracks)
}

func (h *SongsHandler) GetRecentlyAdded(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetRecentlyAdded")

	tracks, err := h.playlistController.GetRecentlyAdded(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		log.Er("Failed to load recently added songs", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load recently added songs")
	}

	return c.JSON(tracks)
}

func (h *SongsHandler) GetRecentPlays(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("GetRecentPlays")

	plays, err := h.playlistController.GetRecentPlays(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		log.Er("Failed to load recent plays", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load recent plays")
	}

	return c.JSON(plays)
}
