package playlistController

import (
	"context"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	. "github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"
)

const (
	STATUS_READY   = "ready"
	STATUS_SYNCING = "syncing"
)

type PlaylistStatus struct {
	TotalSongs  int64  `json:"totalSongs"`
	IsAvailable bool   `json:"isAvailable"`
	Status      string `json:"status"`
	TotalPlays  int64  `json:"totalPlays"`
	PlayedSongs int64  `json:"playedSongs"`
}

type LatestSongTimes struct {
	LatestSongAdded  *time.Time `json:"latestSongAdded"`
	LatestChangeTime *time.Time `json:"latestChangeTime"`
}

type playlistSyncer interface {
	ForceSync(ctx context.Context) (*services.SyncResult, error)
	IsSyncing() bool
}

type catalogReader interface {
	Stats(ctx context.Context) (*services.CatalogStats, error)
	ListSongs(ctx context.Context, query repositories.TrackListQuery) (*repositories.TrackPage, error)
	MostPlayed(ctx context.Context, limit int) ([]*Track, error)
	RecentlyAdded(ctx context.Context, limit int) ([]*Track, error)
	RecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error)
	LatestSyncRun(ctx context.Context) (*SyncRun, error)
}

type PlaylistController struct {
	syncer  playlistSyncer
	catalog catalogReader
}

type PlaylistControllerInterface interface {
	GetStatus(ctx context.Context) (*PlaylistStatus, error)
	ForceSync(ctx context.Context) (*services.SyncResult, error)
	GetLastSync(ctx context.Context) (*SyncRun, error)
	GetStats(ctx context.Context) (*services.CatalogStats, error)
	GetLatestSongTimes(ctx context.Context) (*LatestSongTimes, error)
	ListSongs(ctx context.Context, query repositories.TrackListQuery) (*repositories.TrackPage, error)
	GetMostPlayed(ctx context.Context, limit int) ([]*Track, error)
	GetRecentlyAdded(ctx context.Context, limit int) ([]*Track, error)
	GetRecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error)
}

func New(services services.Service) PlaylistControllerInterface {
	return &PlaylistController{
		syncer:  services.PlaylistSync,
		catalog: services.Catalog,
	}
}

func (pc *PlaylistController) GetStatus(ctx context.Context) (*PlaylistStatus, error) {
	log := logger.NewWithContext(ctx, "playlistController").Function("GetStatus")

	stats, err := pc.catalog.Stats(ctx)
	if err != nil {
		return nil, log.Err("failed to load catalog stats", err)
	}

	status := STATUS_READY
	if pc.syncer.IsSyncing() {
		status = STATUS_SYNCING
	}

	return &PlaylistStatus{
		TotalSongs:  stats.TotalSongs,
		IsAvailable: stats.TotalSongs > 0,
		Status:      status,
		TotalPlays:  stats.TotalPlays,
		PlayedSongs: stats.PlayedSongs,
	}, nil
}

// ForceSync runs a manual reconciliation and waits for it, queuing behind a
// scheduled run that is already in flight.
func (pc *PlaylistController) ForceSync(ctx context.Context) (*services.SyncResult, error) {
	log := logger.NewWithContext(ctx, "playlistController").Function("ForceSync")

	result, err := pc.syncer.ForceSync(ctx)
	if err != nil {
		return nil, log.Err("manual playlist sync failed", err)
	}

	log.Info("Manual playlist sync finished",
		"skipped", result.Skipped,
		"added", result.Stats.Added,
		"removed", result.Stats.Removed)

	return result, nil
}

func (pc *PlaylistController) GetLastSync(ctx context.Context) (*SyncRun, error) {
	return pc.catalog.LatestSyncRun(ctx)
}

func (pc *PlaylistController) GetStats(ctx context.Context) (*services.CatalogStats, error) {
	return pc.catalog.Stats(ctx)
}

func (pc *PlaylistController) GetLatestSongTimes(ctx context.Context) (*LatestSongTimes, error) {
	stats, err := pc.catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &LatestSongTimes{
		LatestSongAdded:  stats.LatestSongAdded,
		LatestChangeTime: stats.LatestChangeTime,
	}, nil
}

func (pc *PlaylistController) ListSongs(
	ctx context.Context,
	query repositories.TrackListQuery,
) (*repositories.TrackPage, error) {
	return pc.catalog.ListSongs(ctx, query)
}

func (pc *PlaylistController) GetMostPlayed(ctx context.Context, limit int) ([]*Track, error) {
	return pc.catalog.MostPlayed(ctx, limit)
}

func (pc *PlaylistController) GetRecentlyAdded(ctx context.Context, limit int) ([]*Track, error) {
	return pc.catalog.RecentlyAdded(ctx, limit)
}

func (pc *PlaylistController) GetRecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error) {
	return pc.catalog.RecentPlays(ctx, limit)
}
