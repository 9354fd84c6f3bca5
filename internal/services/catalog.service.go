package services

import (
	"context"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
)

const (
	DEFAULT_MOST_PLAYED_LIMIT    = 20
	DEFAULT_RECENTLY_ADDED_LIMIT = 10
	DEFAULT_RECENT_PLAYS_LIMIT   = 20
	MAX_LIST_LIMIT               = 200
)

type CatalogStats struct {
	TotalSongs       int64      `json:"totalSongs"`
	TotalPlays       int64      `json:"totalPlays"`
	PlayedSongs      int64      `json:"playedSongs"`
	LatestChangeTime *time.Time `json:"latestChangeTime"`
	LatestSongAdded  *time.Time `json:"latestSongAdded"`
}

// CatalogService answers the read side of the catalog for the API.
type CatalogService struct {
	tracks   repositories.TrackRepository
	plays    repositories.PlayRecordRepository
	syncRuns repositories.SyncRunRepository
	cache    database.CacheClient
	log      logger.Logger
}

func NewCatalogService(repos repositories.Repository, cache database.CacheClient) *CatalogService {
	return &CatalogService{
		tracks:   repos.Track,
		plays:    repos.PlayRecord,
		syncRuns: repos.SyncRun,
		cache:    cache,
		log:      logger.New("catalogService"),
	}
}

func (s *CatalogService) GetTotalSongCount(ctx context.Context) (int64, error) {
	return s.tracks.Count(ctx)
}

func (s *CatalogService) IsPlaylistAvailable(ctx context.Context) (bool, error) {
	count, err := s.tracks.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *CatalogService) GetLatestSongAddedTime(ctx context.Context) (*time.Time, error) {
	return s.tracks.LatestCreatedAt(ctx)
}

// GetLatestCatalogChangeTime is the newest of the latest insert, the latest
// row update and the finish of the latest sync that changed anything.
func (s *CatalogService) GetLatestCatalogChangeTime(ctx context.Context) (*time.Time, error) {
	log := s.log.Function("GetLatestCatalogChangeTime")

	created, err := s.tracks.LatestCreatedAt(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.tracks.LatestUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}

	var synced *time.Time
	if s.syncRuns != nil {
		run, err := s.syncRuns.GetLatestChanged(ctx)
		if err != nil {
			log.Er("failed to load latest changed sync run, ignoring", err)
		} else if run != nil {
			synced = run.FinishedAt
		}
	}

	return latestOf(created, updated, synced), nil
}

func latestOf(times ...*time.Time) *time.Time {
	var latest *time.Time
	for _, t := range times {
		if t != nil && (latest == nil || t.After(*latest)) {
			latest = t
		}
	}
	return latest
}

func (s *CatalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	total, err := s.tracks.Count(ctx)
	if err != nil {
		return nil, err
	}

	plays, err := s.tracks.SumOccurrences(ctx)
	if err != nil {
		return nil, err
	}

	played, err := s.tracks.CountPlayed(ctx)
	if err != nil {
		return nil, err
	}

	changed, err := s.GetLatestCatalogChangeTime(ctx)
	if err != nil {
		return nil, err
	}

	added, err := s.tracks.LatestCreatedAt(ctx)
	if err != nil {
		return nil, err
	}

	return &CatalogStats{
		TotalSongs:       total,
		TotalPlays:       plays,
		PlayedSongs:      played,
		LatestChangeTime: changed,
		LatestSongAdded:  added,
	}, nil
}

func (s *CatalogService) ListSongs(ctx context.Context, query repositories.TrackListQuery) (*repositories.TrackPage, error) {
	return s.tracks.List(ctx, query.Normalize())
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, MAX_LIST_LIMIT)
}

func (s *CatalogService) MostPlayed(ctx context.Context, limit int) ([]*models.Track, error) {
	return s.tracks.MostPlayed(ctx, clampLimit(limit, DEFAULT_MOST_PLAYED_LIMIT))
}

func (s *CatalogService) RecentlyAdded(ctx context.Context, limit int) ([]*models.Track, error) {
	return s.tracks.RecentlyAdded(ctx, clampLimit(limit, DEFAULT_RECENTLY_ADDED_LIMIT))
}

func (s *CatalogService) RecentPlays(ctx context.Context, limit int) ([]*models.PlayRecord, error) {
	return s.plays.Recent(ctx, clampLimit(limit, DEFAULT_RECENT_PLAYS_LIMIT))
}

// LatestSyncRun prefers the copy cached by the sync service and falls back to
// the database on a miss or cache error.
func (s *CatalogService) LatestSyncRun(ctx context.Context) (*models.SyncRun, error) {
	log := s.log.Function("LatestSyncRun")

	if s.cache != nil {
		var run models.SyncRun
		found, err := database.NewCacheBuilder(s.cache, LATEST_SYNC_KEY).
			WithHash(SYNC_HASH).
			WithContext(ctx).
			Get(&run)
		if err != nil {
			log.Warn("Latest sync cache read failed, using database", "error", err)
		} else if found {
			return &run, nil
		}
	}

	return s.syncRuns.GetLatest(ctx)
}
