package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
)

var ErrSyncInProgress = errors.New("playlist sync already in progress")

type SyncResult struct {
	Trigger    models.SyncTrigger `json:"trigger"`
	Skipped    bool               `json:"skipped"`
	Stats      models.SyncStats   `json:"stats"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// PlaylistSyncService reconciles the catalog with the playlist feed. Runs are
// serialized per instance: Sync waits for an in-flight run, TrySync drops.
type PlaylistSyncService struct {
	feed     FeedSource
	tracks   repositories.TrackRepository
	syncRuns repositories.SyncRunRepository
	cache    database.CacheClient
	eventBus events.Publisher
	mu       sync.Mutex
	syncing  atomic.Bool
	log      logger.Logger
}

func NewPlaylistSyncService(
	feed FeedSource,
	repos repositories.Repository,
	cache database.CacheClient,
	eventBus events.Publisher,
) *PlaylistSyncService {
	return &PlaylistSyncService{
		feed:     feed,
		tracks:   repos.Track,
		syncRuns: repos.SyncRun,
		cache:    cache,
		eventBus: eventBus,
		log:      logger.New("playlistSyncService"),
	}
}

func (s *PlaylistSyncService) Sync(ctx context.Context, trigger models.SyncTrigger) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, trigger)
}

func (s *PlaylistSyncService) TrySync(ctx context.Context, trigger models.SyncTrigger) (*SyncResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()
	return s.run(ctx, trigger)
}

func (s *PlaylistSyncService) ForceSync(ctx context.Context) (*SyncResult, error) {
	return s.Sync(ctx, models.SyncTriggerManual)
}

func (s *PlaylistSyncService) IsSyncing() bool {
	return s.syncing.Load()
}

func (s *PlaylistSyncService) run(ctx context.Context, trigger models.SyncTrigger) (*SyncResult, error) {
	log := s.log.Function("Sync").TraceFromContext(ctx).With("trigger", trigger)
	defer log.Timer("playlist sync")()

	s.syncing.Store(true)
	defer s.syncing.Store(false)

	result := &SyncResult{Trigger: trigger, StartedAt: time.Now().UTC()}
	run := s.startRun(ctx, trigger)

	feedTracks := ParseFeed(s.feed.Fetch(ctx), s.log)
	result.Stats.FeedTracks = len(feedTracks)

	if len(feedTracks) == 0 {
		log.Warn("Feed returned no tracks, leaving catalog untouched")
		result.Skipped = true
		result.FinishedAt = time.Now().UTC()
		if run != nil {
			run.MarkAsSkipped(result.Stats)
		}
		s.finishRun(ctx, run)
		s.publish(events.SYNC_COMPLETE, result, nil)
		return result, nil
	}

	if err := s.reconcile(ctx, feedTracks, &result.Stats, log); err != nil {
		result.FinishedAt = time.Now().UTC()
		if run != nil {
			run.MarkAsFailed(result.Stats, err)
		}
		s.finishRun(ctx, run)
		s.publish(events.SYNC_ERROR, result, err)
		return nil, err
	}

	if count, err := s.tracks.Count(ctx); err != nil {
		log.Er("failed to count catalog after sync", err)
	} else {
		result.Stats.CatalogSize = count
	}

	result.FinishedAt = time.Now().UTC()
	log.Info("Playlist sync completed",
		"catalogSize", result.Stats.CatalogSize,
		"added", result.Stats.Added,
		"removed", result.Stats.Removed,
		"removalFailures", result.Stats.RemovalFailures,
		"durationsRepaired", result.Stats.DurationsRepaired,
		"duplicatesSkipped", result.Stats.DuplicatesSkipped,
	)

	if run != nil {
		run.MarkAsCompleted(result.Stats)
	}
	s.finishRun(ctx, run)
	s.publish(events.SYNC_COMPLETE, result, nil)

	return result, nil
}

func (s *PlaylistSyncService) reconcile(
	ctx context.Context,
	feedTracks []RawTrack,
	stats *models.SyncStats,
	log logger.Logger,
) error {
	existingTitles, err := s.tracks.ListAllTitles(ctx)
	if err != nil {
		return log.Err("failed to load catalog titles", err)
	}

	existing := make(map[string]struct{}, len(existingTitles))
	for _, title := range existingTitles {
		if title != "" {
			existing[title] = struct{}{}
		}
	}
	stats.Existing = len(existing)

	unique := uniqueFeedTracks(feedTracks)
	stats.UniqueTitles = len(unique)

	feedTitles := make(map[string]struct{}, len(unique))
	for _, track := range unique {
		feedTitles[track.Title] = struct{}{}
	}

	removed := make([]string, 0)
	for _, title := range existingTitles {
		if title == "" {
			continue
		}
		if _, ok := feedTitles[title]; !ok {
			removed = append(removed, title)
		}
	}
	s.removeTitles(ctx, removed, stats, log)

	added := make([]*models.Track, 0)
	for _, track := range unique {
		if _, ok := existing[track.Title]; ok {
			s.repairDuration(ctx, track, stats, log)
			continue
		}
		added = append(added, &models.Track{
			Title:      track.Title,
			Duration:   track.Duration,
			Occurrence: 0,
		})
	}

	return s.insertTracks(ctx, added, stats, log)
}

// uniqueFeedTracks keeps the first occurrence of each non-empty title. A
// later duplicate lends its duration when the first one carries a bad one.
func uniqueFeedTracks(feedTracks []RawTrack) []RawTrack {
	seen := make(map[string]int, len(feedTracks))
	unique := make([]RawTrack, 0, len(feedTracks))
	for _, track := range feedTracks {
		if track.Title == "" {
			continue
		}
		if i, ok := seen[track.Title]; ok {
			if models.IsBadDuration(unique[i].Duration) && !models.IsBadDuration(track.Duration) {
				unique[i].Duration = track.Duration
				unique[i].DurationSeconds = track.DurationSeconds
			}
			continue
		}
		seen[track.Title] = len(unique)
		unique = append(unique, track)
	}
	return unique
}

func (s *PlaylistSyncService) removeTitles(
	ctx context.Context,
	titles []string,
	stats *models.SyncStats,
	log logger.Logger,
) {
	for start := 0; start < len(titles); start += REMOVAL_BATCH_SIZE {
		end := min(start+REMOVAL_BATCH_SIZE, len(titles))
		batch := titles[start:end]

		deleted, err := s.tracks.DeleteByTitles(ctx, batch)
		if err != nil {
			log.Er("failed to remove batch, will retry next sync", err, "batchStart", start, "batchSize", len(batch))
			stats.RemovalFailures += len(batch)
			continue
		}
		stats.Removed += int(deleted)
	}

	if len(titles) > 0 {
		log.Info("Removed tracks no longer in feed", "removed", stats.Removed, "failed", stats.RemovalFailures)
	}
}

func (s *PlaylistSyncService) repairDuration(
	ctx context.Context,
	feedTrack RawTrack,
	stats *models.SyncStats,
	log logger.Logger,
) {
	current, err := s.tracks.FindByTitle(ctx, feedTrack.Title)
	if err != nil {
		log.Er("failed to look up track for duration check", err, "title", feedTrack.Title)
		return
	}
	if current == nil || !current.HasBadDuration() {
		return
	}

	stats.DurationDiscrepancies++
	log.Warn("Duration discrepancy", "title", feedTrack.Title, "catalog", current.Duration, "feed", feedTrack.Duration)

	if models.IsBadDuration(feedTrack.Duration) {
		return
	}

	rows, err := s.tracks.UpdateDurationIfMatches(ctx, feedTrack.Title, feedTrack.Duration, current.Duration)
	if err != nil {
		log.Er("failed to repair duration", err, "title", feedTrack.Title)
		return
	}
	if rows > 0 {
		stats.DurationsRepaired++
	}
}

func (s *PlaylistSyncService) insertTracks(
	ctx context.Context,
	tracks []*models.Track,
	stats *models.SyncStats,
	log logger.Logger,
) error {
	for start := 0; start < len(tracks); start += INSERTION_BATCH_SIZE {
		end := min(start+INSERTION_BATCH_SIZE, len(tracks))
		batch := tracks[start:end]

		err := s.tracks.SaveAll(ctx, batch)
		if err == nil {
			stats.Added += len(batch)
			continue
		}

		if !errors.Is(err, repositories.ErrDuplicateTitle) {
			return log.Err("failed to insert batch", err, "batchStart", start, "batchSize", len(batch))
		}

		log.Warn("Batch hit a duplicate title, inserting rows individually", "batchStart", start)
		for _, track := range batch {
			track.ID = 0
			if err := s.tracks.Save(ctx, track); err != nil {
				if errors.Is(err, repositories.ErrDuplicateTitle) {
					log.Debug("Skipping duplicate title", "title", track.Title)
					stats.DuplicatesSkipped++
					continue
				}
				return log.Err("failed to insert track", err, "title", track.Title)
			}
			stats.Added++
		}
	}

	if len(tracks) > 0 {
		log.Info("Added new tracks", "added", stats.Added, "duplicatesSkipped", stats.DuplicatesSkipped)
	}
	return nil
}

func (s *PlaylistSyncService) startRun(ctx context.Context, trigger models.SyncTrigger) *models.SyncRun {
	if s.syncRuns == nil {
		return nil
	}

	run := &models.SyncRun{Trigger: trigger}
	if actor, ok := contextutil.GetActor(ctx); ok {
		run.RequestedBy = &actor
	}

	if err := s.syncRuns.Create(ctx, run); err != nil {
		s.log.Function("startRun").Er("failed to record sync run", err)
		return nil
	}
	return run
}

func (s *PlaylistSyncService) finishRun(ctx context.Context, run *models.SyncRun) {
	if run == nil {
		return
	}
	log := s.log.Function("finishRun")

	if err := s.syncRuns.Update(ctx, run); err != nil {
		log.Er("failed to update sync run", err, "runID", run.ID)
		return
	}

	if s.cache == nil {
		return
	}
	err := database.NewCacheBuilder(s.cache, LATEST_SYNC_KEY).
		WithHash(SYNC_HASH).
		WithStruct(run).
		WithTTL(LatestSyncTTL).
		WithContext(ctx).
		Set()
	if err != nil {
		log.Er("failed to cache latest sync run", err, "runID", run.ID)
	}
}

func (s *PlaylistSyncService) publish(messageType events.MessageType, result *SyncResult, syncErr error) {
	if s.eventBus == nil {
		return
	}

	data := map[string]any{
		"trigger":     result.Trigger,
		"skipped":     result.Skipped,
		"stats":       result.Stats,
		"startedAt":   result.StartedAt,
		"finishedAt":  result.FinishedAt,
		"catalogSize": result.Stats.CatalogSize,
	}
	if syncErr != nil {
		data["error"] = syncErr.Error()
	}

	err := s.eventBus.Publish(events.BROADCAST_CHANNEL, events.Event{Type: messageType, Data: data})
	if err != nil {
		s.log.Function("publish").Er("failed to publish sync event", err, "type", messageType)
	}
}
