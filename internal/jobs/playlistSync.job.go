package jobs

import (
	"context"
	"errors"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"
)

type playlistSyncer interface {
	TrySync(ctx context.Context, trigger models.SyncTrigger) (*services.SyncResult, error)
}

type PlaylistSyncJob struct {
	playlistSync playlistSyncer
	log          logger.Logger
	schedule     services.Schedule
}

func NewPlaylistSyncJob(
	playlistSync playlistSyncer,
	schedule services.Schedule,
) *PlaylistSyncJob {
	log := logger.New("playlistSyncJob")
	log.Info("Creating new playlist sync job",
		"interval", schedule.Interval.String(),
		"runOnStartup", schedule.RunOnStartup)

	return &PlaylistSyncJob{
		playlistSync: playlistSync,
		log:          log,
		schedule:     schedule,
	}
}

func (j *PlaylistSyncJob) Name() string {
	return "PlaylistSync"
}

// Execute runs a scheduled reconciliation. A tick that lands while another
// run holds the sync lock is skipped rather than queued.
func (j *PlaylistSyncJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute").TraceFromContext(ctx)

	result, err := j.playlistSync.TrySync(ctx, models.SyncTriggerScheduled)
	if errors.Is(err, services.ErrSyncInProgress) {
		log.Info("Sync already running, skipping scheduled tick")
		return nil
	}
	if err != nil {
		return log.Err("scheduled playlist sync failed", err)
	}

	log.Info("Scheduled playlist sync completed",
		"skipped", result.Skipped,
		"added", result.Stats.Added,
		"removed", result.Stats.Removed,
		"catalogSize", result.Stats.CatalogSize)
	return nil
}

func (j *PlaylistSyncJob) Schedule() services.Schedule {
	return j.schedule
}
