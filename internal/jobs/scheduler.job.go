package jobs

import (
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"
)

// RegisterAllJobs registers the background jobs with the scheduler. Nothing
// is registered when SCHEDULER_ENABLED is false.
func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	services services.Service,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	schedule := syncSchedule(config)
	playlistSyncJob := NewPlaylistSyncJob(services.PlaylistSync, schedule)
	if err := schedulerService.AddJob(playlistSyncJob); err != nil {
		return log.Err("failed to register playlist sync job", err)
	}
	log.Info("Registered playlist sync job",
		"interval", schedule.Interval.String(),
		"runOnStartup", schedule.RunOnStartup)

	return nil
}

func syncSchedule(config config.Config) services.Schedule {
	return services.Schedule{
		Interval:     time.Duration(config.SyncIntervalMinutes) * time.Minute,
		RunOnStartup: config.SyncOnStartup,
	}
}
