package services

import (
	"context"
	"sync"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"

	"gorm.io/gorm"
)

// PlaySubmitter accepts detected plays for asynchronous tracking.
type PlaySubmitter interface {
	Submit(event PlayEvent) bool
}

// PlayTracker applies detected plays to the catalog under a fixed policy.
// Track is synchronous; Submit hands events to a bounded worker pool so chat
// ingestion never waits on the database.
type PlayTracker struct {
	policy      config.TrackPlayPolicy
	tracks      repositories.TrackRepository
	plays       repositories.PlayRecordRepository
	transaction Transactor
	eventBus    events.Publisher
	queue       chan PlayEvent
	workers     int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	stopped     bool
	log         logger.Logger
}

func NewPlayTracker(
	policy config.TrackPlayPolicy,
	repos repositories.Repository,
	transaction Transactor,
	eventBus events.Publisher,
	workers int,
	queueSize int,
) *PlayTracker {
	return &PlayTracker{
		policy:      policy,
		tracks:      repos.Track,
		plays:       repos.PlayRecord,
		transaction: transaction,
		eventBus:    eventBus,
		queue:       make(chan PlayEvent, max(queueSize, 1)),
		workers:     max(workers, 1),
		log:         logger.New("playTracker"),
	}
}

func (pt *PlayTracker) Policy() config.TrackPlayPolicy {
	return pt.policy
}

// Track returns true whenever the title was found in the catalog, whether or
// not the policy allowed any write. Log-only mode returns true without a
// lookup.
func (pt *PlayTracker) Track(ctx context.Context, event PlayEvent) (bool, error) {
	log := pt.log.Function("Track").TraceFromContext(ctx).With("title", event.Title)

	if !pt.policy.Enabled {
		log.Debug("Play tracking disabled, skipping")
		return false, nil
	}

	if pt.policy.LogOnly {
		log.Info("Log-only mode, would track play", "durationSeconds", event.DurationSeconds)
		return true, nil
	}

	track, err := pt.tracks.FindByTitle(ctx, event.Title)
	if err != nil {
		return false, log.Err("failed to look up played track", err)
	}
	if track == nil {
		log.Warn("Played title not in catalog")
		return false, nil
	}

	playedAt := event.DetectedAt
	if playedAt.IsZero() {
		playedAt = time.Now().UTC()
	}

	if pt.policy.UpdateOccurrences || pt.policy.RecordPlayHistory {
		err = pt.transaction.Execute(ctx, func(txCtx context.Context, _ *gorm.DB) error {
			if pt.policy.UpdateOccurrences {
				if _, err := pt.tracks.IncrementOccurrence(txCtx, track.ID, playedAt); err != nil {
					return err
				}
				track.Occurrence++
			}

			if pt.policy.RecordPlayHistory {
				record := &models.PlayRecord{TrackID: track.ID, PlayedAt: playedAt}
				if err := pt.plays.Create(txCtx, record); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return false, log.Err("failed to apply play", err, "trackID", track.ID)
		}
	}

	log.Info("Tracked play",
		"trackID", track.ID,
		"occurrenceUpdated", pt.policy.UpdateOccurrences,
		"historyRecorded", pt.policy.RecordPlayHistory,
	)
	pt.publish(track, event, playedAt)

	return true, nil
}

func (pt *PlayTracker) publish(track *models.Track, event PlayEvent, playedAt time.Time) {
	if pt.eventBus == nil {
		return
	}

	err := pt.eventBus.Publish(events.BROADCAST_CHANNEL, events.Event{
		Type: events.TRACK_PLAYED,
		Data: map[string]any{
			"trackId":         track.ID,
			"title":           track.Title,
			"duration":        track.Duration,
			"durationSeconds": event.DurationSeconds,
			"occurrence":      track.Occurrence,
			"playedAt":        playedAt,
		},
	})
	if err != nil {
		pt.log.Function("publish").Er("failed to publish track played event", err, "trackID", track.ID)
	}
}

// Submit enqueues without blocking. It returns false when the queue is full
// or the tracker has been stopped.
func (pt *PlayTracker) Submit(event PlayEvent) bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	if pt.stopped {
		pt.log.Function("Submit").Warn("Tracker stopped, dropping play", "title", event.Title)
		return false
	}

	select {
	case pt.queue <- event:
		return true
	default:
		pt.log.Function("Submit").Warn("Play queue full, dropping play", "title", event.Title, "queueSize", cap(pt.queue))
		return false
	}
}

func (pt *PlayTracker) Start(ctx context.Context) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.started || pt.stopped {
		return
	}
	pt.started = true

	for i := range pt.workers {
		pt.wg.Add(1)
		go pt.worker(ctx, i)
	}

	pt.log.Function("Start").Info("Play tracker started", "workers", pt.workers, "queueSize", cap(pt.queue))
}

func (pt *PlayTracker) worker(ctx context.Context, id int) {
	defer pt.wg.Done()
	log := pt.log.Function("worker").With("worker", id)

	for event := range pt.queue {
		if _, err := pt.Track(ctx, event); err != nil {
			log.Er("failed to track play", err, "title", event.Title)
		}
	}
}

// Stop rejects new submissions and waits for queued plays to be applied.
func (pt *PlayTracker) Stop() {
	pt.mu.Lock()
	if pt.stopped {
		pt.mu.Unlock()
		return
	}
	pt.stopped = true
	close(pt.queue)
	started := pt.started
	pt.mu.Unlock()

	if started {
		pt.wg.Wait()
	}
	pt.log.Function("Stop").Info("Play tracker stopped")
}

func (pt *PlayTracker) TotalPlays(ctx context.Context) (int64, error) {
	return pt.tracks.SumOccurrences(ctx)
}

func (pt *PlayTracker) PlayedSongsCount(ctx context.Context) (int64, error) {
	return pt.tracks.CountPlayed(ctx)
}
