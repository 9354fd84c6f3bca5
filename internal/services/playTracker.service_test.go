package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullPolicy = config.TrackPlayPolicy{
	Enabled:           true,
	UpdateOccurrences: true,
	RecordPlayHistory: true,
}

type trackerFixture struct {
	tracks    *memoryTrackRepository
	plays     *memoryPlayRecordRepository
	tx        *passthroughTransactor
	publisher *recordingPublisher
	tracker   *PlayTracker
}

func newTrackerFixture(policy config.TrackPlayPolicy, workers, queueSize int) *trackerFixture {
	f := &trackerFixture{
		tracks:    newMemoryTrackRepository(&models.Track{Title: "Battle Theme", Duration: "2:30"}),
		plays:     &memoryPlayRecordRepository{},
		tx:        &passthroughTransactor{},
		publisher: &recordingPublisher{},
	}
	f.tracker = NewPlayTracker(
		policy,
		repositories.Repository{Track: f.tracks, PlayRecord: f.plays},
		f.tx,
		f.publisher,
		workers,
		queueSize,
	)
	return f
}

func (f *trackerFixture) occurrence(t *testing.T) int {
	track, ok := f.tracks.get("Battle Theme")
	require.True(t, ok)
	return track.Occurrence
}

func play(title string) PlayEvent {
	return PlayEvent{Title: title, DurationSeconds: 150, DetectedAt: time.Now().UTC()}
}

func TestPlayTracker_Track(t *testing.T) {
	tests := []struct {
		name           string
		policy         config.TrackPlayPolicy
		title          string
		wantApplied    bool
		wantOccurrence int
		wantRecords    int
		wantTxCalls    int
		wantEvents     int
	}{
		{
			name:   "disabled is a no-op",
			policy: config.TrackPlayPolicy{Enabled: false, UpdateOccurrences: true, RecordPlayHistory: true},
			title:  "Battle Theme",
		},
		{
			name:        "log only reports true without writes",
			policy:      config.TrackPlayPolicy{Enabled: true, LogOnly: true, UpdateOccurrences: true, RecordPlayHistory: true},
			title:       "Battle Theme",
			wantApplied: true,
		},
		{
			name:   "unknown title",
			policy: fullPolicy,
			title:  "Not In Catalog",
		},
		{
			name:           "full policy increments and records",
			policy:         fullPolicy,
			title:          "Battle Theme",
			wantApplied:    true,
			wantOccurrence: 1,
			wantRecords:    1,
			wantTxCalls:    1,
			wantEvents:     1,
		},
		{
			name:           "occurrences only",
			policy:         config.TrackPlayPolicy{Enabled: true, UpdateOccurrences: true},
			title:          "Battle Theme",
			wantApplied:    true,
			wantOccurrence: 1,
			wantTxCalls:    1,
			wantEvents:     1,
		},
		{
			name:        "history only",
			policy:      config.TrackPlayPolicy{Enabled: true, RecordPlayHistory: true},
			title:       "Battle Theme",
			wantApplied: true,
			wantRecords: 1,
			wantTxCalls: 1,
			wantEvents:  1,
		},
		{
			name:        "found with no writes enabled still reports true",
			policy:      config.TrackPlayPolicy{Enabled: true},
			title:       "Battle Theme",
			wantApplied: true,
			wantEvents:  1,
		},
		{
			name:   "title match is exact",
			policy: fullPolicy,
			title:  "battle theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrackerFixture(tt.policy, 1, 1)

			applied, err := f.tracker.Track(context.Background(), play(tt.title))

			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
			assert.Equal(t, tt.wantOccurrence, f.occurrence(t))
			assert.Equal(t, tt.wantRecords, f.plays.count())
			assert.Equal(t, tt.wantTxCalls, f.tx.calls)
			assert.Len(t, f.publisher.types(), tt.wantEvents)
		})
	}
}

func TestPlayTracker_TrackIncrementsByExactlyOne(t *testing.T) {
	f := newTrackerFixture(fullPolicy, 1, 1)

	for range 3 {
		applied, err := f.tracker.Track(context.Background(), play("Battle Theme"))
		require.NoError(t, err)
		require.True(t, applied)
	}

	assert.Equal(t, 3, f.occurrence(t))
	assert.Equal(t, 3, f.plays.count())

	track, _ := f.tracks.get("Battle Theme")
	assert.NotNil(t, track.UpdatedAt)
	assert.Equal(t, []events.MessageType{events.TRACK_PLAYED, events.TRACK_PLAYED, events.TRACK_PLAYED},
		f.publisher.types())
}

func TestPlayTracker_TrackErrors(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		f := newTrackerFixture(fullPolicy, 1, 1)
		f.tracks.findErr = errors.New("connection refused")

		applied, err := f.tracker.Track(context.Background(), play("Battle Theme"))

		assert.Error(t, err)
		assert.False(t, applied)
	})

	t.Run("history write failure", func(t *testing.T) {
		f := newTrackerFixture(fullPolicy, 1, 1)
		f.plays.createErr = errors.New("insert failed")

		applied, err := f.tracker.Track(context.Background(), play("Battle Theme"))

		assert.Error(t, err)
		assert.False(t, applied)
		assert.Empty(t, f.publisher.types())
	})
}

func TestPlayTracker_WorkerPool(t *testing.T) {
	f := newTrackerFixture(fullPolicy, 3, 16)

	for range 10 {
		require.True(t, f.tracker.Submit(play("Battle Theme")))
	}

	f.tracker.Start(context.Background())
	f.tracker.Stop()

	assert.Equal(t, 10, f.occurrence(t))
	assert.Equal(t, 10, f.plays.count())
	assert.False(t, f.tracker.Submit(play("Battle Theme")))

	f.tracker.Stop()
}

func TestPlayTracker_SubmitDropsWhenFull(t *testing.T) {
	f := newTrackerFixture(fullPolicy, 1, 2)

	assert.True(t, f.tracker.Submit(play("Battle Theme")))
	assert.True(t, f.tracker.Submit(play("Battle Theme")))
	assert.False(t, f.tracker.Submit(play("Battle Theme")))

	f.tracker.Start(context.Background())
	f.tracker.Stop()
	assert.Equal(t, 2, f.occurrence(t))
}

func TestPlayTracker_Aggregates(t *testing.T) {
	f := newTrackerFixture(fullPolicy, 1, 1)
	f.tracks.insert(&models.Track{Title: "Never Played", Duration: "1:00"})

	for range 2 {
		_, err := f.tracker.Track(context.Background(), play("Battle Theme"))
		require.NoError(t, err)
	}

	total, err := f.tracker.TotalPlays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	played, err := f.tracker.PlayedSongsCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), played)
}
