package playlistController

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) ForceSync(ctx context.Context) (*services.SyncResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*services.SyncResult)
	return result, args.Error(1)
}

func (m *mockSyncer) IsSyncing() bool {
	return m.Called().Bool(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Stats(ctx context.Context) (*services.CatalogStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*services.CatalogStats)
	return stats, args.Error(1)
}

func (m *mockCatalog) ListSongs(ctx context.Context, query repositories.TrackListQuery) (*repositories.TrackPage, error) {
	args := m.Called(ctx, query)
	page, _ := args.Get(0).(*repositories.TrackPage)
	return page, args.Error(1)
}

func (m *mockCatalog) MostPlayed(ctx context.Context, limit int) ([]*Track, error) {
	args := m.Called(ctx, limit)
	tracks, _ := args.Get(0).([]*Track)
	return tracks, args.Error(1)
}

func (m *mockCatalog) RecentlyAdded(ctx context.Context, limit int) ([]*Track, error) {
	args := m.Called(ctx, limit)
	tracks, _ := args.Get(0).([]*Track)
	return tracks, args.Error(1)
}

func (m *mockCatalog) RecentPlays(ctx context.Context, limit int) ([]*PlayRecord, error) {
	args := m.Called(ctx, limit)
	plays, _ := args.Get(0).([]*PlayRecord)
	return plays, args.Error(1)
}

func (m *mockCatalog) LatestSyncRun(ctx context.Context) (*SyncRun, error) {
	args := m.Called(ctx)
	run, _ := args.Get(0).(*SyncRun)
	return run, args.Error(1)
}

func newTestController() (*PlaylistController, *mockSyncer, *mockCatalog) {
	syncer := &mockSyncer{}
	catalog := &mockCatalog{}
	return &PlaylistController{syncer: syncer, catalog: catalog}, syncer, catalog
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name       string
		stats      *services.CatalogStats
		syncing    bool
		wantStatus string
		wantAvail  bool
	}{
		{
			name:       "empty catalog",
			stats:      &services.CatalogStats{},
			wantStatus: STATUS_READY,
			wantAvail:  false,
		},
		{
			name:       "populated catalog",
			stats:      &services.CatalogStats{TotalSongs: 12, TotalPlays: 40, PlayedSongs: 5},
			wantStatus: STATUS_READY,
			wantAvail:  true,
		},
		{
			name:       "sync in flight",
			stats:      &services.CatalogStats{TotalSongs: 12},
			syncing:    true,
			wantStatus: STATUS_SYNCING,
			wantAvail:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, syncer, catalog := newTestController()
			catalog.On("Stats", mock.Anything).Return(tt.stats, nil)
			syncer.On("IsSyncing").Return(tt.syncing)

			status, err := pc.GetStatus(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.stats.TotalSongs, status.TotalSongs)
			assert.Equal(t, tt.wantAvail, status.IsAvailable)
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, tt.stats.TotalPlays, status.TotalPlays)
			assert.Equal(t, tt.stats.PlayedSongs, status.PlayedSongs)
		})
	}
}

func TestGetStatus_StatsError(t *testing.T) {
	pc, _, catalog := newTestController()
	catalog.On("Stats", mock.Anything).Return(nil, errors.New("db down"))

	status, err := pc.GetStatus(context.Background())
	assert.Error(t, err)
	assert.Nil(t, status)
}

func TestForceSync(t *testing.T) {
	pc, syncer, _ := newTestController()
	want := &services.SyncResult{Trigger: SyncTriggerManual, Stats: SyncStats{Added: 3}}
	syncer.On("ForceSync", mock.Anything).Return(want, nil).Once()

	result, err := pc.ForceSync(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, result)
	syncer.AssertExpectations(t)
}

func TestForceSync_Error(t *testing.T) {
	pc, syncer, _ := newTestController()
	syncer.On("ForceSync", mock.Anything).Return(nil, errors.New("feed broken"))

	result, err := pc.ForceSync(context.Background())
	assert.EqualError(t, err, "feed broken")
	assert.Nil(t, result)
}

func TestGetLatestSongTimes(t *testing.T) {
	pc, _, catalog := newTestController()
	added := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	changed := added.Add(time.Hour)
	catalog.On("Stats", mock.Anything).Return(&services.CatalogStats{
		LatestSongAdded:  &added,
		LatestChangeTime: &changed,
	}, nil)

	times, err := pc.GetLatestSongTimes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, added, *times.LatestSongAdded)
	assert.Equal(t, changed, *times.LatestChangeTime)
}

func TestListingsDelegateToCatalog(t *testing.T) {
	pc, _, catalog := newTestController()
	ctx := context.Background()
	tracks := []*Track{{ID: 1, Title: "Antipyretic"}}
	query := repositories.TrackListQuery{Page: 1, Size: 10, SortBy: "occurrence"}

	catalog.On("ListSongs", ctx, query).Return(&repositories.TrackPage{Tracks: tracks, Total: 1}, nil)
	catalog.On("MostPlayed", ctx, 5).Return(tracks, nil)
	catalog.On("RecentlyAdded", ctx, 3).Return(tracks, nil)
	catalog.On("RecentPlays", ctx, 7).Return([]*PlayRecord{{TrackID: 1}}, nil)

	page, err := pc.ListSongs(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	mostPlayed, err := pc.GetMostPlayed(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, mostPlayed, 1)

	recent, err := pc.GetRecentlyAdded(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	plays, err := pc.GetRecentPlays(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, plays, 1)

	catalog.AssertExpectations(t)
}
