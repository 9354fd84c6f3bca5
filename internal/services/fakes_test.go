package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"

	"gorm.io/gorm"
)

// memoryTrackRepository is an in-memory catalog with the same uniqueness and
// conditional-update semantics as the SQL repository.
type memoryTrackRepository struct {
	mu      sync.Mutex
	nextID  int
	byTitle map[string]*models.Track

	saveAllCalls    int
	saveCalls       int
	deleteCalls     int
	deleteErrOnCall map[int]error
	saveAllErr      error
	saveErr         error
	findErr         error
	listTitlesErr   error
	raceTitles      map[string]bool
}

func newMemoryTrackRepository(tracks ...*models.Track) *memoryTrackRepository {
	repo := &memoryTrackRepository{
		byTitle:         make(map[string]*models.Track),
		deleteErrOnCall: make(map[int]error),
		raceTitles:      make(map[string]bool),
	}
	for _, track := range tracks {
		repo.insert(track)
	}
	return repo
}

func (r *memoryTrackRepository) insert(track *models.Track) {
	r.nextID++
	copied := *track
	copied.ID = r.nextID
	if copied.Duration == "" {
		copied.Duration = models.DefaultDuration
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	r.byTitle[copied.Title] = &copied
	track.ID = copied.ID
}

func (r *memoryTrackRepository) get(title string) (models.Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.byTitle[title]
	if !ok {
		return models.Track{}, false
	}
	return *track, true
}

func (r *memoryTrackRepository) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, 0, len(r.byTitle))
	for title := range r.byTitle {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

func (r *memoryTrackRepository) FindByTitle(ctx context.Context, title string) (*models.Track, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	track, ok := r.get(title)
	if !ok {
		return nil, nil
	}
	return &track, nil
}

func (r *memoryTrackRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	_, ok := r.get(title)
	return ok, nil
}

func (r *memoryTrackRepository) ListAllTitles(ctx context.Context) ([]string, error) {
	if r.listTitlesErr != nil {
		return nil, r.listTitlesErr
	}
	return r.titles(), nil
}

func (r *memoryTrackRepository) SaveAll(ctx context.Context, tracks []*models.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveAllCalls++

	if r.saveAllErr != nil {
		return r.saveAllErr
	}

	// simulate a concurrent writer inserting the race titles first
	for title := range r.raceTitles {
		if _, ok := r.byTitle[title]; !ok {
			r.insert(&models.Track{Title: title})
		}
	}

	for _, track := range tracks {
		if _, ok := r.byTitle[track.Title]; ok {
			return repositories.ErrDuplicateTitle
		}
	}
	for _, track := range tracks {
		r.insert(track)
	}
	return nil
}

func (r *memoryTrackRepository) Save(ctx context.Context, track *models.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++

	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.byTitle[track.Title]; ok {
		return repositories.ErrDuplicateTitle
	}
	r.insert(track)
	return nil
}

func (r *memoryTrackRepository) DeleteByTitles(ctx context.Context, titles []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++

	if err, ok := r.deleteErrOnCall[r.deleteCalls]; ok {
		return 0, err
	}

	var deleted int64
	for _, title := range titles {
		if _, ok := r.byTitle[title]; ok {
			delete(r.byTitle, title)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryTrackRepository) UpdateDurationIfMatches(
	ctx context.Context,
	title, newDuration, expectedOldDuration string,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	track, ok := r.byTitle[title]
	if !ok || track.Duration != expectedOldDuration {
		return 0, nil
	}
	now := time.Now().UTC()
	track.Duration = newDuration
	track.UpdatedAt = &now
	return 1, nil
}

func (r *memoryTrackRepository) IncrementOccurrence(ctx context.Context, trackID int, playedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, track := range r.byTitle {
		if track.ID == trackID {
			track.Occurrence++
			at := playedAt
			track.UpdatedAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memoryTrackRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byTitle)), nil
}

func (r *memoryTrackRepository) SumOccurrences(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, track := range r.byTitle {
		total += int64(track.Occurrence)
	}
	return total, nil
}

func (r *memoryTrackRepository) CountPlayed(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, track := range r.byTitle {
		if track.Occurrence > 0 {
			count++
		}
	}
	return count, nil
}

func (r *memoryTrackRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, track := range r.byTitle {
		if latest == nil || track.CreatedAt.After(*latest) {
			at := track.CreatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (r *memoryTrackRepository) LatestUpdatedAt(ctx context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, track := range r.byTitle {
		if track.UpdatedAt != nil && (latest == nil || track.UpdatedAt.After(*latest)) {
			at := *track.UpdatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (r *memoryTrackRepository) List(
	ctx context.Context,
	query repositories.TrackListQuery,
) (*repositories.TrackPage, error) {
	return nil, errors.New("not implemented")
}

func (r *memoryTrackRepository) sorted(less func(a, b *models.Track) bool, keep func(*models.Track) bool, limit int) []*models.Track {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracks := make([]*models.Track, 0, len(r.byTitle))
	for _, track := range r.byTitle {
		if keep(track) {
			copied := *track
			tracks = append(tracks, &copied)
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return less(tracks[i], tracks[j]) })
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}

func (r *memoryTrackRepository) MostPlayed(ctx context.Context, limit int) ([]*models.Track, error) {
	return r.sorted(
		func(a, b *models.Track) bool {
			if a.Occurrence != b.Occurrence {
				return a.Occurrence > b.Occurrence
			}
			return a.Title < b.Title
		},
		func(t *models.Track) bool { return t.Occurrence > 0 },
		limit,
	), nil
}

func (r *memoryTrackRepository) RecentlyAdded(ctx context.Context, limit int) ([]*models.Track, error) {
	return r.sorted(
		func(a, b *models.Track) bool { return a.ID > b.ID },
		func(t *models.Track) bool { return true },
		limit,
	), nil
}

type memoryPlayRecordRepository struct {
	mu        sync.Mutex
	records   []*models.PlayRecord
	createErr error
}

func (r *memoryPlayRecordRepository) Create(ctx context.Context, record *models.PlayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memoryPlayRecordRepository) Recent(ctx context.Context, limit int) ([]*models.PlayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, nil
}

func (r *memoryPlayRecordRepository) CountByTrack(ctx context.Context, trackID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, record := range r.records {
		if record.TrackID == trackID {
			count++
		}
	}
	return count, nil
}

func (r *memoryPlayRecordRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memorySyncRunRepository struct {
	mu   sync.Mutex
	runs []models.SyncRun
}

func (r *memorySyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.SyncStatusRunning
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memorySyncRunRepository) Update(ctx context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[len(r.runs)-1] = *run
	return nil
}

func (r *memorySyncRunRepository) GetLatest(ctx context.Context) (*models.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) == 0 {
		return nil, nil
	}
	run := r.runs[len(r.runs)-1]
	return &run, nil
}

func (r *memorySyncRunRepository) GetLatestChanged(ctx context.Context) (*models.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.runs) - 1; i >= 0; i-- {
		run := r.runs[i]
		if run.Status == models.SyncStatusCompleted && run.Stats.Data().Changed() {
			return &run, nil
		}
	}
	return nil, nil
}

type staticFeed struct {
	mu    sync.Mutex
	body  []byte
	calls int
	block chan struct{}
}

func (f *staticFeed) Fetch(ctx context.Context) []byte {
	f.mu.Lock()
	f.calls++
	block := f.block
	body := f.body
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return body
}

func (f *staticFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *staticFeed) set(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = []byte(body)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(channel events.Channel, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []events.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.MessageType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type passthroughTransactor struct {
	mu    sync.Mutex
	calls int
}

func (t *passthroughTransactor) Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(ctx, nil)
}
