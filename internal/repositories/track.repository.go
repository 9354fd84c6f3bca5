package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contextutil "github.com/Larry-Schultz/FFTBViewerV3/internal/context"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	. "github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateTitle is returned when an insert collides with the unique title index.
var ErrDuplicateTitle = errors.New("track title already exists")

const (
	DEFAULT_PAGE_SIZE = 50
	MAX_PAGE_SIZE     = 200
)

var trackSortColumns = map[string]string{
	"title":      "title",
	"duration":   "duration",
	"occurrence": "occurrence",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
}

// TrackListQuery describes one page of the catalog listing.
type TrackListQuery struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
	Search        string
}

// Normalize clamps paging and falls back to title ascending for unknown sorts.
func (q TrackListQuery) Normalize() TrackListQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DEFAULT_PAGE_SIZE
	}
	if q.Size > MAX_PAGE_SIZE {
		q.Size = MAX_PAGE_SIZE
	}
	if _, ok := trackSortColumns[q.SortBy]; !ok {
		q.SortBy = "title"
	}
	q.SortDirection = strings.ToLower(q.SortDirection)
	if q.SortDirection != "desc" {
		q.SortDirection = "asc"
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q TrackListQuery) orderClause() string {
	return fmt.Sprintf("%s %s NULLS LAST, id ASC", trackSortColumns[q.SortBy], strings.ToUpper(q.SortDirection))
}

type TrackPage struct {
	Tracks     []*Track `json:"tracks"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	TotalPages int      `json:"totalPages"`
}

// TrackRepository is the catalog store. Lookups by title are exact and
// case-sensitive; the listing search is case-insensitive.
type TrackRepository interface {
	FindByTitle(ctx context.Context, title string) (*Track, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	ListAllTitles(ctx context.Context) ([]string, error)
	SaveAll(ctx context.Context, tracks []*Track) error
	Save(ctx context.Context, track *Track) error
	DeleteByTitles(ctx context.Context, titles []string) (int64, error)
	UpdateDurationIfMatches(ctx context.Context, title, newDuration, expectedOldDuration string) (int64, error)
	IncrementOccurrence(ctx context.Context, trackID int, playedAt time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	SumOccurrences(ctx context.Context) (int64, error)
	CountPlayed(ctx context.Context) (int64, error)
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
	LatestUpdatedAt(ctx context.Context) (*time.Time, error)
	List(ctx context.Context, query TrackListQuery) (*TrackPage, error)
	MostPlayed(ctx context.Context, limit int) ([]*Track, error)
	RecentlyAdded(ctx context.Context, limit int) ([]*Track, error)
}

type trackRepository struct {
	db  database.DB
	log logger.Logger
}

func NewTrackRepository(db database.DB) TrackRepository {
	return &trackRepository{
		db:  db,
		log: logger.New("trackRepository"),
	}
}

func (r *trackRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func translateInsertError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateTitle, err)
	}
	return err
}

func (r *trackRepository) FindByTitle(ctx context.Context, title string) (*Track, error) {
	log := r.log.Function("FindByTitle")

	var track Track
	err := r.getDB(ctx).Where("title = ?", title).First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, log.Err("failed to find track by title", err, "title", title)
	}

	return &track, nil
}

func (r *trackRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	log := r.log.Function("ExistsByTitle")

	var count int64
	if err := r.getDB(ctx).Model(&Track{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, log.Err("failed to check track existence", err, "title", title)
	}

	return count > 0, nil
}

func (r *trackRepository) ListAllTitles(ctx context.Context) ([]string, error) {
	log := r.log.Function("ListAllTitles")

	var titles []string
	if err := r.getDB(ctx).Model(&Track{}).Pluck("title", &titles).Error; err != nil {
		return nil, log.Err("failed to list track titles", err)
	}

	return titles, nil
}

// SaveAll inserts the tracks in one statement. A unique violation on any row
// fails the whole statement with ErrDuplicateTitle.
func (r *trackRepository) SaveAll(ctx context.Context, tracks []*Track) error {
	if len(tracks) == 0 {
		return nil
	}

	if err := r.getDB(ctx).Create(&tracks).Error; err != nil {
		err = translateInsertError(err)
		if errors.Is(err, ErrDuplicateTitle) {
			r.log.Function("SaveAll").Debug("batch hit an existing title", "batchSize", len(tracks))
			return err
		}
		return r.log.Function("SaveAll").Err("failed to insert track batch", err, "batchSize", len(tracks))
	}

	return nil
}

func (r *trackRepository) Save(ctx context.Context, track *Track) error {
	if err := r.getDB(ctx).Create(track).Error; err != nil {
		err = translateInsertError(err)
		if errors.Is(err, ErrDuplicateTitle) {
			return err
		}
		return r.log.Function("Save").Err("failed to insert track", err, "title", track.Title)
	}

	return nil
}

func (r *trackRepository) DeleteByTitles(ctx context.Context, titles []string) (int64, error) {
	log := r.log.Function("DeleteByTitles")

	if len(titles) == 0 {
		return 0, nil
	}

	result := r.getDB(ctx).Where("title IN ?", titles).Delete(&Track{})
	if result.Error != nil {
		return 0, log.Err("failed to delete tracks", result.Error, "count", len(titles))
	}

	return result.RowsAffected, nil
}

// UpdateDurationIfMatches only touches the row while it still carries
// expectedOldDuration, so a concurrent repair is never overwritten.
func (r *trackRepository) UpdateDurationIfMatches(
	ctx context.Context,
	title, newDuration, expectedOldDuration string,
) (int64, error) {
	log := r.log.Function("UpdateDurationIfMatches")

	result := r.getDB(ctx).
		Model(&Track{}).
		Where("title = ? AND duration = ?", title, expectedOldDuration).
		Updates(map[string]any{
			"duration":   newDuration,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, log.Err("failed to update track duration", result.Error, "title", title)
	}

	return result.RowsAffected, nil
}

func (r *trackRepository) IncrementOccurrence(ctx context.Context, trackID int, playedAt time.Time) (int64, error) {
	log := r.log.Function("IncrementOccurrence")

	result := r.getDB(ctx).
		Model(&Track{}).
		Where("id = ?", trackID).
		Updates(map[string]any{
			"occurrence": gorm.Expr("occurrence + ?", 1),
			"updated_at": playedAt,
		})
	if result.Error != nil {
		return 0, log.Err("failed to increment occurrence", result.Error, "trackID", trackID)
	}

	return result.RowsAffected, nil
}

func (r *trackRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&Track{}).Count(&count).Error; err != nil {
		return 0, r.log.Function("Count").Err("failed to count tracks", err)
	}
	return count, nil
}

func (r *trackRepository) SumOccurrences(ctx context.Context) (int64, error) {
	var total int64
	err := r.getDB(ctx).Model(&Track{}).Select("COALESCE(SUM(occurrence), 0)").Scan(&total).Error
	if err != nil {
		return 0, r.log.Function("SumOccurrences").Err("failed to sum occurrences", err)
	}
	return total, nil
}

func (r *trackRepository) CountPlayed(ctx context.Context) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&Track{}).Where("occurrence > 0").Count(&count).Error; err != nil {
		return 0, r.log.Function("CountPlayed").Err("failed to count played tracks", err)
	}
	return count, nil
}

func (r *trackRepository) latest(ctx context.Context, column string) (*time.Time, error) {
	var latest sql.NullTime
	err := r.getDB(ctx).Model(&Track{}).Select(fmt.Sprintf("MAX(%s)", column)).Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *trackRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	latest, err := r.latest(ctx, "created_at")
	if err != nil {
		return nil, r.log.Function("LatestCreatedAt").Err("failed to load latest created_at", err)
	}
	return latest, nil
}

func (r *trackRepository) LatestUpdatedAt(ctx context.Context) (*time.Time, error) {
	latest, err := r.latest(ctx, "updated_at")
	if err != nil {
		return nil, r.log.Function("LatestUpdatedAt").Err("failed to load latest updated_at", err)
	}
	return latest, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func (r *trackRepository) List(ctx context.Context, query TrackListQuery) (*TrackPage, error) {
	log := r.log.Function("List")
	query = query.Normalize()

	base := r.getDB(ctx).Model(&Track{})
	if query.Search != "" {
		base = base.Where("title ILIKE ?", "%"+escapeLike(query.Search)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, log.Err("failed to count tracks", err, "search", query.Search)
	}

	tracks := []*Track{}
	err := base.Session(&gorm.Session{}).
		Order(query.orderClause()).
		Offset(query.Page * query.Size).
		Limit(query.Size).
		Find(&tracks).Error
	if err != nil {
		return nil, log.Err("failed to list tracks", err, "page", query.Page, "size", query.Size)
	}

	totalPages := int((total + int64(query.Size) - 1) / int64(query.Size))

	return &TrackPage{
		Tracks:     tracks,
		Total:      total,
		Page:       query.Page,
		Size:       query.Size,
		TotalPages: totalPages,
	}, nil
}

func (r *trackRepository) MostPlayed(ctx context.Context, limit int) ([]*Track, error) {
	tracks := []*Track{}
	err := r.getDB(ctx).
		Where("occurrence > 0").
		Order("occurrence DESC, title ASC").
		Limit(limit).
		Find(&tracks).Error
	if err != nil {
		return nil, r.log.Function("MostPlayed").Err("failed to load most played tracks", err)
	}
	return tracks, nil
}

func (r *trackRepository) RecentlyAdded(ctx context.Context, limit int) ([]*Track, error) {
	tracks := []*Track{}
	err := r.getDB(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&tracks).Error
	if err != nil {
		return nil, r.log.Function("RecentlyAdded").Err("failed to load recently added tracks", err)
	}
	return tracks, nil
}
