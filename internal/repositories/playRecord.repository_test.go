package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayRecordRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("appends a record", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewPlayRecordRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "play_records"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		record := &models.PlayRecord{TrackID: 7}
		require.NoError(t, repo.Create(ctx, record))
		assert.False(t, record.PlayedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects records without a track", func(t *testing.T) {
		db, _ := setupTestDB(t)
		repo := NewPlayRecordRepository(db)

		assert.Error(t, repo.Create(ctx, &models.PlayRecord{}))
	})

	t.Run("insert failure surfaces", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewPlayRecordRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "play_records"`)).
			WillReturnError(errors.New("foreign key violation"))

		assert.Error(t, repo.Create(ctx, &models.PlayRecord{TrackID: 9}))
	})
}

func TestPlayRecordRepository_CountByTrack(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewPlayRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "play_records" WHERE track_id = $1`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByTrack(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
