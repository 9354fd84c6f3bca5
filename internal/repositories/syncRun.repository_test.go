package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncRunColumns = []string{"id", "created_at", "trigger", "status", "started_at", "finished_at", "stats", "error_message", "requested_by"}

func TestSyncRunRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSyncRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sync_runs"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &models.SyncRun{Trigger: models.SyncTriggerManual}
	require.NoError(t, repo.Create(context.Background(), run))

	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, models.SyncStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunRepository_GetLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes stats", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewSyncRunRepository(db)
		started := time.Now().UTC().Add(-time.Minute)
		finished := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sync_runs" ORDER BY started_at DESC`)).
			WillReturnRows(sqlmock.NewRows(syncRunColumns).AddRow(
				uuid.New(), started, "scheduled", "completed", started, finished,
				[]byte(`{"added":3,"catalogSize":3}`), nil, nil,
			))

		run, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, run)
		assert.Equal(t, models.SyncStatusCompleted, run.Status)
		assert.Equal(t, 3, run.Stats.Data().Added)
		assert.Equal(t, int64(3), run.Stats.Data().CatalogSize)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no runs yet", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sync_runs"`)).
			WillReturnRows(sqlmock.NewRows(syncRunColumns))

		run, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, run)
	})
}

func TestSyncRunRepository_GetLatestChanged(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSyncRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sync_runs" WHERE status = $1 AND (` + changedRunCondition + `) ORDER BY finished_at DESC`)).
		WithArgs(models.SyncStatusCompleted, 1).
		WillReturnRows(sqlmock.NewRows(syncRunColumns))

	run, err := repo.GetLatestChanged(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}
