package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "useretl/pkg/errors"
	"useretl/pkg/models"
	"useretl/pkg/storage"
	"useretl/pkg/storage/storagetest"
)

func setupStore(t *testing.T) (context.Context, *storage.Store) {
	t.Helper()
	db := storagetest.SetupTestDB(t)
	store := storage.NewStore(db)

	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	return ctx, store
}

func newUser(name string) *models.UserInfo {
	return &models.UserInfo{
		FullName:    name,
		Gender:      "female",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1990, 6, 15, 10, 30, 0, 0, time.UTC),
		Age:         34,
		City:        "London",
		State:       "Greater London",
		Country:     "United Kingdom",
		Phone:       "020-1234",
		Nationality: "GB",
		Username:    "abc",
		Password:    "xyz123",
		HashUser:    "cba23xyz1",
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx, store := setupStore(t)

	require.NoError(t, store.EnsureSchema(ctx))

	storagetest.AssertTableExists(t, store.DB(), "random_users")
	storagetest.AssertTableExists(t, store.DB(), "ingest_runs")
}

func TestInsertUser(t *testing.T) {
	ctx, store := setupStore(t)

	require.NoError(t, store.InsertUser(ctx, newUser("Ada Lovelace")))
	require.NoError(t, store.InsertUser(ctx, newUser("Ada Lovelace")), "duplicates are allowed")

	n, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var row storage.UserDao
	require.NoError(t, store.DB().NewSelect().Model(&row).Order("id ASC").Limit(1).Scan(ctx))
	assert.Equal(t, "Ada Lovelace", row.FullName)
	assert.Equal(t, 34, row.Age)
	assert.Equal(t, "GB", row.Nationality)
	assert.True(t, row.DOB.Equal(time.Date(1990, 6, 15, 10, 30, 0, 0, time.UTC)))
}

func TestInsertUserAndThenRollsBackOnCallbackError(t *testing.T) {
	ctx, store := setupStore(t)

	calls := 0
	require.NoError(t, store.InsertUserAndThen(ctx, newUser("Kept"), func() error {
		calls++
		return nil
	}))

	boom := errors.New("checkpoint write failed")
	err := store.InsertUserAndThen(ctx, newUser("Dropped"), func() error { return boom })
	require.Error(t, err)
	assert.True(t, errs.IsPersist(err))
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, calls)
	storagetest.AssertRowCount(t, store.DB(), "random_users", 1)
}

func TestRecordRun(t *testing.T) {
	ctx, store := setupStore(t)

	started := time.Now().UTC().Truncate(time.Second)
	run := &storage.RunDao{
		RunID:            uuid.NewString(),
		StartIndex:       0,
		EndIndex:         149,
		CheckpointBefore: -1,
		CheckpointAfter:  149,
		Fetched:          149,
		Inserted:         149,
		Skipped:          1,
		SkippedIndices:   []int64{37},
		Policy:           "skip",
		StartedAt:        started,
		FinishedAt:       started.Add(time.Minute),
	}
	require.NoError(t, store.RecordRun(ctx, run))

	runs, err := store.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, []int64{37}, runs[0].SkippedIndices)
	assert.Equal(t, -1, runs[0].CheckpointBefore)
	assert.Nil(t, runs[0].Error)
}
