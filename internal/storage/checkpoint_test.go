package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckpoints(t *testing.T) (*CSVStore, *CheckpointManager) {
	t.Helper()
	dir := t.TempDir()

	store, err := NewCSVStore(filepath.Join(dir, "expenses.csv"))
	require.NoError(t, err)
	require.NoError(t, store.SaveAll(context.Background(), createTestRecords()))

	cm, err := NewCheckpointManager(store, filepath.Join(dir, "checkpoints"))
	require.NoError(t, err)
	return store, cm
}

func TestCheckpointManager_CreateAndRestore(t *testing.T) {
	ctx := context.Background()
	store, cm := setupCheckpoints(t)

	info, err := cm.Create(ctx, "before-import", "Before importing")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, 3, info.Records)
	assert.Positive(t, info.FileSize)

	require.NoError(t, store.SaveAll(ctx, createTestRecords()[:1]))

	require.NoError(t, cm.Restore(ctx, "before-import"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assertRecordsEqual(t, createTestRecords(), got)
}

func TestCheckpointManager_Errors(t *testing.T) {
	ctx := context.Background()
	_, cm := setupCheckpoints(t)

	_, err := cm.Create(ctx, "dup", "")
	require.NoError(t, err)

	_, err = cm.Create(ctx, "dup", "")
	assert.ErrorIs(t, err, ErrCheckpointExists)

	for _, tag := range []string{"../escape", "a/b", `a\b`} {
		_, err = cm.Create(ctx, tag, "")
		assert.ErrorIs(t, err, ErrInvalidCheckpoint, tag)
	}

	assert.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
	assert.ErrorIs(t, cm.Delete(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpointManager_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	_, cm := setupCheckpoints(t)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err := cm.Create(ctx, "first", "")
	require.NoError(t, err)
	_, err = cm.Create(ctx, "second", "")
	require.NoError(t, err)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, "first", list[1].ID)

	require.NoError(t, cm.Delete(ctx, "first"))
	list, err = cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = os.Stat(filepath.Join(cm.checkpointsDir, "first.meta.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckpointManager_RestoreDetectsTampering(t *testing.T) {
	ctx := context.Background()
	_, cm := setupCheckpoints(t)

	_, err := cm.Create(ctx, "snap", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cm.snapshotPath("snap"), []byte("Type,Amount\nIncome,1\n"), 0600))
	assert.ErrorIs(t, cm.Restore(ctx, "snap"), ErrCheckpointCorrupted)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	ctx := context.Background()
	_, cm := setupCheckpoints(t)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < maxAutoCheckpoints+2; i++ {
		_, err := cm.AutoCheckpoint(ctx, "import")
		require.NoError(t, err)
	}
	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	list, err := cm.List(ctx)
	require.NoError(t, err)

	auto := 0
	for _, cp := range list {
		if cp.IsAuto {
			auto++
		}
	}
	assert.Equal(t, maxAutoCheckpoints, auto)
	assert.Len(t, list, maxAutoCheckpoints+1)
}
