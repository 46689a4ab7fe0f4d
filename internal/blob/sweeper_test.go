package blob

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
	storagebadger "github.com/sentinelai/sentinel/internal/storage/badger"
)

func newTestSweeper(t *testing.T) (*Sweeper, interfaces.StorageManager, *FilesystemStore) {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := storagebadger.NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	manager := storagebadger.NewManagerWithDB(logger, db)

	fabric, err := queue.NewFabric(db.Store().Badger(), time.Minute, 3, time.Second, logger)
	require.NoError(t, err)

	blobs, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	cfg := common.DefaultConfig()
	cfg.Sweeper.GracePeriod = "1ms"

	return NewSweeper(manager, blobs, fabric, cfg, logger), manager, blobs
}

func seedSweepJob(t *testing.T, manager interfaces.StorageManager, blobs *FilesystemStore, id string, status models.JobStatus, withArtifact bool) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, manager.JobStorage().SaveJob(ctx, &models.Job{
		ID:            id,
		OwnerUserID:   "mgr",
		CaseName:      "operation-north",
		StoragePrefix: id,
		TotalFiles:    1,
		Status:        status,
		CreatedAt:     time.Now(),
	}))
	require.NoError(t, blobs.Put(ctx, id+"/report.txt", bytes.NewReader([]byte("evidence"))))

	if withArtifact {
		require.NoError(t, manager.ArtifactStorage().SaveArtifact(ctx, &models.Artifact{
			ID:        "art_" + id,
			JobID:     id,
			MediaType: models.MediaTypeDocument,
			Status:    models.ArtifactStatusFailed,
			BlobPaths: map[string]string{"original": id + "/report.txt"},
			CreatedAt: time.Now(),
		}))
	}
}

func TestSweeperRemovesOrphanedFailedJobBlobs(t *testing.T) {
	sweeper, manager, blobs := newTestSweeper(t)
	ctx := context.Background()

	// Failed before any artifact row existed: these blobs are orphans
	seedSweepJob(t, manager, blobs, "mgr/mgr/orphaned", models.JobStatusFailed, false)
	// Failed with an artifact row: a DLQ requeue may still need the blob
	seedSweepJob(t, manager, blobs, "mgr/mgr/retryable", models.JobStatusFailed, true)
	// Not failed at all
	seedSweepJob(t, manager, blobs, "mgr/mgr/live", models.JobStatusProcessing, false)

	// Let every job age past the grace period
	time.Sleep(20 * time.Millisecond)
	sweeper.Sweep(ctx)

	swept, err := blobs.List(ctx, "mgr/mgr/orphaned")
	require.NoError(t, err)
	assert.Empty(t, swept)

	kept, err := blobs.List(ctx, "mgr/mgr/retryable")
	require.NoError(t, err)
	assert.Len(t, kept, 1, "failed job with artifact rows keeps its blobs")

	live, err := blobs.List(ctx, "mgr/mgr/live")
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestSweeperHonorsGracePeriod(t *testing.T) {
	sweeper, manager, blobs := newTestSweeper(t)
	sweeper.gracePeriod = time.Hour
	ctx := context.Background()

	seedSweepJob(t, manager, blobs, "mgr/mgr/fresh", models.JobStatusFailed, false)
	sweeper.Sweep(ctx)

	kept, err := blobs.List(ctx, "mgr/mgr/fresh")
	require.NoError(t, err)
	assert.Len(t, kept, 1, "recently failed jobs are left alone")
}
