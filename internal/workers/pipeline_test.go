package workers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/ai/offline"
	"github.com/sentinelai/sentinel/internal/blob"
	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
	"github.com/sentinelai/sentinel/internal/services/vector"
	storagebadger "github.com/sentinelai/sentinel/internal/storage/badger"
)

type pipelineEnv struct {
	pipeline *Pipeline
	storage  interfaces.StorageManager
	blobs    interfaces.BlobStore
	fabric   *queue.Fabric
	bus      *queue.StatusBus
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
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

	blobs, err := blob.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	bus := queue.NewStatusBus(logger)
	t.Cleanup(bus.Close)

	cfg := common.DefaultConfig()
	index := vector.NewIndex(manager.ChunkStorage(), logger)
	provider := offline.NewProvider(32)

	return &pipelineEnv{
		pipeline: NewPipeline(manager, blobs, fabric, bus, provider, index, cfg, logger),
		storage:  manager,
		blobs:    blobs,
		fabric:   fabric,
		bus:      bus,
	}
}

// seedArtifact stores a job, one artifact, and its original blob, and
// returns the work item that the upload handler would have enqueued.
func (e *pipelineEnv) seedArtifact(t *testing.T, job *models.Job, filename string, mediaType models.MediaType, language string, content []byte) (*models.Artifact, models.WorkItem) {
	t.Helper()
	ctx := context.Background()

	if _, err := e.storage.JobStorage().GetJob(ctx, job.ID); errors.Is(err, models.ErrNotFound) {
		require.NoError(t, e.storage.JobStorage().SaveJob(ctx, job))
	}

	blobPath := job.ID + "/" + filename
	require.NoError(t, e.blobs.Put(ctx, blobPath, bytes.NewReader(content)))

	artifact := &models.Artifact{
		ID:               "art_" + filename,
		JobID:            job.ID,
		OriginalFilename: filename,
		MediaType:        mediaType,
		SourceLanguage:   language,
		Status:           models.ArtifactStatusQueued,
		BlobPaths:        map[string]string{"original": blobPath},
		CreatedAt:        time.Now(),
	}
	require.NoError(t, e.storage.ArtifactStorage().SaveArtifact(ctx, artifact))

	return artifact, models.WorkItem{
		JobID:      job.ID,
		ArtifactID: artifact.ID,
		BlobPath:   blobPath,
		Filename:   filename,
		MediaType:  string(mediaType),
		Metadata:   models.WorkItemMetadata{Language: language},
	}
}

// drainGraphQueue consumes and processes graph work until the queue is empty
func (e *pipelineEnv) drainGraphQueue(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for {
		delivery, err := e.fabric.Consume(ctx, queue.QueueGraph)
		if errors.Is(err, models.ErrNoMessage) {
			return
		}
		require.NoError(t, err)
		require.NoError(t, e.pipeline.Process(ctx, queue.QueueGraph, delivery.Item))
		require.NoError(t, delivery.Ack())
	}
}

func testJob(id, caseName string, totalFiles int) *models.Job {
	return &models.Job{
		ID:            id,
		OwnerUserID:   "mgr",
		CaseName:      caseName,
		StoragePrefix: id,
		TotalFiles:    totalFiles,
		Status:        models.JobStatusQueued,
		CreatedAt:     time.Now(),
	}
}

func TestPipelineDocumentEndToEnd(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-doc", "operation-north", 1)
	content := []byte("Alice called Bob twice last week.\n\nBob then met Carol at the warehouse.")
	artifact, item := env.seedArtifact(t, job, "report.txt", models.MediaTypeDocument, "", content)

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueDocument, item))

	// Media stages done, artifact handed over to the graph stage
	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusAwaitingGraph, loaded.Status)
	assert.Empty(t, loaded.CurrentStage)
	assert.Contains(t, loaded.StageTimings, models.StageExtraction)
	assert.Contains(t, loaded.StageTimings, models.StageSummarization)
	assert.Contains(t, loaded.StageTimings, models.StageEmbeddings)
	assert.Equal(t, float64(0), loaded.StageTimings[models.StageTranslation], "undeclared language skips translation")
	assert.Contains(t, loaded.SummaryText, "Summary:")
	assert.NotEmpty(t, loaded.BlobPaths[models.StageExtraction])
	assert.NotEmpty(t, loaded.BlobPaths[models.StageSummarization])

	chunks, err := env.storage.ChunkStorage().GetChunksByJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0].Embedding, 32)

	// Job moved to processing when the first artifact started
	loadedJob, err := env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, loadedJob.Status)

	env.drainGraphQueue(t)

	loaded, err = env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusCompleted, loaded.Status)
	assert.Contains(t, loaded.StageTimings, models.StageGraphBuilding)

	loadedJob, err = env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loadedJob.Status)
	assert.Equal(t, 1, loadedJob.ProcessedFiles)

	// The offline extractor links capitalized names in mention order
	nodes, err := env.storage.GraphStorage().GetNodesByCase(ctx, "operation-north")
	require.NoError(t, err)
	labels := make([]string, len(nodes))
	for i, node := range nodes {
		labels[i] = node.Label
	}
	assert.Contains(t, labels, "Alice")
	assert.Contains(t, labels, "Bob")

	edges, err := env.storage.GraphStorage().GetEdgesByArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, edges)
}

func TestPipelineTranslatesForeignLanguage(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-es", "operation-north", 1)
	artifact, item := env.seedArtifact(t, job, "informe.txt", models.MediaTypeDocument, "es", []byte("El Sospechoso fue visto en Madrid."))

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueDocument, item))

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Contains(t, loaded.TranslationText, "[es->en]")
	assert.NotEmpty(t, loaded.BlobPaths[models.StageTranslation])
	assert.Contains(t, loaded.StageTimings, models.StageTranslation)

	// The graph stage consumes the most-processed derivative
	assert.Equal(t, loaded.BlobPaths[models.StageTranslation], loaded.TextBlobPath())
}

func TestPipelineAudioTranscript(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-audio", "operation-north", 1)
	artifact, item := env.seedArtifact(t, job, "call.wav", models.MediaTypeAudio, "en", []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01})

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueAudio, item))

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusAwaitingGraph, loaded.Status)
	assert.NotEmpty(t, loaded.TranscriptText)
	assert.Contains(t, loaded.StageTimings, models.StageTranscription)
	assert.NotEmpty(t, loaded.BlobPaths[models.StageTranscription])
}

func TestPipelineCDRSkipsEmbeddings(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-cdr", "operation-north", 1)
	require.NoError(t, env.storage.JobStorage().SaveJob(ctx, job))
	require.NoError(t, env.storage.SuspectStorage().SaveSuspects(ctx, []*models.Suspect{
		{
			ID:     "sus_1",
			JobID:  job.ID,
			Fields: []models.SuspectField{{ID: "f1", Key: "phone", Value: "0400111222"}},
		},
	}))

	csvData := []byte("caller,callee,duration\n0400111222,0400333444,120\n")
	artifact, item := env.seedArtifact(t, job, "records.csv", models.MediaTypeCDR, "", csvData)

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueCDR, item))

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusAwaitingGraph, loaded.Status)
	assert.Contains(t, loaded.StageTimings, models.StageParsing)
	assert.Contains(t, loaded.StageTimings, models.StageSuspectMatching)
	assert.NotContains(t, loaded.StageTimings, models.StageEmbeddings)

	chunks, err := env.storage.ChunkStorage().GetChunksByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The match report reaches the graph stage, not the raw CSV
	assert.Equal(t, loaded.BlobPaths[models.StageSuspectMatching], loaded.TextBlobPath())
}

func TestPipelineMixedOutcomesYieldPartialJob(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-mixed", "operation-north", 2)
	_, okItem := env.seedArtifact(t, job, "good.txt", models.MediaTypeDocument, "", []byte("Alice and Bob traded messages."))
	badArtifact, badItem := env.seedArtifact(t, job, "bad.txt", models.MediaTypeDocument, "", []byte("unreachable"))

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueDocument, okItem))
	env.drainGraphQueue(t)

	// Dead-lettered artifact fails terminally
	require.NoError(t, env.pipeline.FailArtifact(ctx, badItem, "retry budget exhausted"))

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, badArtifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusFailed, loaded.Status)
	assert.Equal(t, "retry budget exhausted", loaded.Error)

	loadedJob, err := env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPartial, loadedJob.Status)
	assert.Equal(t, 1, loadedJob.ProcessedFiles)
	assert.Equal(t, 1, loadedJob.FailedFiles)
}

func TestPipelineAllFailedYieldsFailedJob(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-fail", "operation-north", 1)
	artifact, item := env.seedArtifact(t, job, "bad.txt", models.MediaTypeDocument, "", []byte("x"))

	require.NoError(t, env.pipeline.FailArtifact(ctx, item, "boom"))

	loadedJob, err := env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, loadedJob.Status)

	// FailArtifact on an already-terminal artifact is a no-op
	require.NoError(t, env.pipeline.FailArtifact(ctx, item, "boom again"))
	loadedJob, err = env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loadedJob.FailedFiles)

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", loaded.Error)
}

func TestPipelineSkipsTerminalArtifactRedelivery(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-redeliver", "operation-north", 1)
	artifact, item := env.seedArtifact(t, job, "done.txt", models.MediaTypeDocument, "", []byte("already done"))

	artifact.Status = models.ArtifactStatusCompleted
	require.NoError(t, env.storage.ArtifactStorage().SaveArtifact(ctx, artifact))

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueDocument, item))

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusCompleted, loaded.Status)
	assert.Empty(t, loaded.StageTimings)
}

func TestPipelinePublishesStatusEvents(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-events", "operation-north", 1)
	_, item := env.seedArtifact(t, job, "report.txt", models.MediaTypeDocument, "", []byte("Alice met Bob."))

	events, cancel := env.bus.Subscribe(job.ID)
	defer cancel()

	require.NoError(t, env.pipeline.Process(ctx, queue.QueueDocument, item))
	env.drainGraphQueue(t)

	var sawJobProcessing, sawStageEntry, sawJobTerminal bool
	for {
		select {
		case event := <-events:
			switch event.Type {
			case models.EventTypeJobStatus:
				if event.Status == string(models.JobStatusProcessing) {
					sawJobProcessing = true
				}
				if event.Status == string(models.JobStatusCompleted) {
					sawJobTerminal = true
				}
			case models.EventTypeArtifactStatus:
				if event.CurrentStage != "" {
					sawStageEntry = true
				}
			}
		default:
			assert.True(t, sawJobProcessing, "expected a job processing event")
			assert.True(t, sawStageEntry, "expected artifact stage entry events")
			assert.True(t, sawJobTerminal, "expected the terminal job event")
			return
		}
	}
}
