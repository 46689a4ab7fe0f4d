package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
)

// Pipeline carries the collaborators every stage needs. One instance is
// shared by all worker pools; per-artifact state lives on the artifact row.
type Pipeline struct {
	storage  interfaces.StorageManager
	blobs    interfaces.BlobStore
	fabric   interfaces.QueueFabric
	bus      interfaces.StatusBus
	provider interfaces.AIProvider
	index    interfaces.VectorIndex
	config   *common.Config
	logger   arbor.ILogger
}

// NewPipeline creates the shared stage pipeline
func NewPipeline(
	storage interfaces.StorageManager,
	blobs interfaces.BlobStore,
	fabric interfaces.QueueFabric,
	bus interfaces.StatusBus,
	provider interfaces.AIProvider,
	index interfaces.VectorIndex,
	config *common.Config,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		storage:  storage,
		blobs:    blobs,
		fabric:   fabric,
		bus:      bus,
		provider: provider,
		index:    index,
		config:   config,
		logger:   logger,
	}
}

// Process runs the pipeline for one work item. Returning an error sends the
// item back through the queue's retry path.
func (p *Pipeline) Process(ctx context.Context, queueName string, item models.WorkItem) error {
	artifact, err := p.storage.ArtifactStorage().GetArtifact(ctx, item.ArtifactID)
	if err != nil {
		return fmt.Errorf("failed to load artifact %s: %w", item.ArtifactID, err)
	}
	if artifact.Status.IsTerminal() {
		// Redelivery of already-finished work, nothing to do
		p.logger.Debug().Str("artifact_id", artifact.ID).Msg("Skipping terminal artifact redelivery")
		return nil
	}

	if artifact.Status == models.ArtifactStatusQueued {
		p.markJobProcessing(ctx, artifact.JobID)
	}

	switch queueName {
	case queue.QueueDocument:
		return p.processDocument(ctx, artifact, item)
	case queue.QueueAudio:
		return p.processAudio(ctx, artifact, item)
	case queue.QueueVideo:
		return p.processVideo(ctx, artifact, item)
	case queue.QueueCDR:
		return p.processCDR(ctx, artifact, item)
	case queue.QueueGraph:
		return p.processGraph(ctx, artifact, item)
	default:
		return fmt.Errorf("no pipeline for queue %s", queueName)
	}
}

// markJobProcessing moves a queued job to processing when its first
// artifact starts
func (p *Pipeline) markJobProcessing(ctx context.Context, jobID string) {
	updated, err := p.storage.JobStorage().UpdateJob(ctx, jobID, func(job *models.Job) error {
		if job.Status == models.JobStatusQueued {
			job.Status = models.JobStatusProcessing
		}
		return nil
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job processing")
		return
	}
	if updated.Status == models.JobStatusProcessing {
		p.bus.Publish(jobID, models.StatusEvent{
			Type:   models.EventTypeJobStatus,
			JobID:  jobID,
			Status: string(updated.Status),
		})
	}
}

// runStage executes one stage under its wall-clock budget, publishing the
// stage entry on the status channel and recording elapsed seconds on exit.
func (p *Pipeline) runStage(ctx context.Context, artifact *models.Artifact, stage string, fn func(ctx context.Context) error) error {
	artifact.Status = models.ArtifactStatusProcessing
	artifact.CurrentStage = stage
	if artifact.StageTimings == nil {
		artifact.StageTimings = make(map[string]float64)
	}
	if err := p.saveArtifact(ctx, artifact); err != nil {
		return err
	}
	p.bus.Publish(artifact.JobID, artifact.StatusEvent())

	stageCtx, cancel := context.WithTimeout(ctx, p.config.Workers.StageTimeoutFor(stage))
	defer cancel()

	started := time.Now()
	err := fn(stageCtx)
	elapsed := time.Since(started).Seconds()
	artifact.StageTimings[stage] = elapsed

	if err != nil {
		artifact.Error = fmt.Sprintf("%s: %v", stage, err)
		p.saveArtifact(ctx, artifact)
		p.logger.Warn().Err(err).
			Str("artifact_id", artifact.ID).
			Str("stage", stage).
			Msg("Stage failed")
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	artifact.Error = ""
	if err := p.saveArtifact(ctx, artifact); err != nil {
		return err
	}
	p.logger.Debug().
		Str("artifact_id", artifact.ID).
		Str("stage", stage).
		Float64("seconds", elapsed).
		Msg("Stage complete")
	return nil
}

// skipStage records a zero-cost pass through a stage that does not apply
func (p *Pipeline) skipStage(ctx context.Context, artifact *models.Artifact, stage string) error {
	if artifact.StageTimings == nil {
		artifact.StageTimings = make(map[string]float64)
	}
	artifact.StageTimings[stage] = 0
	return p.saveArtifact(ctx, artifact)
}

func (p *Pipeline) saveArtifact(ctx context.Context, artifact *models.Artifact) error {
	artifact.UpdatedAt = time.Now()
	if err := p.storage.ArtifactStorage().SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", artifact.ID, err)
	}
	return nil
}

func (p *Pipeline) readBlob(ctx context.Context, path string) ([]byte, error) {
	rc, err := p.blobs.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	return data, nil
}

// writeDerivative stores stage output at <original>.<stage>.txt and records
// the path on the artifact. Overwrites on re-run keep stages idempotent.
func (p *Pipeline) writeDerivative(ctx context.Context, artifact *models.Artifact, stage, text string) error {
	path := fmt.Sprintf("%s.%s.txt", artifact.BlobPaths["original"], stage)
	if err := p.blobs.Put(ctx, path, bytes.NewReader([]byte(text))); err != nil {
		return fmt.Errorf("failed to write %s derivative: %w", stage, err)
	}
	if artifact.BlobPaths == nil {
		artifact.BlobPaths = make(map[string]string)
	}
	artifact.BlobPaths[stage] = path
	return nil
}

// needsTranslation reports whether the source language differs from the
// canonical language. An undeclared language is treated as canonical.
func (p *Pipeline) needsTranslation(language string) bool {
	canonical := p.config.AI.CanonicalLanguage
	if canonical == "" {
		canonical = "en"
	}
	return language != "" && !strings.EqualFold(language, canonical)
}

// translationStage translates the given text when the language requires it,
// otherwise records a skip.
func (p *Pipeline) translationStage(ctx context.Context, artifact *models.Artifact, text, language string) (string, error) {
	if !p.needsTranslation(language) {
		return text, p.skipStage(ctx, artifact, models.StageTranslation)
	}
	var translated string
	err := p.runStage(ctx, artifact, models.StageTranslation, func(ctx context.Context) error {
		out, err := p.provider.Translate(ctx, text, language, p.config.AI.CanonicalLanguage)
		if err != nil {
			return err
		}
		translated = out
		return p.writeDerivative(ctx, artifact, models.StageTranslation, out)
	})
	if err != nil {
		return "", err
	}
	artifact.TranslationText = translated
	return translated, nil
}

func (p *Pipeline) summarizationStage(ctx context.Context, artifact *models.Artifact, text string, hints map[string]string) error {
	return p.runStage(ctx, artifact, models.StageSummarization, func(ctx context.Context) error {
		summary, err := p.provider.Summarize(ctx, text, hints)
		if err != nil {
			return err
		}
		artifact.SummaryText = summary
		return p.writeDerivative(ctx, artifact, models.StageSummarization, summary)
	})
}

// embeddingsStage chunks the text, embeds each chunk, and replaces the
// artifact's chunk set. Keyed by artifact + index, a re-run overwrites.
func (p *Pipeline) embeddingsStage(ctx context.Context, artifact *models.Artifact, text string) error {
	return p.runStage(ctx, artifact, models.StageEmbeddings, func(ctx context.Context) error {
		pieces := SplitText(text, defaultChunkSize)
		if len(pieces) == 0 {
			return p.storage.ChunkStorage().ReplaceChunks(ctx, artifact.ID, nil)
		}

		vectors, err := p.provider.Embed(ctx, pieces)
		if err != nil {
			return err
		}
		if len(vectors) != len(pieces) {
			return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(pieces), len(vectors))
		}

		chunks := make([]*models.Chunk, len(pieces))
		for i, piece := range pieces {
			chunks[i] = &models.Chunk{
				ID:         fmt.Sprintf("%s:%d", artifact.ID, i),
				ArtifactID: artifact.ID,
				JobID:      artifact.JobID,
				Index:      i,
				Text:       piece,
				Embedding:  vectors[i],
			}
		}
		if err := p.storage.ChunkStorage().ReplaceChunks(ctx, artifact.ID, chunks); err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := p.index.Insert(ctx, chunk.ID, chunk.Embedding, map[string]string{"job_id": artifact.JobID}); err != nil {
				return err
			}
		}
		return nil
	})
}

// finishMediaStages hands the artifact over to the graph stage
func (p *Pipeline) finishMediaStages(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	artifact.Status = models.ArtifactStatusAwaitingGraph
	artifact.CurrentStage = ""
	if err := p.saveArtifact(ctx, artifact); err != nil {
		return err
	}
	p.bus.Publish(artifact.JobID, artifact.StatusEvent())

	graphItem := models.WorkItem{
		JobID:      item.JobID,
		ArtifactID: artifact.ID,
		BlobPath:   artifact.TextBlobPath(),
		Filename:   artifact.OriginalFilename,
		MediaType:  string(artifact.MediaType),
		Metadata:   item.Metadata,
	}
	if err := p.fabric.Publish(ctx, queue.QueueGraph, graphItem); err != nil {
		return fmt.Errorf("failed to enqueue graph work: %w", err)
	}
	return nil
}
