package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/models"
)

// processGraph runs the terminal graph_building stage: extract entities and
// relations from the artifact's most-processed text, merge them into the
// case graph, and complete the artifact.
func (p *Pipeline) processGraph(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	job, err := p.storage.JobStorage().GetJob(ctx, artifact.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", artifact.JobID, err)
	}

	err = p.runStage(ctx, artifact, models.StageGraphBuilding, func(ctx context.Context) error {
		textPath := item.BlobPath
		if textPath == "" {
			textPath = artifact.TextBlobPath()
		}
		data, err := p.readBlob(ctx, textPath)
		if err != nil {
			return err
		}

		nodes, edges, err := p.provider.ExtractGraph(ctx, string(data))
		if err != nil {
			return err
		}

		// Re-runs replace this artifact's edges; nodes merge idempotently
		// through the dedup key
		if err := p.storage.GraphStorage().DeleteEdgesByArtifact(ctx, artifact.ID); err != nil {
			return err
		}

		nodeIDs := make(map[string]string, len(nodes))
		for _, extracted := range nodes {
			stored, err := p.storage.GraphStorage().UpsertNode(ctx, &models.GraphNode{
				CaseName:   job.CaseName,
				Label:      extracted.Label,
				Type:       extracted.Type,
				Properties: extracted.Properties,
				Provenance: []string{artifact.ID},
			})
			if err != nil {
				return err
			}
			nodeIDs[extracted.Label] = stored.ID
		}

		for _, extracted := range edges {
			sourceID, okS := nodeIDs[extracted.SourceLabel]
			targetID, okT := nodeIDs[extracted.TargetLabel]
			if !okS || !okT {
				continue
			}
			err := p.storage.GraphStorage().SaveEdge(ctx, &models.GraphEdge{
				ID:           common.NewEdgeID(),
				CaseName:     job.CaseName,
				SourceNodeID: sourceID,
				TargetNodeID: targetID,
				Type:         extracted.Type,
				Properties:   extracted.Properties,
				ArtifactID:   artifact.ID,
			})
			if err != nil {
				return err
			}
		}

		p.logger.Info().
			Str("artifact_id", artifact.ID).
			Str("case", job.CaseName).
			Int("nodes", len(nodes)).
			Int("edges", len(edges)).
			Msg("Graph stage complete")
		return nil
	})
	if err != nil {
		return err
	}

	artifact.Status = models.ArtifactStatusCompleted
	artifact.CurrentStage = ""
	artifact.Error = ""
	if err := p.saveArtifact(ctx, artifact); err != nil {
		return err
	}
	p.bus.Publish(artifact.JobID, artifact.StatusEvent())

	return p.recordArtifactOutcome(ctx, artifact.JobID, false)
}

// recordArtifactOutcome bumps the job's processed or failed counter and,
// once every artifact is terminal, derives the job's terminal status. The
// serialized UpdateJob keeps concurrent completions from losing counts.
func (p *Pipeline) recordArtifactOutcome(ctx context.Context, jobID string, failed bool) error {
	updated, err := p.storage.JobStorage().UpdateJob(ctx, jobID, func(job *models.Job) error {
		if job.ProcessedFiles+job.FailedFiles >= job.TotalFiles {
			// Redelivered outcome after the job already settled
			return nil
		}
		if failed {
			job.FailedFiles++
		} else {
			job.ProcessedFiles++
		}
		if job.ProcessedFiles+job.FailedFiles == job.TotalFiles {
			job.Status = models.TerminalStatus(job.ProcessedFiles, job.FailedFiles)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record artifact outcome: %w", err)
	}

	p.bus.Publish(jobID, models.StatusEvent{
		Type:   models.EventTypeJobStatus,
		JobID:  jobID,
		Status: string(updated.Status),
	})
	return nil
}

// FailArtifact terminally fails an artifact whose work item was
// dead-lettered, and records the outcome on its job.
func (p *Pipeline) FailArtifact(ctx context.Context, item models.WorkItem, reason string) error {
	artifact, err := p.storage.ArtifactStorage().GetArtifact(ctx, item.ArtifactID)
	if err != nil {
		return fmt.Errorf("failed to load artifact %s: %w", item.ArtifactID, err)
	}
	if artifact.Status.IsTerminal() {
		return nil
	}

	artifact.Status = models.ArtifactStatusFailed
	artifact.CurrentStage = ""
	artifact.Error = reason
	artifact.UpdatedAt = time.Now()
	if err := p.storage.ArtifactStorage().SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("failed to save failed artifact: %w", err)
	}
	p.bus.Publish(artifact.JobID, artifact.StatusEvent())

	return p.recordArtifactOutcome(ctx, artifact.JobID, true)
}
