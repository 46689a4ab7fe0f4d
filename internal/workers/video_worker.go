package workers

import (
	"context"

	"github.com/sentinelai/sentinel/internal/models"
)

// processVideo runs frame_extraction -> video_analysis -> translation ->
// summarization -> embeddings for a video artifact.
func (p *Pipeline) processVideo(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	language := item.Metadata.Language

	var frames [][]byte
	err := p.runStage(ctx, artifact, models.StageFrameExtraction, func(ctx context.Context) error {
		data, err := p.readBlob(ctx, artifact.BlobPaths["original"])
		if err != nil {
			return err
		}
		out, err := p.provider.ExtractFrames(ctx, data)
		if err != nil {
			return err
		}
		frames = out
		return nil
	})
	if err != nil {
		return err
	}

	var sceneText string
	err = p.runStage(ctx, artifact, models.StageVideoAnalysis, func(ctx context.Context) error {
		text, err := p.provider.AnalyzeFrames(ctx, frames)
		if err != nil {
			return err
		}
		sceneText = text
		return p.writeDerivative(ctx, artifact, models.StageVideoAnalysis, text)
	})
	if err != nil {
		return err
	}

	text, err := p.translationStage(ctx, artifact, sceneText, language)
	if err != nil {
		return err
	}

	hints := map[string]string{"source": artifact.OriginalFilename, "media": "video"}
	if err := p.summarizationStage(ctx, artifact, text, hints); err != nil {
		return err
	}

	if err := p.embeddingsStage(ctx, artifact, text); err != nil {
		return err
	}

	return p.finishMediaStages(ctx, artifact, item)
}
