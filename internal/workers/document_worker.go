package workers

import (
	"context"

	"github.com/sentinelai/sentinel/internal/models"
)

// processDocument runs extraction -> translation -> summarization ->
// embeddings for a document artifact.
func (p *Pipeline) processDocument(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	language := item.Metadata.Language

	var extracted string
	err := p.runStage(ctx, artifact, models.StageExtraction, func(ctx context.Context) error {
		data, err := p.readBlob(ctx, artifact.BlobPaths["original"])
		if err != nil {
			return err
		}
		text, err := p.provider.ExtractDocument(ctx, data, language)
		if err != nil {
			return err
		}
		extracted = text
		return p.writeDerivative(ctx, artifact, models.StageExtraction, text)
	})
	if err != nil {
		return err
	}

	text, err := p.translationStage(ctx, artifact, extracted, language)
	if err != nil {
		return err
	}

	hints := map[string]string{"source": artifact.OriginalFilename, "media": "document"}
	if err := p.summarizationStage(ctx, artifact, text, hints); err != nil {
		return err
	}

	if err := p.embeddingsStage(ctx, artifact, text); err != nil {
		return err
	}

	return p.finishMediaStages(ctx, artifact, item)
}
