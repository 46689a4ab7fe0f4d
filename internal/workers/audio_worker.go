package workers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// processAudio runs transcription -> translation -> summarization ->
// embeddings for an audio artifact.
func (p *Pipeline) processAudio(ctx context.Context, artifact *models.Artifact, item models.WorkItem) error {
	language := item.Metadata.Language

	var transcript string
	err := p.runStage(ctx, artifact, models.StageTranscription, func(ctx context.Context) error {
		data, err := p.readBlob(ctx, artifact.BlobPaths["original"])
		if err != nil {
			return err
		}
		text, segments, err := p.provider.Transcribe(ctx, data, language)
		if err != nil {
			return err
		}
		transcript = renderTranscript(text, segments)
		artifact.TranscriptText = transcript
		return p.writeDerivative(ctx, artifact, models.StageTranscription, transcript)
	})
	if err != nil {
		return err
	}

	text, err := p.translationStage(ctx, artifact, transcript, language)
	if err != nil {
		return err
	}

	hints := map[string]string{"source": artifact.OriginalFilename, "media": "audio", "language": language}
	if err := p.summarizationStage(ctx, artifact, text, hints); err != nil {
		return err
	}

	if err := p.embeddingsStage(ctx, artifact, text); err != nil {
		return err
	}

	return p.finishMediaStages(ctx, artifact, item)
}

// renderTranscript flattens timed segments into one text body, falling back
// to the raw transcript when the provider returned no timings.
func renderTranscript(text string, segments []interfaces.TranscriptSegment) string {
	if len(segments) == 0 {
		return text
	}
	var b strings.Builder
	for _, seg := range segments {
		if seg.End > seg.Start {
			fmt.Fprintf(&b, "[%.1f-%.1f] ", seg.Start, seg.End)
		}
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
