package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageSequencePerMediaType(t *testing.T) {
	assert.Equal(t,
		[]string{StageExtraction, StageTranslation, StageSummarization, StageEmbeddings},
		StageSequence(MediaTypeDocument))
	assert.Equal(t,
		[]string{StageTranscription, StageTranslation, StageSummarization, StageEmbeddings},
		StageSequence(MediaTypeAudio))
	assert.Equal(t,
		[]string{StageFrameExtraction, StageVideoAnalysis, StageTranslation, StageSummarization, StageEmbeddings},
		StageSequence(MediaTypeVideo))
	// CDR artifacts never embed
	assert.Equal(t,
		[]string{StageParsing, StageSuspectMatching, StageSummarization},
		StageSequence(MediaTypeCDR))
	assert.Nil(t, StageSequence(MediaType("telegram")))
}

func TestMediaTypeValidation(t *testing.T) {
	assert.True(t, MediaTypeDocument.Valid())
	assert.False(t, MediaType("telegram").Valid())

	assert.True(t, MediaTypeAudio.RequiresLanguage())
	assert.True(t, MediaTypeVideo.RequiresLanguage())
	assert.False(t, MediaTypeDocument.RequiresLanguage())
	assert.False(t, MediaTypeCDR.RequiresLanguage())
}

func TestTextBlobPathPrefersMostProcessedDerivative(t *testing.T) {
	artifact := &Artifact{BlobPaths: map[string]string{
		"original":       "j/a.pdf",
		StageExtraction:  "j/a.pdf.extraction.txt",
		StageTranslation: "j/a.pdf.translation.txt",
	}}
	assert.Equal(t, "j/a.pdf.translation.txt", artifact.TextBlobPath())

	delete(artifact.BlobPaths, StageTranslation)
	assert.Equal(t, "j/a.pdf.extraction.txt", artifact.TextBlobPath())

	delete(artifact.BlobPaths, StageExtraction)
	assert.Equal(t, "j/a.pdf", artifact.TextBlobPath())
}

func TestTerminalStatus(t *testing.T) {
	assert.Equal(t, JobStatusCompleted, TerminalStatus(3, 0))
	assert.Equal(t, JobStatusFailed, TerminalStatus(0, 3))
	assert.Equal(t, JobStatusPartial, TerminalStatus(2, 1))
}

func TestStatusTerminality(t *testing.T) {
	assert.True(t, ArtifactStatusCompleted.IsTerminal())
	assert.True(t, ArtifactStatusFailed.IsTerminal())
	assert.False(t, ArtifactStatusAwaitingGraph.IsTerminal())
	assert.False(t, ArtifactStatusProcessing.IsTerminal())

	assert.True(t, JobStatusPartial.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "john smith", NormalizeLabel("  John   SMITH "))
	assert.Equal(t, "john smith", NormalizeLabel("john\tsmith"))
	assert.Equal(t, "", NormalizeLabel("   "))
}
