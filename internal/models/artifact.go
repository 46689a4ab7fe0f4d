package models

import "time"

// MediaType classifies an uploaded file and selects its worker pipeline
type MediaType string

const (
	MediaTypeDocument MediaType = "document"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeVideo    MediaType = "video"
	MediaTypeCDR      MediaType = "cdr"
)

// Valid reports whether m is one of the declared media types
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeDocument, MediaTypeAudio, MediaTypeVideo, MediaTypeCDR:
		return true
	}
	return false
}

// RequiresLanguage reports whether uploads of this type must declare a
// source language
func (m MediaType) RequiresLanguage() bool {
	return m == MediaTypeAudio || m == MediaTypeVideo
}

// QueueName returns the work queue bound to this media type
func (m MediaType) QueueName() string {
	return string(m)
}

// ArtifactStatus is the lifecycle status of a single artifact
type ArtifactStatus string

const (
	ArtifactStatusQueued        ArtifactStatus = "queued"
	ArtifactStatusProcessing    ArtifactStatus = "processing"
	ArtifactStatusAwaitingGraph ArtifactStatus = "awaiting_graph"
	ArtifactStatusCompleted     ArtifactStatus = "completed"
	ArtifactStatusFailed        ArtifactStatus = "failed"
)

// IsTerminal reports whether the artifact has reached a terminal status
func (s ArtifactStatus) IsTerminal() bool {
	return s == ArtifactStatusCompleted || s == ArtifactStatusFailed
}

// Pipeline stages. Entering a stage is an observable boundary: a status
// event is published and the elapsed seconds are recorded on exit.
const (
	StageExtraction      = "extraction"
	StageTranscription   = "transcription"
	StageFrameExtraction = "frame_extraction"
	StageVideoAnalysis   = "video_analysis"
	StageParsing         = "parsing"
	StageSuspectMatching = "suspect_matching"
	StageTranslation     = "translation"
	StageSummarization   = "summarization"
	StageEmbeddings      = "embeddings"
	StageGraphBuilding   = "graph_building"
)

// StageSequence returns the declared stage order for a media type. The
// translation stage is present in the sequence but skipped at runtime when
// the source language already matches the canonical language.
func StageSequence(m MediaType) []string {
	switch m {
	case MediaTypeDocument:
		return []string{StageExtraction, StageTranslation, StageSummarization, StageEmbeddings}
	case MediaTypeAudio:
		return []string{StageTranscription, StageTranslation, StageSummarization, StageEmbeddings}
	case MediaTypeVideo:
		return []string{StageFrameExtraction, StageVideoAnalysis, StageTranslation, StageSummarization, StageEmbeddings}
	case MediaTypeCDR:
		return []string{StageParsing, StageSuspectMatching, StageSummarization}
	}
	return nil
}

// Artifact represents one uploaded file and the derivatives its pipeline
// produces. Written only by the worker owning it at the current stage, plus
// the graph worker during the terminal transition.
type Artifact struct {
	ID               string             `json:"id" badgerhold:"key"`
	JobID            string             `json:"job_id" badgerhold:"index"`
	OriginalFilename string             `json:"original_filename"`
	MediaType        MediaType          `json:"media_type"`
	SourceLanguage   string             `json:"source_language,omitempty"`
	Status           ArtifactStatus     `json:"status"`
	CurrentStage     string             `json:"current_stage,omitempty"`
	StageTimings     map[string]float64 `json:"processing_stages"` // stage name -> elapsed seconds
	Error            string             `json:"error,omitempty"`
	BlobPaths        map[string]string  `json:"blob_paths"` // role ("original", stage name) -> blob path
	SummaryText      string             `json:"summary_text,omitempty"`
	TranscriptText   string             `json:"transcript_text,omitempty"`
	TranslationText  string             `json:"translation_text,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TextBlobPath returns the blob path of the most-processed text derivative,
// which is what the graph stage consumes.
func (a *Artifact) TextBlobPath() string {
	for _, role := range []string{StageTranslation, StageSuspectMatching, StageVideoAnalysis, StageTranscription, StageExtraction, StageParsing} {
		if p, ok := a.BlobPaths[role]; ok && p != "" {
			return p
		}
	}
	return a.BlobPaths["original"]
}

// StatusEvent builds the artifact's current status delta for the status bus
func (a *Artifact) StatusEvent() StatusEvent {
	return StatusEvent{
		Type:             EventTypeArtifactStatus,
		JobID:            a.JobID,
		ArtifactID:       a.ID,
		Filename:         a.OriginalFilename,
		Status:           string(a.Status),
		CurrentStage:     a.CurrentStage,
		ProcessingStages: a.StageTimings,
		ErrorMessage:     a.Error,
	}
}
