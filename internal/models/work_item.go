package models

// WorkItem is the JSON envelope passed through a work queue, identifying
// one artifact and its stage input. Immutable apart from Attempt, which the
// queue fabric bumps on every redelivery via nack.
type WorkItem struct {
	JobID      string           `json:"job_id"`
	ArtifactID string           `json:"artifact_id"`
	BlobPath   string           `json:"blob_path"`
	Filename   string           `json:"filename"`
	MediaType  string           `json:"media_type"`
	Metadata   WorkItemMetadata `json:"metadata"`
	Attempt    int              `json:"attempt"`
}

type WorkItemMetadata struct {
	Language string `json:"language,omitempty"`
}

// DeadLetter wraps a work item that exhausted its retry budget
type DeadLetter struct {
	ID       string   `json:"id"`
	Queue    string   `json:"queue"`
	Item     WorkItem `json:"item"`
	Reason   string   `json:"reason"`
	FailedAt int64    `json:"failed_at"` // Unix seconds
}
