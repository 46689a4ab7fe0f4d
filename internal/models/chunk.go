package models

// Chunk is a retrieval-sized slice of extracted text with its embedding.
// Chunks are keyed by artifact + index so re-running the embeddings stage
// overwrites rather than appends.
type Chunk struct {
	ID         string            `json:"id" badgerhold:"key"` // "<artifact_id>:<index>"
	ArtifactID string            `json:"artifact_id" badgerhold:"index"`
	JobID      string            `json:"job_id" badgerhold:"index"`
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
