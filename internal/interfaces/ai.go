package interfaces

import "context"

// AI collaborator contracts. The pipeline core depends only on these
// interfaces; the model wiring behind them (Claude, Gemini, offline) is
// selected by configuration.

// TranscriptSegment is one timed span of a transcript
type TranscriptSegment struct {
	Start float64 `json:"start"` // Seconds from media start
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcriber converts audio bytes to text with per-segment timings
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, []TranscriptSegment, error)
}

// DocumentExtractor produces plain text (with structure markers preserved)
// from document bytes
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, doc []byte, language string) (string, error)
}

// Translator translates text between languages
type Translator interface {
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// Summarizer produces a bounded-length summary
type Summarizer interface {
	Summarize(ctx context.Context, text string, hints map[string]string) (string, error)
}

// FrameExtractor samples representative frames from video bytes
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, video []byte) ([][]byte, error)
}

// VisionAnalyzer describes a set of frames as scene text
type VisionAnalyzer interface {
	AnalyzeFrames(ctx context.Context, frames [][]byte) (string, error)
}

// Embedder maps text chunks to fixed-dimensional vectors aligned by index
type Embedder interface {
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
}

// ExtractedNode is an entity produced by the graph extractor
type ExtractedNode struct {
	Label      string            `json:"label"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ExtractedEdge is a typed relation between two extracted entities,
// referenced by label
type ExtractedEdge struct {
	SourceLabel string            `json:"source_label"`
	TargetLabel string            `json:"target_label"`
	Type        string            `json:"type"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// GraphExtractor extracts entities and typed relations from text
type GraphExtractor interface {
	ExtractGraph(ctx context.Context, text string) ([]ExtractedNode, []ExtractedEdge, error)
}

// AIProvider bundles every collaborator a deployment provides
type AIProvider interface {
	Transcriber
	DocumentExtractor
	Translator
	Summarizer
	FrameExtractor
	VisionAnalyzer
	Embedder
	GraphExtractor
}

// VectorIndex is the similarity-search collaborator over chunk embeddings
type VectorIndex interface {
	Insert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error
	// Search returns up to k chunk IDs with similarity scores, best first.
	// jobID scopes the search; "" searches everything.
	Search(ctx context.Context, jobID string, vector []float32, k int) ([]VectorMatch, error)
}

// VectorMatch is one similarity search hit
type VectorMatch struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}
