// Package vector provides similarity search over chunk embeddings. The
// metadata store is the source of truth; the index holds a write-through
// overlay so firehose (unscoped) searches stay cheap.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/interfaces"
)

type entry struct {
	vector   []float32
	metadata map[string]string
}

// Index is an in-process cosine-similarity index backed by chunk storage
type Index struct {
	chunks interfaces.ChunkStorage
	logger arbor.ILogger

	mu      sync.RWMutex
	overlay map[string]entry
}

// NewIndex creates a vector index over the given chunk storage
func NewIndex(chunks interfaces.ChunkStorage, logger arbor.ILogger) *Index {
	return &Index{
		chunks:  chunks,
		logger:  logger,
		overlay: make(map[string]entry),
	}
}

// Insert records a vector in the overlay. Chunk persistence happens
// separately through ChunkStorage; Insert only keeps the hot view current.
func (ix *Index) Insert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	if chunkID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector is required")
	}
	ix.mu.Lock()
	ix.overlay[chunkID] = entry{vector: vector, metadata: metadata}
	ix.mu.Unlock()
	return nil
}

// Search returns up to k chunk IDs ranked by cosine similarity, best first.
// A job ID scopes the search to that job's chunks from storage; "" scans
// the overlay.
func (ix *Index) Search(ctx context.Context, jobID string, vector []float32, k int) ([]interfaces.VectorMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}
	if k <= 0 {
		k = 10
	}

	var matches []interfaces.VectorMatch

	if jobID != "" {
		chunks, err := ix.chunks.GetChunksByJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chunks for search: %w", err)
		}
		for _, chunk := range chunks {
			if score, ok := cosine(vector, chunk.Embedding); ok {
				matches = append(matches, interfaces.VectorMatch{ChunkID: chunk.ID, Score: score})
			}
		}
	} else {
		ix.mu.RLock()
		for id, e := range ix.overlay {
			if score, ok := cosine(vector, e.vector); ok {
				matches = append(matches, interfaces.VectorMatch{ChunkID: id, Score: score})
			}
		}
		ix.mu.RUnlock()
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// cosine returns the cosine similarity of two vectors, or ok=false when the
// dimensions differ or either vector is zero.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
