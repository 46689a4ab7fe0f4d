package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/models"
)

// mockChunkStorage serves canned chunks per job
type mockChunkStorage struct {
	byJob map[string][]*models.Chunk
}

func (m *mockChunkStorage) ReplaceChunks(ctx context.Context, artifactID string, chunks []*models.Chunk) error {
	return nil
}

func (m *mockChunkStorage) GetChunksByArtifact(ctx context.Context, artifactID string) ([]*models.Chunk, error) {
	return nil, nil
}

func (m *mockChunkStorage) GetChunksByJob(ctx context.Context, jobID string) ([]*models.Chunk, error) {
	return m.byJob[jobID], nil
}

func (m *mockChunkStorage) DeleteChunksByArtifact(ctx context.Context, artifactID string) error {
	return nil
}

func TestIndexSearchRanksByCosineSimilarity(t *testing.T) {
	chunks := &mockChunkStorage{byJob: map[string][]*models.Chunk{
		"mgr/mgr/job-1": {
			{ID: "c1", JobID: "mgr/mgr/job-1", Embedding: []float32{1, 0, 0}},
			{ID: "c2", JobID: "mgr/mgr/job-1", Embedding: []float32{0.9, 0.1, 0}},
			{ID: "c3", JobID: "mgr/mgr/job-1", Embedding: []float32{0, 1, 0}},
		},
	}}
	index := NewIndex(chunks, arbor.NewLogger())

	matches, err := index.Search(context.Background(), "mgr/mgr/job-1", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c1", matches[0].ChunkID)
	assert.Equal(t, "c2", matches[1].ChunkID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestIndexSearchScopedToJob(t *testing.T) {
	chunks := &mockChunkStorage{byJob: map[string][]*models.Chunk{
		"mgr/mgr/job-1": {{ID: "c1", JobID: "mgr/mgr/job-1", Embedding: []float32{1, 0}}},
		"mgr/mgr/job-2": {{ID: "c2", JobID: "mgr/mgr/job-2", Embedding: []float32{1, 0}}},
	}}
	index := NewIndex(chunks, arbor.NewLogger())

	matches, err := index.Search(context.Background(), "mgr/mgr/job-1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c1", matches[0].ChunkID)
}

func TestIndexOverlaySearch(t *testing.T) {
	index := NewIndex(&mockChunkStorage{}, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, index.Insert(ctx, "c1", []float32{1, 0}, map[string]string{"job_id": "j1"}))
	require.NoError(t, index.Insert(ctx, "c2", []float32{0, 1}, map[string]string{"job_id": "j2"}))

	// An empty job ID scans the in-memory overlay
	matches, err := index.Search(ctx, "", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c2", matches[0].ChunkID)
}

func TestIndexSkipsDimensionMismatches(t *testing.T) {
	chunks := &mockChunkStorage{byJob: map[string][]*models.Chunk{
		"j1": {
			{ID: "bad", JobID: "j1", Embedding: []float32{1, 0, 0}},
			{ID: "good", JobID: "j1", Embedding: []float32{1, 0}},
		},
	}}
	index := NewIndex(chunks, arbor.NewLogger())

	matches, err := index.Search(context.Background(), "j1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].ChunkID)
}

func TestIndexInsertValidation(t *testing.T) {
	index := NewIndex(&mockChunkStorage{}, arbor.NewLogger())
	ctx := context.Background()

	assert.Error(t, index.Insert(ctx, "", []float32{1}, nil))
	assert.Error(t, index.Insert(ctx, "c1", nil, nil))

	_, err := index.Search(ctx, "j1", nil, 5)
	assert.Error(t, err)
}
