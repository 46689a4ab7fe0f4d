package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChunkStorage {
	return &ChunkStorage{db: db, logger: logger}
}

// ReplaceChunks deletes existing chunks for the artifact before saving the
// new set, keeping re-runs of the embeddings stage idempotent.
func (s *ChunkStorage) ReplaceChunks(ctx context.Context, artifactID string, chunks []*models.Chunk) error {
	if err := s.DeleteChunksByArtifact(ctx, artifactID); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = fmt.Sprintf("%s:%d", chunk.ArtifactID, chunk.Index)
		}
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}

func (s *ChunkStorage) GetChunksByArtifact(ctx context.Context, artifactID string) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	query := badgerhold.Where("ArtifactID").Eq(artifactID).SortBy("Index")
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *ChunkStorage) GetChunksByJob(ctx context.Context, jobID string) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("Index")
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *ChunkStorage) DeleteChunksByArtifact(ctx context.Context, artifactID string) error {
	if err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("ArtifactID").Eq(artifactID)); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
