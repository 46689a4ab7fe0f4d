package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// ArtifactStorage implements the ArtifactStorage interface for Badger
type ArtifactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactStorage creates a new ArtifactStorage instance
func NewArtifactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArtifactStorage {
	return &ArtifactStorage{db: db, logger: logger}
}

func (s *ArtifactStorage) SaveArtifact(ctx context.Context, artifact *models.Artifact) error {
	if artifact.ID == "" {
		return fmt.Errorf("artifact ID is required")
	}
	artifact.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(artifact.ID, artifact); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (s *ArtifactStorage) GetArtifact(ctx context.Context, artifactID string) (*models.Artifact, error) {
	var artifact models.Artifact
	if err := s.db.Store().Get(artifactID, &artifact); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &artifact, nil
}

func (s *ArtifactStorage) GetArtifactsByJob(ctx context.Context, jobID string) ([]*models.Artifact, error) {
	var artifacts []models.Artifact
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&artifacts, query); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	result := make([]*models.Artifact, len(artifacts))
	for i := range artifacts {
		result[i] = &artifacts[i]
	}
	return result, nil
}

func (s *ArtifactStorage) DeleteArtifactsByJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.Artifact{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return nil
}
