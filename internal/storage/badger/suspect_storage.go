package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// SuspectStorage implements the SuspectStorage interface for Badger
type SuspectStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSuspectStorage creates a new SuspectStorage instance
func NewSuspectStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SuspectStorage {
	return &SuspectStorage{db: db, logger: logger}
}

func (s *SuspectStorage) SaveSuspects(ctx context.Context, suspects []*models.Suspect) error {
	for _, suspect := range suspects {
		if suspect.ID == "" {
			return fmt.Errorf("suspect ID is required")
		}
		if err := s.db.Store().Upsert(suspect.ID, suspect); err != nil {
			return fmt.Errorf("failed to save suspect %s: %w", suspect.ID, err)
		}
	}
	return nil
}

func (s *SuspectStorage) GetSuspectsByJob(ctx context.Context, jobID string) ([]*models.Suspect, error) {
	var suspects []models.Suspect
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&suspects, query); err != nil {
		return nil, fmt.Errorf("failed to list suspects: %w", err)
	}
	result := make([]*models.Suspect, len(suspects))
	for i := range suspects {
		result[i] = &suspects[i]
	}
	return result, nil
}

func (s *SuspectStorage) CountSuspectsByJob(ctx context.Context, jobID string) (int, error) {
	count, err := s.db.Store().Count(&models.Suspect{}, badgerhold.Where("JobID").Eq(jobID))
	if err != nil {
		return 0, fmt.Errorf("failed to count suspects: %w", err)
	}
	return int(count), nil
}

func (s *SuspectStorage) DeleteSuspectsByJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().DeleteMatching(&models.Suspect{}, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return fmt.Errorf("failed to delete suspects: %w", err)
	}
	return nil
}
