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

// ActivityStorage implements the append-only audit log on Badger
type ActivityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewActivityStorage creates a new ActivityStorage instance
func NewActivityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ActivityStorage {
	return &ActivityStorage{db: db, logger: logger}
}

func (s *ActivityStorage) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.db.Store().Insert(badgerhold.NextSequence(), entry); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}
	return nil
}

func (s *ActivityStorage) List(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.ActivityLogEntry
	query := badgerhold.Where("ID").Ge(uint64(0)).SortBy("Timestamp").Reverse().Limit(limit)
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}
	result := make([]*models.ActivityLogEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
