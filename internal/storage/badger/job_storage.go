package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Serializes counter updates. The Version field gives observers a
	// monotonic watermark; the mutex prevents lost updates when artifacts
	// of the same job complete concurrently.
	updateMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{db: db, logger: logger}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateJob applies mutate under the storage-wide update lock and bumps
// Version. Invariant checks run after mutate: processed never exceeds
// total, counters never decrease.
func (s *JobStorage) UpdateJob(ctx context.Context, jobID string, mutate func(*models.Job) error) (*models.Job, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	prevProcessed := job.ProcessedFiles
	prevFailed := job.FailedFiles

	if err := mutate(job); err != nil {
		return nil, err
	}

	if job.ProcessedFiles < prevProcessed || job.FailedFiles < prevFailed {
		return nil, fmt.Errorf("%w: job counters must be monotonic", models.ErrConflict)
	}
	if job.ProcessedFiles+job.FailedFiles > job.TotalFiles {
		return nil, fmt.Errorf("%w: processed+failed exceeds total_files", models.ErrConflict)
	}

	job.Version++
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts != nil && opts.CaseName != "" {
		query = query.And("CaseName").Eq(opts.CaseName)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query.SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	// Scope filtering happens here rather than in the query: the prefix
	// match runs on the key itself and badgerhold cannot express it.
	result := make([]*models.Job, 0, len(jobs))
	for i := range jobs {
		job := jobs[i]
		if opts != nil && opts.Scope != nil && !opts.Scope.Admits(&job) {
			continue
		}
		result = append(result, &job)
	}

	if opts != nil {
		if opts.Offset > 0 {
			if opts.Offset >= len(result) {
				return []*models.Job{}, nil
			}
			result = result[opts.Offset:]
		}
		if opts.Limit > 0 && opts.Limit < len(result) {
			result = result[:opts.Limit]
		}
	}
	return result, nil
}

func (s *JobStorage) ListCases(ctx context.Context, scope *interfaces.JobScope) ([]string, error) {
	jobs, err := s.ListJobs(ctx, &interfaces.JobListOptions{Scope: scope})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var cases []string
	for _, job := range jobs {
		name := strings.TrimSpace(job.CaseName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			cases = append(cases, name)
		}
	}
	sort.Strings(cases)
	return cases, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
