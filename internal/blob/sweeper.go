package blob

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
)

// Sweeper is the background maintenance job. On each tick it removes blob
// prefixes belonging to failed jobs past the grace period and purges
// dead-letter entries past retention.
type Sweeper struct {
	storage      interfaces.StorageManager
	blobs        interfaces.BlobStore
	fabric       interfaces.QueueFabric
	gracePeriod  time.Duration
	dlqRetention time.Duration
	schedule     string
	cron         *cron.Cron
	logger       arbor.ILogger
}

// NewSweeper creates a sweeper from configuration
func NewSweeper(storage interfaces.StorageManager, blobs interfaces.BlobStore, fabric interfaces.QueueFabric, cfg *common.Config, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		storage:      storage,
		blobs:        blobs,
		fabric:       fabric,
		gracePeriod:  common.ParseDurationOr(cfg.Sweeper.GracePeriod, 24*time.Hour),
		dlqRetention: common.ParseDurationOr(cfg.Queue.DLQRetention, 168*time.Hour),
		schedule:     cfg.Sweeper.Schedule,
		logger:       logger,
	}
}

// Start schedules the sweep. Returns an error if the cron expression is
// invalid.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Blob sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// Sweep runs one maintenance pass
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweepFailedJobs(ctx)
	s.purgeDeadLetters(ctx)
}

// sweepFailedJobs removes blob prefixes of jobs that failed before any
// artifact row was written, once past the grace period. Jobs with artifact
// rows keep their blobs: a dead-lettered item may still be requeued and
// needs the originals. Metadata rows stay so the failure remains visible
// in listings.
func (s *Sweeper) sweepFailedJobs(ctx context.Context) {
	jobs, err := s.storage.JobStorage().ListJobs(ctx, &interfaces.JobListOptions{})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Sweeper failed to list jobs")
		return
	}

	cutoff := time.Now().Add(-s.gracePeriod)
	removed := 0
	for _, job := range jobs {
		if job.Status != "failed" || job.UpdatedAt.After(cutoff) {
			continue
		}
		artifacts, err := s.storage.ArtifactStorage().GetArtifactsByJob(ctx, job.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Sweeper failed to load artifacts")
			continue
		}
		if len(artifacts) > 0 {
			continue
		}
		blobs, err := s.blobs.List(ctx, job.StoragePrefix)
		if err != nil || len(blobs) == 0 {
			continue
		}
		if err := s.blobs.DeletePrefix(ctx, job.StoragePrefix); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Sweeper failed to delete blob prefix")
			continue
		}
		removed++
		s.logger.Info().Str("job_id", job.ID).Int("blobs", len(blobs)).Msg("Swept blobs of failed job")
	}
	if removed > 0 {
		s.logger.Info().Int("jobs", removed).Msg("Blob sweep complete")
	}
}

func (s *Sweeper) purgeDeadLetters(ctx context.Context) {
	purged, err := s.fabric.PurgeExpiredDeadLetters(ctx, s.dlqRetention)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Sweeper failed to purge dead letters")
		return
	}
	if purged > 0 {
		s.logger.Info().Int("count", purged).Msg("Expired dead letters purged")
	}
}
