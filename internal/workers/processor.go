package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
)

// Processor runs the per-queue worker pools. Each worker polls its queue
// with idle backoff, runs the pipeline for the items it claims, and drives
// the ack/nack protocol.
type Processor struct {
	pipeline *Pipeline
	fabric   interfaces.QueueFabric
	config   *common.Config
	logger   arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates the worker processor
func NewProcessor(pipeline *Pipeline, fabric interfaces.QueueFabric, config *common.Config, logger arbor.ILogger) *Processor {
	return &Processor{
		pipeline: pipeline,
		fabric:   fabric,
		config:   config,
		logger:   logger,
	}
}

func (p *Processor) poolSize(queueName string) int {
	var size int
	switch queueName {
	case queue.QueueDocument:
		size = p.config.Workers.DocumentPool
	case queue.QueueAudio:
		size = p.config.Workers.AudioPool
	case queue.QueueVideo:
		size = p.config.Workers.VideoPool
	case queue.QueueCDR:
		size = p.config.Workers.CDRPool
	case queue.QueueGraph:
		size = p.config.Workers.GraphPool
	}
	if size <= 0 {
		size = 1
	}
	return size
}

// Start launches every pool. Workers run until Stop.
func (p *Processor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	total := 0
	for _, queueName := range queue.WorkQueues {
		size := p.poolSize(queueName)
		for i := 0; i < size; i++ {
			p.wg.Add(1)
			go p.runWorker(ctx, queueName, i)
		}
		total += size
	}
	p.logger.Info().Int("workers", total).Msg("Worker pools started")
}

// Stop cancels all workers and waits for in-flight items to finish
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Worker pools stopped")
}

// runWorker is one polling loop. An empty queue backs the poll interval off
// exponentially up to maxIdleBackoff; any delivery resets it.
func (p *Processor) runWorker(ctx context.Context, queueName string, id int) {
	defer p.wg.Done()

	minBackoff := common.ParseDurationOr(p.config.Queue.PollInterval, 250*time.Millisecond)
	const maxIdleBackoff = 5 * time.Second
	backoff := minBackoff

	p.logger.Debug().Str("queue", queueName).Int("worker", id).Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := p.fabric.Consume(ctx, queueName)
		if err != nil {
			if errors.Is(err, models.ErrNoMessage) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > maxIdleBackoff {
					backoff = maxIdleBackoff
				}
				continue
			}
			p.logger.Warn().Err(err).Str("queue", queueName).Msg("Queue consume failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}

		backoff = minBackoff
		p.handleDelivery(ctx, queueName, delivery)
	}
}

// handleDelivery runs the pipeline for one item with panic recovery and a
// visibility heartbeat, then acks or nacks.
func (p *Processor) handleDelivery(ctx context.Context, queueName string, delivery *interfaces.Delivery) {
	item := delivery.Item

	// The fabric already dead-lettered this item after repeated visibility
	// timeouts; all that remains is settling the artifact and its job
	if delivery.DeadLettered {
		p.logger.Warn().
			Str("queue", queueName).
			Str("artifact_id", item.ArtifactID).
			Msg("Work item dead-lettered on timeout exhaustion")
		if failErr := p.pipeline.FailArtifact(ctx, item, queue.ReasonTimeoutExhausted); failErr != nil {
			p.logger.Error().Err(failErr).Str("artifact_id", item.ArtifactID).Msg("Failed to record dead-lettered artifact")
		}
		return
	}

	// Heartbeat keeps long stages inside the visibility window
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	go func() {
		interval := common.ParseDurationOr(p.config.Queue.VisibilityTimeout, 5*time.Minute) / 2
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				if err := delivery.Extend(common.ParseDurationOr(p.config.Queue.VisibilityTimeout, 5*time.Minute)); err != nil {
					p.logger.Warn().Err(err).Str("artifact_id", item.ArtifactID).Msg("Failed to extend visibility")
					return
				}
			}
		}
	}()

	err := p.runSafely(ctx, queueName, item)
	stopHeartbeat()

	if err == nil {
		if ackErr := delivery.Ack(); ackErr != nil {
			p.logger.Warn().Err(ackErr).Str("artifact_id", item.ArtifactID).Msg("Ack failed")
		}
		return
	}

	p.logger.Warn().Err(err).
		Str("queue", queueName).
		Str("artifact_id", item.ArtifactID).
		Int("attempt", item.Attempt).
		Msg("Work item failed")

	deadLettered, nackErr := delivery.Nack(err.Error())
	if nackErr != nil {
		p.logger.Error().Err(nackErr).Str("artifact_id", item.ArtifactID).Msg("Nack failed")
		return
	}
	if deadLettered {
		if failErr := p.pipeline.FailArtifact(ctx, item, err.Error()); failErr != nil {
			p.logger.Error().Err(failErr).Str("artifact_id", item.ArtifactID).Msg("Failed to record dead-lettered artifact")
		}
	}
}

// runSafely converts a pipeline panic into an error so a poison item cannot
// kill its worker
func (p *Processor) runSafely(ctx context.Context, queueName string, item models.WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := common.GetStackTrace()
			p.logger.Error().
				Str("queue", queueName).
				Str("artifact_id", item.ArtifactID).
				Str("stack", stack).
				Msgf("Worker panic: %v", r)
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return p.pipeline.Process(ctx, queueName, item)
}
