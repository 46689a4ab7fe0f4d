package interfaces

import (
	"context"
	"time"

	"github.com/sentinelai/sentinel/internal/models"
)

// Delivery is one received work item plus its acknowledgement handles.
// The consumer must Ack before the visibility timeout or the item is
// redelivered. Nack re-enqueues with exponential backoff until the retry
// budget is exhausted, at which point the item moves to the queue's DLQ;
// Nack reports whether that move happened.
//
// DeadLettered marks an item that was already moved to the DLQ because its
// visibility timeout lapsed past the retry budget. The caller must still
// settle the item's side effects (mark the artifact failed); the
// acknowledgement handles are no-ops.
type Delivery struct {
	Item         models.WorkItem
	DeadLettered bool
	Ack          func() error
	Nack         func(reason string) (deadLettered bool, err error)
	Extend       func(d time.Duration) error
}

// QueueFabric delivers work items at-least-once across named FIFO queues,
// each with a dead-letter sibling.
type QueueFabric interface {
	Publish(ctx context.Context, queue string, item models.WorkItem) error
	// Consume returns the next visible item or models.ErrNoMessage.
	Consume(ctx context.Context, queue string) (*Delivery, error)
	ListDeadLetters(ctx context.Context, queue string) ([]*models.DeadLetter, error)
	// RequeueDeadLetter moves a dead-lettered item back to its queue with
	// its attempt counter reset.
	RequeueDeadLetter(ctx context.Context, queue, deadLetterID string) error
	// PurgeExpiredDeadLetters removes DLQ entries older than retention and
	// returns how many were removed.
	PurgeExpiredDeadLetters(ctx context.Context, retention time.Duration) (int, error)
	Close() error
}

// StatusBus is the per-job status pub/sub channel. Events are best-effort
// broadcast with no replay; slow subscribers drop events rather than block
// publishers.
type StatusBus interface {
	Publish(jobID string, event models.StatusEvent)
	// Subscribe returns a channel of events for one job and a cancel func.
	Subscribe(jobID string) (<-chan models.StatusEvent, func())
	// SubscribeAll returns a channel carrying every event on the bus.
	SubscribeAll() (<-chan models.StatusEvent, func())
	Close()
}
