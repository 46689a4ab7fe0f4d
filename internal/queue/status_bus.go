package queue

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/models"
)

const subscriberBuffer = 64

// statusSubscriber is one listening channel, scoped to a job or to all jobs
type statusSubscriber struct {
	id    int
	jobID string // Empty means all jobs
	ch    chan models.StatusEvent
}

// StatusBus fans status events out to SSE and WebSocket subscribers.
// Delivery is best-effort: a subscriber whose buffer is full misses the
// event, and reconciles from the store snapshot it took on connect.
type StatusBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*statusSubscriber
	closed bool
	logger arbor.ILogger
}

// NewStatusBus creates a status bus
func NewStatusBus(logger arbor.ILogger) *StatusBus {
	return &StatusBus{
		subs:   make(map[int]*statusSubscriber),
		logger: logger,
	}
}

// Publish broadcasts an event to subscribers of the job and to firehose
// subscribers. Never blocks.
func (b *StatusBus) Publish(jobID string, event models.StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.jobID != "" && sub.jobID != jobID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			if b.logger != nil {
				b.logger.Debug().
					Str("job_id", jobID).
					Int("subscriber", sub.id).
					Msg("Status subscriber buffer full, event dropped")
			}
		}
	}
}

// Subscribe registers a listener for one job's events
func (b *StatusBus) Subscribe(jobID string) (<-chan models.StatusEvent, func()) {
	return b.subscribe(jobID)
}

// SubscribeAll registers a listener for every event on the bus
func (b *StatusBus) SubscribeAll() (<-chan models.StatusEvent, func()) {
	return b.subscribe("")
}

func (b *StatusBus) subscribe(jobID string) (<-chan models.StatusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.StatusEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	sub := &statusSubscriber{id: b.nextID, jobID: jobID, ch: ch}
	b.subs[sub.id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub.id]; ok {
			delete(b.subs, sub.id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// Close shuts the bus down and closes all subscriber channels
func (b *StatusBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
