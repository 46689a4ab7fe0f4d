package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel/internal/models"
)

func jobEvent(jobID, status string) models.StatusEvent {
	return models.StatusEvent{
		Type:   models.EventTypeJobStatus,
		JobID:  jobID,
		Status: status,
	}
}

func TestStatusBusDeliversToJobSubscriber(t *testing.T) {
	bus := NewStatusBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe("mgr/mgr/job-1")
	defer cancel()

	bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "processing"))

	event := <-ch
	assert.Equal(t, "mgr/mgr/job-1", event.JobID)
	assert.Equal(t, "processing", event.Status)
}

func TestStatusBusFiltersOtherJobs(t *testing.T) {
	bus := NewStatusBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe("mgr/mgr/job-1")
	defer cancel()

	bus.Publish("mgr/mgr/job-2", jobEvent("mgr/mgr/job-2", "processing"))
	bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "completed"))

	event := <-ch
	assert.Equal(t, "mgr/mgr/job-1", event.JobID)
	assert.Equal(t, "completed", event.Status)
	assert.Empty(t, ch)
}

func TestStatusBusFirehoseSeesAllJobs(t *testing.T) {
	bus := NewStatusBus(nil)
	defer bus.Close()

	ch, cancel := bus.SubscribeAll()
	defer cancel()

	bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "processing"))
	bus.Publish("mgr/a1/job-2", jobEvent("mgr/a1/job-2", "queued"))

	first := <-ch
	second := <-ch
	assert.Equal(t, "mgr/mgr/job-1", first.JobID)
	assert.Equal(t, "mgr/a1/job-2", second.JobID)
}

func TestStatusBusDropsWhenBufferFull(t *testing.T) {
	bus := NewStatusBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe("mgr/mgr/job-1")
	defer cancel()

	// Publish never blocks, even with nobody draining
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "processing"))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestStatusBusCancelStopsDelivery(t *testing.T) {
	bus := NewStatusBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe("mgr/mgr/job-1")
	cancel()
	cancel() // Idempotent

	bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "processing"))

	_, open := <-ch
	assert.False(t, open)
}

func TestStatusBusCloseClosesSubscribers(t *testing.T) {
	bus := NewStatusBus(nil)

	ch, _ := bus.SubscribeAll()
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Publishing and subscribing after close are safe no-ops
	bus.Publish("mgr/mgr/job-1", jobEvent("mgr/mgr/job-1", "processing"))
	late, cancel := bus.Subscribe("mgr/mgr/job-1")
	defer cancel()
	_, open = <-late
	assert.False(t, open)
}
