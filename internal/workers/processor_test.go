package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
	"github.com/sentinelai/sentinel/internal/queue"
)

// A delivery flagged DeadLettered by the fabric must still settle its
// artifact and job; the pipeline never runs for it.
func TestProcessorSettlesDeadLetteredDelivery(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()

	job := testJob("mgr/mgr/job-stuck", "operation-north", 1)
	artifact, item := env.seedArtifact(t, job, "report.txt", models.MediaTypeDocument, "", []byte("Alice met Bob."))

	processor := NewProcessor(env.pipeline, env.fabric, common.DefaultConfig(), arbor.NewLogger())
	processor.handleDelivery(ctx, queue.QueueDocument, &interfaces.Delivery{
		Item:         item,
		DeadLettered: true,
		Ack:          func() error { return nil },
		Nack:         func(string) (bool, error) { return true, nil },
		Extend:       func(time.Duration) error { return nil },
	})

	loaded, err := env.storage.ArtifactStorage().GetArtifact(ctx, artifact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactStatusFailed, loaded.Status)
	assert.Equal(t, queue.ReasonTimeoutExhausted, loaded.Error)

	settled, err := env.storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, settled.Status)
	assert.Equal(t, 1, settled.FailedFiles)
	assert.Equal(t, 0, settled.ProcessedFiles)
}
