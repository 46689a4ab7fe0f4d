package models

// Status event types carried on the per-job status channel
const (
	EventTypeArtifactStatus = "artifact_status"
	EventTypeJobStatus      = "job_status"
)

// StatusEvent is one status delta published on a job's status channel.
// Events are best-effort: the metadata store remains the source of truth
// and subscribers reconcile from a snapshot on connect.
type StatusEvent struct {
	Type             string             `json:"type"`
	JobID            string             `json:"job_id"`
	ArtifactID       string             `json:"artifact_id,omitempty"`
	Filename         string             `json:"filename,omitempty"`
	Status           string             `json:"status"`
	CurrentStage     string             `json:"current_stage,omitempty"`
	ProcessingStages map[string]float64 `json:"processing_stages,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty"`
}
