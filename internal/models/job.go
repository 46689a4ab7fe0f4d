package models

import "time"

// JobStatus is the lifecycle status of a job (one unified upload)
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusPartial    JobStatus = "partial"
)

// Job represents one unified upload: >= 1 artifacts plus 0..N suspects.
// The ID is hierarchical (<supervisor>/<owner>/<uuid>) and encodes the
// supervisory scope used by RBAC filters.
//
// ProcessedFiles counts artifacts that completed the graph stage,
// FailedFiles counts artifacts that terminally failed. Both are mutated
// only through JobStorage.UpdateJob, which serializes the read-modify-write
// and bumps Version so concurrent completions never lose updates.
type Job struct {
	ID             string    `json:"id" badgerhold:"key"`
	OwnerUserID    string    `json:"owner_user_id" badgerhold:"index"`
	CaseName       string    `json:"case_name" badgerhold:"index"`
	ParentJobID    string    `json:"parent_job_id,omitempty"`
	StoragePrefix  string    `json:"storage_prefix"`
	TotalFiles     int       `json:"total_files"`
	ProcessedFiles int       `json:"processed_files"`
	FailedFiles    int       `json:"failed_files"`
	Status         JobStatus `json:"status"`
	Error          string    `json:"error,omitempty"`
	Version        int64     `json:"version"` // Monotonic, bumped on every counter update
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsTerminal reports whether the job has reached a terminal status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusPartial
}

// TerminalStatus derives the job's terminal status from its artifact
// outcomes: all completed => completed, all failed => failed, mixed =>
// partial. Callers must only invoke this once every artifact is terminal.
func TerminalStatus(processed, failed int) JobStatus {
	switch {
	case failed == 0:
		return JobStatusCompleted
	case processed == 0:
		return JobStatusFailed
	default:
		return JobStatusPartial
	}
}
