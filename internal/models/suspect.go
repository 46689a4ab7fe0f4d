package models

import "time"

// SuspectField is one key/value attribute of a suspect. Fields are ordered
// and opaque to the pipeline except for CDR suspect matching, which scans
// values against call records.
type SuspectField struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Suspect is an analyst-supplied person of interest, bound to a job at
// creation and read-only afterward. Adding suspects later requires a new job.
type Suspect struct {
	ID        string         `json:"id" badgerhold:"key"`
	JobID     string         `json:"job_id" badgerhold:"index"`
	Fields    []SuspectField `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}
