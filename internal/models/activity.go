package models

import "time"

// ActivityLogEntry is one append-only audit record
type ActivityLogEntry struct {
	ID        uint64    `json:"id" badgerhold:"key"`
	UserID    string    `json:"user_id" badgerhold:"index"`
	Kind      string    `json:"kind"` // "login", "upload", "dlq_requeue", ...
	Details   string    `json:"details,omitempty"`
	Role      string    `json:"role,omitempty"`
	Scope     string    `json:"scope,omitempty"` // RBAC scope prefix in effect
	Timestamp time.Time `json:"timestamp"`
}
