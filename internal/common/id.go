package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewJobID generates a hierarchical job ID encoding supervisory scope:
// <supervisor>/<owner>/<uuid>. For owners without a supervisor (admins,
// managers) the supervisor component is the owner itself, so a manager's
// scope prefix covers their own jobs as well as their analysts'.
func NewJobID(supervisorID, ownerID string) string {
	if supervisorID == "" {
		supervisorID = ownerID
	}
	return supervisorID + "/" + ownerID + "/" + uuid.New().String()
}

// JobIDOwner extracts the owner component from a hierarchical job ID.
// Returns "" if the ID is not hierarchical.
func JobIDOwner(jobID string) string {
	parts := strings.SplitN(jobID, "/", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// NewArtifactID generates a unique artifact ID with the "art_" prefix
func NewArtifactID() string {
	return "art_" + uuid.New().String()
}

// NewSuspectID generates a unique suspect ID with the "sus_" prefix
func NewSuspectID() string {
	return "sus_" + uuid.New().String()
}

// NewChunkID generates a unique chunk ID with the "chk_" prefix
func NewChunkID() string {
	return "chk_" + uuid.New().String()
}

// NewNodeID generates a unique graph node ID with the "node_" prefix
func NewNodeID() string {
	return "node_" + uuid.New().String()
}

// NewEdgeID generates a unique graph edge ID with the "edge_" prefix
func NewEdgeID() string {
	return "edge_" + uuid.New().String()
}

// NewUserID generates a unique user ID with the "usr_" prefix
func NewUserID() string {
	return "usr_" + uuid.New().String()
}
