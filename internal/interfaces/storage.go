package interfaces

import (
	"context"

	"github.com/sentinelai/sentinel/internal/models"
)

// JobScope is the RBAC predicate applied to every job read. Both the prefix
// match on the hierarchical job ID and the owner predicate must hold.
// A nil OwnerIDs slice admits any owner (admin).
type JobScope struct {
	Prefix   string   // Hierarchical job ID prefix ("" = no restriction)
	OwnerIDs []string // Admitted owner user IDs (nil = any)
}

// Admits reports whether the scope admits a job
func (s *JobScope) Admits(job *models.Job) bool {
	if s.Prefix != "" && len(job.ID) >= len(s.Prefix) && job.ID[:len(s.Prefix)] != s.Prefix {
		return false
	}
	if s.Prefix != "" && len(job.ID) < len(s.Prefix) {
		return false
	}
	if s.OwnerIDs == nil {
		return true
	}
	for _, id := range s.OwnerIDs {
		if job.OwnerUserID == id {
			return true
		}
	}
	return false
}

// JobListOptions filters and paginates job listings
type JobListOptions struct {
	CaseName string
	Scope    *JobScope
	Limit    int
	Offset   int
}

// JobStorage - interface for job persistence
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	// UpdateJob applies mutate under a serialized read-modify-write and bumps
	// the job's Version. Used for the aggregate counters so concurrent
	// artifact completions never lose updates.
	UpdateJob(ctx context.Context, jobID string, mutate func(*models.Job) error) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	ListCases(ctx context.Context, scope *JobScope) ([]string, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// ArtifactStorage - interface for artifact persistence
type ArtifactStorage interface {
	SaveArtifact(ctx context.Context, artifact *models.Artifact) error
	GetArtifact(ctx context.Context, artifactID string) (*models.Artifact, error)
	GetArtifactsByJob(ctx context.Context, jobID string) ([]*models.Artifact, error)
	DeleteArtifactsByJob(ctx context.Context, jobID string) error
}

// SuspectStorage - interface for suspect persistence. Suspects are immutable
// after the upload transaction; there is no update operation.
type SuspectStorage interface {
	SaveSuspects(ctx context.Context, suspects []*models.Suspect) error
	GetSuspectsByJob(ctx context.Context, jobID string) ([]*models.Suspect, error)
	CountSuspectsByJob(ctx context.Context, jobID string) (int, error)
	DeleteSuspectsByJob(ctx context.Context, jobID string) error
}

// ChunkStorage - interface for retrieval chunk persistence
type ChunkStorage interface {
	// ReplaceChunks deletes any chunks for the artifact and saves the new
	// set. Keyed by artifact + index, this keeps the embeddings stage
	// idempotent under at-least-once delivery.
	ReplaceChunks(ctx context.Context, artifactID string, chunks []*models.Chunk) error
	GetChunksByArtifact(ctx context.Context, artifactID string) ([]*models.Chunk, error)
	GetChunksByJob(ctx context.Context, jobID string) ([]*models.Chunk, error)
	DeleteChunksByArtifact(ctx context.Context, artifactID string) error
}

// GraphStorage - interface for knowledge graph persistence
type GraphStorage interface {
	// UpsertNode deduplicates by (case, type, normalized label): on a hit,
	// properties merge last-write-wins and provenance is unioned. Returns
	// the stored node.
	UpsertNode(ctx context.Context, node *models.GraphNode) (*models.GraphNode, error)
	SaveEdge(ctx context.Context, edge *models.GraphEdge) error
	GetNodesByCase(ctx context.Context, caseName string) ([]*models.GraphNode, error)
	GetEdgesByCase(ctx context.Context, caseName string) ([]*models.GraphEdge, error)
	GetEdgesByArtifact(ctx context.Context, artifactID string) ([]*models.GraphEdge, error)
	DeleteEdgesByArtifact(ctx context.Context, artifactID string) error
}

// UserStorage - interface for principal persistence
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListAnalystsBySupervisor(ctx context.Context, supervisorID string) ([]*models.User, error)
}

// ActivityStorage - append-only audit log
type ActivityStorage interface {
	Append(ctx context.Context, entry *models.ActivityLogEntry) error
	List(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	ArtifactStorage() ArtifactStorage
	SuspectStorage() SuspectStorage
	ChunkStorage() ChunkStorage
	GraphStorage() GraphStorage
	UserStorage() UserStorage
	ActivityStorage() ActivityStorage

	// DB returns the underlying database handle (*badgerhold.Store)
	DB() interface{}
	Close() error
}
