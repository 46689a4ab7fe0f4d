package models

import (
	"strings"
	"time"
)

// GraphNode is an entity extracted by the graph worker. Nodes are
// deduplicated within a case by (case, type, normalized label); merges are
// last-write-wins per property with provenance unioned.
type GraphNode struct {
	ID         string            `json:"id" badgerhold:"key"`
	CaseName   string            `json:"case_name" badgerhold:"index"`
	Label      string            `json:"label"`
	LabelNorm  string            `json:"label_norm"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
	Provenance []string          `json:"provenance"` // Artifact IDs that produced this node
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// GraphEdge is a typed relation between two nodes, with artifact provenance
type GraphEdge struct {
	ID           string            `json:"id" badgerhold:"key"`
	CaseName     string            `json:"case_name" badgerhold:"index"`
	SourceNodeID string            `json:"source_node_id"`
	TargetNodeID string            `json:"target_node_id"`
	Type         string            `json:"type"`
	Properties   map[string]string `json:"properties,omitempty"`
	ArtifactID   string            `json:"artifact_id" badgerhold:"index"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NormalizeLabel canonicalizes an entity label for dedup keying
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
