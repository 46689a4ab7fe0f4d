package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// GraphStorage implements the GraphStorage interface for Badger
type GraphStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Per-case locks serialize node dedup merges. Two graph workers
	// upserting the same (case, type, label) concurrently must not both
	// insert.
	caseMu sync.Mutex
	cases  map[string]*sync.Mutex
}

// NewGraphStorage creates a new GraphStorage instance
func NewGraphStorage(db *BadgerDB, logger arbor.ILogger) interfaces.GraphStorage {
	return &GraphStorage{
		db:     db,
		logger: logger,
		cases:  make(map[string]*sync.Mutex),
	}
}

func (s *GraphStorage) caseLock(caseName string) *sync.Mutex {
	s.caseMu.Lock()
	defer s.caseMu.Unlock()
	mu, ok := s.cases[caseName]
	if !ok {
		mu = &sync.Mutex{}
		s.cases[caseName] = mu
	}
	return mu
}

// UpsertNode deduplicates by (case, type, normalized label). On a hit the
// incoming properties win per key and provenance is unioned.
func (s *GraphStorage) UpsertNode(ctx context.Context, node *models.GraphNode) (*models.GraphNode, error) {
	if node.LabelNorm == "" {
		node.LabelNorm = models.NormalizeLabel(node.Label)
	}

	mu := s.caseLock(node.CaseName)
	mu.Lock()
	defer mu.Unlock()

	var existing []models.GraphNode
	query := badgerhold.Where("CaseName").Eq(node.CaseName).
		And("Type").Eq(node.Type).
		And("LabelNorm").Eq(node.LabelNorm)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return nil, fmt.Errorf("failed to query graph nodes: %w", err)
	}

	now := time.Now()

	if len(existing) == 0 {
		if node.ID == "" {
			node.ID = common.NewNodeID()
		}
		node.CreatedAt = now
		node.UpdatedAt = now
		if err := s.db.Store().Upsert(node.ID, node); err != nil {
			return nil, fmt.Errorf("failed to insert graph node: %w", err)
		}
		return node, nil
	}

	merged := existing[0]
	if merged.Properties == nil {
		merged.Properties = make(map[string]string)
	}
	for k, v := range node.Properties {
		merged.Properties[k] = v
	}
	for _, artifactID := range node.Provenance {
		found := false
		for _, p := range merged.Provenance {
			if p == artifactID {
				found = true
				break
			}
		}
		if !found {
			merged.Provenance = append(merged.Provenance, artifactID)
		}
	}
	merged.UpdatedAt = now

	if err := s.db.Store().Upsert(merged.ID, &merged); err != nil {
		return nil, fmt.Errorf("failed to merge graph node: %w", err)
	}
	return &merged, nil
}

func (s *GraphStorage) SaveEdge(ctx context.Context, edge *models.GraphEdge) error {
	if edge.ID == "" {
		edge.ID = common.NewEdgeID()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(edge.ID, edge); err != nil {
		return fmt.Errorf("failed to save graph edge: %w", err)
	}
	return nil
}

func (s *GraphStorage) GetNodesByCase(ctx context.Context, caseName string) ([]*models.GraphNode, error) {
	var nodes []models.GraphNode
	if err := s.db.Store().Find(&nodes, badgerhold.Where("CaseName").Eq(caseName)); err != nil {
		return nil, fmt.Errorf("failed to list graph nodes: %w", err)
	}
	result := make([]*models.GraphNode, len(nodes))
	for i := range nodes {
		result[i] = &nodes[i]
	}
	return result, nil
}

func (s *GraphStorage) GetEdgesByCase(ctx context.Context, caseName string) ([]*models.GraphEdge, error) {
	var edges []models.GraphEdge
	if err := s.db.Store().Find(&edges, badgerhold.Where("CaseName").Eq(caseName)); err != nil {
		return nil, fmt.Errorf("failed to list graph edges: %w", err)
	}
	result := make([]*models.GraphEdge, len(edges))
	for i := range edges {
		result[i] = &edges[i]
	}
	return result, nil
}

func (s *GraphStorage) GetEdgesByArtifact(ctx context.Context, artifactID string) ([]*models.GraphEdge, error) {
	var edges []models.GraphEdge
	if err := s.db.Store().Find(&edges, badgerhold.Where("ArtifactID").Eq(artifactID)); err != nil {
		return nil, fmt.Errorf("failed to list graph edges: %w", err)
	}
	result := make([]*models.GraphEdge, len(edges))
	for i := range edges {
		result[i] = &edges[i]
	}
	return result, nil
}

func (s *GraphStorage) DeleteEdgesByArtifact(ctx context.Context, artifactID string) error {
	if err := s.db.Store().DeleteMatching(&models.GraphEdge{}, badgerhold.Where("ArtifactID").Eq(artifactID)); err != nil {
		return fmt.Errorf("failed to delete graph edges: %w", err)
	}
	return nil
}
