package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// MemoryStore is an in-process Store using brute-force cosine search.
// Contents live only as long as the process.
type MemoryStore struct {
	collections map[string]*memoryCollection
	mu          sync.RWMutex
}

type memoryCollection struct {
	dimension int
	distance  Distance
	order     []string
	points    map[string]Point
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Type returns the backend name.
func (m *MemoryStore) Type() string {
	return "memory"
}

// GetCollection returns the collection description.
func (m *MemoryStore) GetCollection(_ context.Context, name string) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	return &CollectionInfo{Name: name, Dimension: c.dimension, Distance: c.distance, Points: len(c.order)}, nil
}

// CreateCollection creates name, replacing any existing collection.
func (m *MemoryStore) CreateCollection(_ context.Context, name string, dimension int, distance Distance) error {
	if dimension <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = &memoryCollection{
		dimension: dimension,
		distance:  distance,
		points:    make(map[string]Point),
	}
	return nil
}

// Upsert copies points into the collection. Writes are visible immediately.
func (m *MemoryStore) Upsert(_ context.Context, name string, points []Point, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(p.Vector), c.dimension)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = Point{ID: p.ID, Vector: vec, Payload: p.Payload}
	}
	return nil
}

// Search returns the top matches by cosine similarity.
func (m *MemoryStore) Search(_ context.Context, name string, query []float32, filter []FieldMatch, limit int) ([]ScoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.dimension)
	}
	hits := make([]ScoredPoint, 0)
	if limit <= 0 {
		return hits, nil
	}
	for _, id := range c.order {
		p := c.points[id]
		if !Matches(p.Payload, filter) {
			continue
		}
		hits = append(hits, ScoredPoint{ID: id, Score: CosineSimilarity(query, p.Vector), Payload: p.Payload})
	}
	return topK(hits, limit), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

// topK sorts hits by descending score (ties keep insertion order) and truncates.
func topK(hits []ScoredPoint, k int) []ScoredPoint {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
