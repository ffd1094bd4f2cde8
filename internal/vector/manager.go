package vector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Manager owns a single collection on a Store.
type Manager struct {
	store      Store
	collection string
	strict     bool
	logger     *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for collection lifecycle messages.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStrictDimension makes EnsureCollection fail on a dimension mismatch
// instead of only logging it.
func WithStrictDimension(strict bool) ManagerOption {
	return func(m *Manager) {
		m.strict = strict
	}
}

// NewManager returns a manager for collection on store.
func NewManager(store Store, collection string, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, collection: collection}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = utils.OrNop(m.logger)
	return m
}

// Collection returns the managed collection name.
func (m *Manager) Collection() string {
	return m.collection
}

// StoreType returns the backend name.
func (m *Manager) StoreType() string {
	return m.store.Type()
}

// Info returns the current collection description.
func (m *Manager) Info(ctx context.Context) (*CollectionInfo, error) {
	return m.store.GetCollection(ctx, m.collection)
}

// EnsureCollection creates the collection with cosine distance if it is missing.
// An existing collection with another dimension is left untouched and logged.
// Every failure is reported as models.ErrDependencyUnavailable.
func (m *Manager) EnsureCollection(ctx context.Context, dimension int) error {
	info, err := m.store.GetCollection(ctx, m.collection)
	if errors.Is(err, models.ErrCollectionNotFound) {
		createErr := m.store.CreateCollection(ctx, m.collection, dimension, DistanceCosine)
		if createErr == nil {
			m.logger.Info("created vector collection",
				zap.String("collection", m.collection),
				zap.Int("dimension", dimension),
				zap.String("store", m.store.Type()))
			return nil
		}
		// Another request may have created it first.
		info, err = m.store.GetCollection(ctx, m.collection)
		if err != nil {
			return fmt.Errorf("%w: failed to create collection %q: %w", models.ErrDependencyUnavailable, m.collection, createErr)
		}
	}
	if err != nil {
		if models.IsDependencyUnavailable(err) {
			return fmt.Errorf("failed to get collection %q: %w", m.collection, err)
		}
		return fmt.Errorf("%w: failed to get collection %q: %w", models.ErrDependencyUnavailable, m.collection, err)
	}
	if info.Dimension != dimension {
		m.logger.Warn("vector collection dimension differs from embedding dimension",
			zap.String("collection", m.collection),
			zap.Int("collection_dimension", info.Dimension),
			zap.Int("embedding_dimension", dimension))
		if m.strict {
			return fmt.Errorf("%w: collection %q has dimension %d, embeddings have %d",
				models.ErrDependencyUnavailable, m.collection, info.Dimension, dimension)
		}
	}
	return nil
}

// Upsert writes positionally aligned ids, vectors and payloads and waits for
// the store to acknowledge them.
func (m *Manager) Upsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]any) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return fmt.Errorf("upsert length mismatch: %d ids, %d vectors, %d payloads", len(ids), len(vectors), len(payloads))
	}
	if len(ids) == 0 {
		return nil
	}
	points := make([]Point, len(ids))
	for i := range ids {
		points[i] = Point{ID: ids[i], Vector: vectors[i], Payload: payloads[i]}
	}
	if err := m.store.Upsert(ctx, m.collection, points, true); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	m.logger.Debug("upserted points", zap.String("collection", m.collection), zap.Int("count", len(points)))
	return nil
}

// Search returns up to k points whose metadata matches every filter, ordered by
// descending cosine similarity. No match is an empty slice, not an error.
func (m *Manager) Search(ctx context.Context, vector []float32, filters map[string]any, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		return []ScoredPoint{}, nil
	}
	hits, err := m.store.Search(ctx, m.collection, vector, MetadataFilter(filters), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", m.collection, err)
	}
	if hits == nil {
		hits = []ScoredPoint{}
	}
	return hits, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
