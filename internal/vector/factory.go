package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// NewStore creates the backend named by cfg.Type. A qdrant backend without a URL
// is not an error: the returned store fails every call with
// models.ErrDependencyUnavailable so the process can still start.
func NewStore(ctx context.Context, cfg config.VectorConfig, databasePath string, logger *zap.Logger) (Store, error) {
	logger = utils.OrNop(logger)
	switch cfg.Type {
	case "qdrant", "":
		if cfg.Qdrant.URL == "" {
			logger.Warn("vector store not configured; set QDRANT_URL or vector.qdrant.url")
			return &unavailableStore{kind: "qdrant", reason: "QDRANT_URL is not set"}, nil
		}
		return NewQdrantStore(cfg.Qdrant), nil
	case "sqlite":
		s, err := NewSQLiteStore(ctx, databasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite vector store: %w", err)
		}
		return s, nil
	case "memory":
		logger.Warn("using in-memory vector store; indexed chunks are lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s (supported: qdrant, sqlite, memory)", cfg.Type)
	}
}

// unavailableStore stands in for a backend that is not configured.
type unavailableStore struct {
	kind   string
	reason string
}

func (u *unavailableStore) err() error {
	return fmt.Errorf("%w: vector store %s: %s", models.ErrDependencyUnavailable, u.kind, u.reason)
}

func (u *unavailableStore) Type() string { return u.kind }
func (u *unavailableStore) Close() error { return nil }

func (u *unavailableStore) GetCollection(context.Context, string) (*CollectionInfo, error) {
	return nil, u.err()
}

func (u *unavailableStore) CreateCollection(context.Context, string, int, Distance) error {
	return u.err()
}

func (u *unavailableStore) Upsert(context.Context, string, []Point, bool) error {
	return u.err()
}

func (u *unavailableStore) Search(context.Context, string, []float32, []FieldMatch, int) ([]ScoredPoint, error) {
	return nil, u.err()
}
