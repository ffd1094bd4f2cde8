package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/models"
)

func payload(filename string, page int, text string) map[string]any {
	return map[string]any{
		"text": text,
		"metadata": map[string]any{
			"filename":    filename,
			"page":        page,
			"source_type": "pdf",
		},
	}
}

// runStoreContract exercises behavior every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("missing collection", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetCollection(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrCollectionNotFound)
	})

	t.Run("create and describe", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateCollection(ctx, "docs", 3, DistanceCosine))
		info, err := s.GetCollection(ctx, "docs")
		require.NoError(t, err)
		assert.Equal(t, 3, info.Dimension)
		assert.Equal(t, DistanceCosine, info.Distance)
	})

	t.Run("upsert then search same vector scores one", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateCollection(ctx, "docs", 3, DistanceCosine))
		points := []Point{
			{ID: "11111111-1111-1111-1111-111111111111", Vector: []float32{1, 0, 0}, Payload: payload("a.pdf", 1, "alpha")},
			{ID: "22222222-2222-2222-2222-222222222222", Vector: []float32{0.6, 0.8, 0}, Payload: payload("a.pdf", 2, "beta")},
			{ID: "33333333-3333-3333-3333-333333333333", Vector: []float32{0, 0, 1}, Payload: payload("b.pdf", 1, "gamma")},
		}
		require.NoError(t, s.Upsert(ctx, "docs", points, true))

		hits, err := s.Search(ctx, "docs", []float32{0.6, 0.8, 0}, nil, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "beta", hits[0].Payload["text"])
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)

		hits, err = s.Search(ctx, "docs", []float32{1, 0, 0}, nil, 10)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
		assert.Equal(t, "alpha", hits[0].Payload["text"])
	})

	t.Run("filters are conjunctive", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateCollection(ctx, "docs", 2, DistanceCosine))
		require.NoError(t, s.Upsert(ctx, "docs", []Point{
			{ID: "11111111-1111-1111-1111-111111111111", Vector: []float32{1, 0}, Payload: payload("a.pdf", 1, "a1")},
			{ID: "22222222-2222-2222-2222-222222222222", Vector: []float32{1, 0.1}, Payload: payload("a.pdf", 2, "a2")},
			{ID: "33333333-3333-3333-3333-333333333333", Vector: []float32{1, 0.2}, Payload: payload("b.pdf", 1, "b1")},
		}, true))

		hits, err := s.Search(ctx, "docs", []float32{1, 0}, MetadataFilter(map[string]any{"filename": "a.pdf"}), 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
		for _, h := range hits {
			md := h.Payload["metadata"].(map[string]any)
			assert.Equal(t, "a.pdf", md["filename"])
		}

		hits, err = s.Search(ctx, "docs", []float32{1, 0}, MetadataFilter(map[string]any{"filename": "a.pdf", "page": 2}), 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "a2", hits[0].Payload["text"])

		hits, err = s.Search(ctx, "docs", []float32{1, 0}, MetadataFilter(map[string]any{"filename": "zzz.pdf"}), 10)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	})

	t.Run("upsert overwrites existing id", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateCollection(ctx, "docs", 2, DistanceCosine))
		id := "44444444-4444-4444-4444-444444444444"
		require.NoError(t, s.Upsert(ctx, "docs", []Point{{ID: id, Vector: []float32{1, 0}, Payload: payload("a", 1, "old")}}, true))
		require.NoError(t, s.Upsert(ctx, "docs", []Point{{ID: id, Vector: []float32{0, 1}, Payload: payload("a", 1, "new")}}, true))

		hits, err := s.Search(ctx, "docs", []float32{0, 1}, nil, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "new", hits[0].Payload["text"])
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	})

	t.Run("empty collection search", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateCollection(ctx, "docs", 2, DistanceCosine))
		hits, err := s.Search(ctx, "docs", []float32{1, 0}, nil, 8)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "vectors.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestQdrantStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		srv := newFakeQdrant(t, "")
		return NewQdrantStore(qdrantTestConfig(srv.URL, ""))
	})
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(ctx, "docs", 2, DistanceCosine))
	require.NoError(t, s.Upsert(ctx, "docs", []Point{{ID: "p1", Vector: []float32{1, 0}, Payload: payload("a", 1, "kept")}}, true))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	info, err := s.GetCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Points)
	hits, err := s.Search(ctx, "docs", []float32{1, 0}, MetadataFilter(map[string]any{"page": 1.0}), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "kept", hits[0].Payload["text"])
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateCollection(ctx, "docs", 3, DistanceCosine))
	assert.Error(t, s.Upsert(ctx, "docs", []Point{{ID: "x", Vector: []float32{1}}}, true))
	_, err := s.Search(ctx, "docs", []float32{1}, nil, 1)
	assert.Error(t, err)
}
