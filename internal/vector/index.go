// Package vector stores embedded chunks and runs filtered similarity search over them.
package vector

import "context"

// Distance is the similarity metric of a collection.
type Distance string

// DistanceCosine is the only metric used for chunk collections.
const DistanceCosine Distance = "Cosine"

// Point is one indexed vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit. Higher scores are more similar.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// FieldMatch requires the payload value at the dotted path Key to equal Value.
type FieldMatch struct {
	Key   string
	Value any
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Distance  Distance
	Points    int
}

// Store is a vector database holding named collections.
type Store interface {
	// GetCollection returns models.ErrCollectionNotFound when name does not exist.
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)
	CreateCollection(ctx context.Context, name string, dimension int, distance Distance) error
	// Upsert inserts or fully replaces points by id. With wait set the call
	// returns only after the write is durable and visible to searches.
	Upsert(ctx context.Context, name string, points []Point, wait bool) error
	// Search returns at most limit points matching every filter, best first.
	Search(ctx context.Context, name string, vector []float32, filter []FieldMatch, limit int) ([]ScoredPoint, error)
	Type() string
	Close() error
}
