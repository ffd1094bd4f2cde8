package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vector_collections (
	name TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL,
	distance TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS vector_points (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	vector BLOB NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY (collection, id),
	FOREIGN KEY (collection) REFERENCES vector_collections(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vector_points_seq ON vector_points(collection, seq);
`

// SQLiteStore keeps collections in the local SQLite database and scans them
// with cosine similarity. Suited to single-node deployments of modest size.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the vector tables in dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(ctx, dbPath, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Type returns the backend name.
func (s *SQLiteStore) Type() string {
	return "sqlite"
}

// GetCollection returns the collection description.
func (s *SQLiteStore) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	info := CollectionInfo{Name: name}
	var distance string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension, distance FROM vector_collections WHERE name = ?`, name,
	).Scan(&info.Dimension, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	info.Distance = Distance(distance)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vector_points WHERE collection = ?`, name,
	).Scan(&info.Points); err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}
	return &info, nil
}

// CreateCollection creates name, dropping any existing collection of that name.
func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, dimension int, distance Distance) error {
	if dimension <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_points WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vector_collections (name, dimension, distance) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET dimension = excluded.dimension, distance = excluded.distance`,
		name, dimension, string(distance),
	); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return tx.Commit()
}

// Upsert writes all points in one transaction. The commit makes them durable,
// so wait is always honored.
func (s *SQLiteStore) Upsert(ctx context.Context, name string, points []Point, _ bool) error {
	info, err := s.GetCollection(ctx, name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != info.Dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(p.Vector), info.Dimension)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM vector_points WHERE collection = ?`, name,
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_points (collection, id, seq, vector, payload) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET vector = excluded.vector, payload = excluded.payload`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx, name, p.ID, seq, float32SliceToBytes(p.Vector), string(payload)); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Search scans the collection in insertion order and returns the best matches.
func (s *SQLiteStore) Search(ctx context.Context, name string, query []float32, filter []FieldMatch, limit int) ([]ScoredPoint, error) {
	info, err := s.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(query) != info.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), info.Dimension)
	}
	hits := make([]ScoredPoint, 0)
	if limit <= 0 {
		return hits, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector, payload FROM vector_points WHERE collection = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to scan points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			blob    []byte
			payload string
		)
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, err
		}
		var p map[string]any
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", id, err)
		}
		if !Matches(p, filter) {
			continue
		}
		hits = append(hits, ScoredPoint{ID: id, Score: CosineSimilarity(query, bytesToFloat32Slice(blob)), Payload: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topK(hits, limit), nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
