package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// QdrantStore talks to a Qdrant server over its REST API.
type QdrantStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Store = (*QdrantStore)(nil)

// errQdrantNotFound is returned by do for 404 responses.
var errQdrantNotFound = errors.New("qdrant: not found")

// NewQdrantStore creates a client for the server at cfg.URL. No request is made.
func NewQdrantStore(cfg config.QdrantConfig) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Type returns the backend name.
func (s *QdrantStore) Type() string {
	return "qdrant"
}

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

// GetCollection reads the vector size and distance of name.
func (s *QdrantStore) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount *int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, collectionPath(name), nil, &resp)
	if errors.Is(err, errQdrantNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	info := &CollectionInfo{Name: name}
	if resp.Result.PointsCount != nil {
		info.Points = *resp.Result.PointsCount
	}
	var single qdrantVectorParams
	if err := json.Unmarshal(resp.Result.Config.Params.Vectors, &single); err == nil && single.Size > 0 {
		info.Dimension = single.Size
		info.Distance = Distance(single.Distance)
		return info, nil
	}
	// Named vectors: report the first one.
	var named map[string]qdrantVectorParams
	if err := json.Unmarshal(resp.Result.Config.Params.Vectors, &named); err == nil {
		for _, p := range named {
			info.Dimension = p.Size
			info.Distance = Distance(p.Distance)
			break
		}
	}
	return info, nil
}

// CreateCollection creates name with a single unnamed vector.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dimension int, distance Distance) error {
	if dimension <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	body := map[string]any{
		"vectors": qdrantVectorParams{Size: dimension, Distance: string(distance)},
	}
	return s.do(ctx, http.MethodPut, collectionPath(name), body, nil)
}

// Upsert writes points; with wait the server acknowledges only applied writes.
func (s *QdrantStore) Upsert(ctx context.Context, name string, points []Point, wait bool) error {
	type qdrantPoint struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		body.Points[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	path := collectionPath(name) + "/points"
	if wait {
		path += "?wait=true"
	}
	return s.do(ctx, http.MethodPut, path, body, nil)
}

// Search runs a filtered nearest-neighbor query.
func (s *QdrantStore) Search(ctx context.Context, name string, vector []float32, filter []FieldMatch, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, len(filter))
		for i, f := range filter {
			must[i] = map[string]any{
				"key":   f.Key,
				"match": map[string]any{"value": f.Value},
			}
		}
		req["filter"] = map[string]any{"must": must}
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", req, &resp)
	if errors.Is(err, errQdrantNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	hits := make([]ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, ScoredPoint{ID: fmt.Sprint(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Close releases idle connections.
func (s *QdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// do sends a JSON request. Transport failures and 5xx responses are reported
// as models.ErrDependencyUnavailable.
func (s *QdrantStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %w", models.ErrDependencyUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errQdrantNotFound
	}
	if resp.StatusCode >= 300 {
		msg := qdrantErrorMessage(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: qdrant %s %s failed: %s %s", models.ErrDependencyUnavailable, method, path, resp.Status, msg)
		}
		return fmt.Errorf("qdrant %s %s failed: %s %s", method, path, resp.Status, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}

func qdrantErrorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(data, &e) == nil && e.Status.Error != "" {
		return e.Status.Error
	}
	return strings.TrimSpace(string(data))
}
