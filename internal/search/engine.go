// Package search answers natural-language queries from the vector index.
package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Engine runs dense retrieval: embed the query, search the collection, and
// assemble the placeholder answer.
type Engine struct {
	embedder embedding.Embedder
	vectors  *vector.Manager
	config   config.RetrievalConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for query events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(embedder embedding.Embedder, vectors *vector.Manager, cfg config.RetrievalConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder: embedder,
		vectors:  vectors,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Query returns up to req.TopK chunks ordered by descending similarity.
// req is normalized in place.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()
	if err := ProcessQuery(req, e.config); err != nil {
		return nil, err
	}

	if err := e.vectors.EnsureCollection(ctx, e.embedder.Dimension()); err != nil {
		return nil, err
	}
	queryVector, err := e.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, embedding.ClassifyError(err)
	}
	hits, err := e.vectors.Search(ctx, queryVector, req.Filters, req.TopK)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, toRetrievedChunk(h))
	}
	resp := &models.QueryResponse{
		Answer:    BuildAnswer(chunks, e.config.SnippetChars, e.config.AnswerChars),
		Chunks:    chunks,
		Citations: []models.Citation{},
	}
	e.logger.Debug("query served",
		zap.Int("top_k", req.TopK),
		zap.Int("filters", len(req.Filters)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

func toRetrievedChunk(h vector.ScoredPoint) models.RetrievedChunk {
	text, _ := h.Payload["text"].(string)
	md, _ := h.Payload["metadata"].(map[string]any)
	if md == nil {
		md = map[string]any{}
	}
	return models.RetrievedChunk{Text: text, Score: h.Score, Metadata: md}
}

// Status reports the embedding model and the state of the chunk collection.
// An unreachable store is reported in the result, not as an error.
func (e *Engine) Status(ctx context.Context) (models.EmbeddingStatus, models.VectorStatus) {
	emb := models.EmbeddingStatus{Model: e.embedder.Name(), Dimension: e.embedder.Dimension()}
	vs := models.VectorStatus{Store: e.vectors.StoreType(), Collection: e.vectors.Collection()}
	info, err := e.vectors.Info(ctx)
	switch {
	case errors.Is(err, models.ErrCollectionNotFound):
	case err != nil:
		vs.Error = err.Error()
	default:
		vs.Dimension = info.Dimension
		vs.Points = info.Points
	}
	return emb, vs
}
