// Package embedding turns text into unit-length dense vectors through a pluggable provider.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Embedder produces vector embeddings for text. Dimension never performs I/O.
// Every returned vector has unit L2 norm, except zero vectors which are returned as is.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// New selects the provider named in cfg. Missing credentials do not fail here;
// they surface as models.ErrProviderNotConfigured on the first embedding call.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)
	switch cfg.Provider {
	case "openai", "":
		e := NewOpenAIEmbedder(cfg, WithLogger(logger))
		if !e.Configured() {
			logger.Warn("embedding provider has no API key; embedding calls will fail until one is configured",
				zap.String("provider", e.Name()))
		}
		return e, nil
	case "onnx":
		e, err := NewONNXEmbedder(cfg.ONNX.ModelPath, cfg.ONNX.Dimensions, cfg.ONNX.MaxTokens, cfg.ONNX.CacheSize)
		if err != nil {
			logger.Warn("ONNX embedder unavailable", zap.String("model_path", cfg.ONNX.ModelPath), zap.Error(err))
			return &unconfigured{
				name:      "onnx:" + cfg.ONNX.ModelPath,
				dimension: cfg.ONNX.Dimensions,
				reason:    err.Error(),
			}, nil
		}
		return e, nil
	case "mock":
		return NewMockEmbedder(cfg.MockDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Option configures optional embedder dependencies.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for retry and degradation messages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = utils.OrNop(o.logger)
	return o
}

// firstVector implements EmbedQuery as a singleton EmbedTexts call.
func firstVector(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vector")
	}
	return vecs[0], nil
}

// unconfigured stands in for a provider that could not be set up at startup.
type unconfigured struct {
	name      string
	dimension int
	reason    string
}

func (u *unconfigured) Name() string   { return u.name }
func (u *unconfigured) Dimension() int { return u.dimension }
func (u *unconfigured) Close() error   { return nil }

func (u *unconfigured) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return nil, fmt.Errorf("%w: %s", models.ErrProviderNotConfigured, u.reason)
}

func (u *unconfigured) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return firstVector(ctx, u, text)
}
