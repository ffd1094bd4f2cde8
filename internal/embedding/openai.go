package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/retry"
	"github.com/hyperjump/shiori/pkg/utils"
)

// defaultOpenAIDimension is used for model ids missing from openAIDimensions.
const defaultOpenAIDimension = 1536

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIDimension returns the static output dimension of an OpenAI embedding model.
func OpenAIDimension(model string) int {
	if d, ok := openAIDimensions[model]; ok {
		return d
	}
	return defaultOpenAIDimension
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. One EmbedTexts
// call is one HTTP request per attempt; attempts follow the retry policy.
type OpenAIEmbedder struct {
	client    openai.Client
	apiKey    string
	model     string
	dimension int
	policy    retry.Policy
	limiter   *rate.Limiter
	queries   *VectorCache
	logger    *zap.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds the embedder without contacting the provider.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, opts ...Option) *OpenAIEmbedder {
	o := applyOptions(opts)

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are owned by the policy below.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClient(clientOpts...),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: OpenAIDimension(cfg.Model),
		queries:   NewVectorCache(cfg.QueryCacheSize),
		logger:    o.logger,
	}
	e.policy = retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Retryable:   IsTransient,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			e.logger.Warn("embedding request failed, retrying",
				zap.String("model", e.model),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e
}

// Configured reports whether an API key is present.
func (e *OpenAIEmbedder) Configured() bool {
	return e.apiKey != ""
}

// Name returns the model id recorded in chunk metadata.
func (e *OpenAIEmbedder) Name() string {
	return e.model
}

// Dimension returns the static dimension of the configured model.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// EmbedTexts returns one normalized vector per text, in input order.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if !e.Configured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", models.ErrProviderNotConfigured)
	}

	var out [][]float32
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		vecs, err := e.request(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single text. Recent query vectors are served from an
// LRU cache so repeated queries do not reach the provider.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.queries.Get(text); ok {
		return vec, nil
	}
	vec, err := firstVector(ctx, e, text)
	if err != nil {
		return nil, err
	}
	e.queries.Add(text, vec)
	return vec, nil
}

// Close releases nothing; the HTTP client is shared.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding provider returned out-of-range index %d", d.Index)
		}
		vec := utils.Float64sToFloat32s(d.Embedding)
		utils.NormalizeL2(vec)
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding provider returned no vector for input %d", i)
		}
	}
	return out, nil
}

// IsTransient reports whether an embedding failure is worth retrying: network
// errors, timeouts, and HTTP 408, 409, 429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrProviderNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusRequestTimeout, code == http.StatusConflict, code == http.StatusTooManyRequests:
			return true
		case code >= 500:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded)
}

// IsProviderFailure reports whether err came from the provider side: either a
// transient failure that exhausted its retries or an error response.
func IsProviderFailure(err error) bool {
	if IsTransient(err) {
		return true
	}
	var apiErr *openai.Error
	return errors.As(err, &apiErr)
}

// ClassifyError maps a failed embedding call onto the caller-facing taxonomy:
// missing credentials and provider failures, including exhausted retries,
// become models.ErrDependencyUnavailable. Anything else is returned wrapped.
func ClassifyError(err error) error {
	if err == nil || models.IsDependencyUnavailable(err) {
		return err
	}
	if IsProviderFailure(err) {
		return fmt.Errorf("%w: embedding provider: %w", models.ErrDependencyUnavailable, err)
	}
	return fmt.Errorf("failed to embed: %w", err)
}
