package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeOpenAI answers embeddings requests with vectors [len(text), i, 0] in
// reverse order, failing the first `failures` calls with `failStatus`.
func fakeOpenAI(t *testing.T, failures int32, failStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if n <= failures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"try later","type":"server_error"}}`))
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{
				Object:    "embedding",
				Index:     i,
				Embedding: []float64{float64(len(req.Input[i])), float64(i), 0},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func openAIConfig(baseURL string) config.EmbeddingConfig {
	cfg := testEmbeddingConfig()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = baseURL + "/v1/"
	return cfg
}

func TestOpenAIEmbedder_EmbedTexts_OrderAndNormalization(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.EqualValues(t, 1, calls.Load())

	// Input 0 has raw vector [1, 0, 0].
	assert.InDelta(t, 1.0, vecs[0][0], 1e-6)
	assert.InDelta(t, 0.0, vecs[0][1], 1e-6)
	// Input 1 has raw vector [3, 1, 0]; the ratio survives normalization.
	assert.InDelta(t, 3.0, float64(vecs[1][0]/vecs[1][1]), 1e-5)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, utils.L2Norm(v), 1e-6)
	}
}

func TestOpenAIEmbedder_RetriesTransientFailures(t *testing.T) {
	srv, calls := fakeOpenAI(t, 2, http.StatusServiceUnavailable)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	v, err := e.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAIEmbedder_GivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := fakeOpenAI(t, 100, http.StatusTooManyRequests)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	_, err := e.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.True(t, IsProviderFailure(err))
	assert.EqualValues(t, 5, calls.Load())
}

func TestOpenAIEmbedder_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := fakeOpenAI(t, 100, http.StatusUnauthorized)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	_, err := e.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, IsProviderFailure(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAIEmbedder_NotConfiguredMakesNoRequest(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	cfg := openAIConfig(srv.URL)
	cfg.APIKey = ""
	e := NewOpenAIEmbedder(cfg)

	_, err := e.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, models.ErrProviderNotConfigured)
	assert.EqualValues(t, 0, calls.Load())
}

func TestOpenAIEmbedder_EmptyBatch(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	out, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.EqualValues(t, 0, calls.Load())
}

func TestOpenAIEmbedder_RateLimited(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	cfg := openAIConfig(srv.URL)
	cfg.RequestsPerSecond = 1000
	e := NewOpenAIEmbedder(cfg)

	for i := 0; i < 3; i++ {
		_, err := e.EmbedQuery(context.Background(), strings.Repeat("x", i+1))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestOpenAIEmbedder_EmbedQueryCached(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0, 0)
	e := NewOpenAIEmbedder(openAIConfig(srv.URL))

	first, err := e.EmbedQuery(context.Background(), "pasta")
	require.NoError(t, err)
	second, err := e.EmbedQuery(context.Background(), "pasta")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())

	second[0] = 42
	third, err := e.EmbedQuery(context.Background(), "pasta")
	require.NoError(t, err)
	assert.Equal(t, first, third, "cached vectors are copies")

	cfg := openAIConfig(srv.URL)
	cfg.QueryCacheSize = -1
	uncached := NewOpenAIEmbedder(cfg)
	for i := 0; i < 2; i++ {
		_, err := uncached.EmbedQuery(context.Background(), "pasta")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
}
