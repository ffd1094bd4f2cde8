package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/query", func(w http.ResponseWriter, r *http.Request) {
		var req models.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		answer := "echo " + req.Query
		_ = json.NewEncoder(w).Encode(models.QueryResponse{
			Answer:    &answer,
			Chunks:    []models.RetrievedChunk{{Text: req.Query, Score: 1, Metadata: req.Filters}},
			Citations: []models.Citation{},
		})
	})
	r.Post("/ingest/file", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		name := hdr.Filename
		if v := r.FormValue("filename"); v != "" {
			name = v
		}
		if r.FormValue("source_type") == "csv" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "vector store unavailable", "job_id": "j-failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			JobID:    "j1",
			Status:   models.JobCompleted,
			Stats:    models.JobStats{Chunks: 1},
			Metadata: models.IngestMetadata{Filename: name, SourceType: models.SourceType(r.FormValue("source_type"))},
		})
	})
	r.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "j1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.Job{ID: "j1", Status: models.JobCompleted})
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Status{Jobs: models.JobsStatus{Backend: "sqlite"}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Query(t *testing.T) {
	c := NewClient(newTestServer(t).URL+"/", 5*time.Second)
	resp, err := c.Query(context.Background(), &models.QueryRequest{Query: "pasta", Filters: map[string]any{"page": 2}})
	require.NoError(t, err)
	require.NotNil(t, resp.Answer)
	assert.Equal(t, "echo pasta", *resp.Answer)
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, float64(2), resp.Chunks[0].Metadata["page"])
}

func TestClient_IngestFile(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.TXT")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	resp, err := c.IngestFile(context.Background(), path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "notes.TXT", resp.Metadata.Filename)
	assert.Equal(t, models.SourceTXT, resp.Metadata.SourceType)

	resp, err = c.IngestFile(context.Background(), path, "txt", "renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, "renamed.txt", resp.Metadata.Filename)
}

func TestClient_IngestFileErrors(t *testing.T) {
	c := NewClient(newTestServer(t).URL, 5*time.Second)
	dir := t.TempDir()

	img := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(img, []byte{0x89}, 0644))
	_, err := c.IngestFile(context.Background(), img, "", "")
	assert.ErrorIs(t, err, models.ErrUnsupportedSourceType)

	csv := filepath.Join(dir, "table.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a\n1\n"), 0644))
	_, err = c.IngestFile(context.Background(), csv, "", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "vector store unavailable", apiErr.Message)
	assert.Equal(t, "j-failed", apiErr.JobID)
	assert.Contains(t, err.Error(), "job j-failed")

	_, err = c.IngestFile(context.Background(), filepath.Join(dir, "missing.txt"), "", "")
	assert.Error(t, err)
}

func TestClient_JobAndStatus(t *testing.T) {
	c := NewClient(newTestServer(t).URL, 5*time.Second)
	job, err := c.Job(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)

	_, err = c.Job(context.Background(), "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "job not found", apiErr.Message)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Jobs.Backend)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := NewClient(url, time.Second).Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
