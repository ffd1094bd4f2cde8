package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	JobID      string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.JobID != "" {
		msg += " (job " + e.JobID + ")"
	}
	return msg
}

// Client talks to a running shiori server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Query posts a retrieval request.
func (c *Client) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestFile uploads the file at path. Empty sourceType is inferred from the
// extension; empty filename keeps the file's base name.
func (c *Client) IngestFile(ctx context.Context, path, sourceType, filename string) (*models.IngestResponse, error) {
	if sourceType == "" {
		st, ok := models.SourceTypeForExtension(strings.ToLower(filepath.Ext(path)))
		if !ok {
			return nil, fmt.Errorf("%w: cannot infer source type of %s", models.ErrUnsupportedSourceType, path)
		}
		sourceType = string(st)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("source_type", sourceType)
	if filename != "" {
		_ = mw.WriteField("filename", filename)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out models.IngestResponse
	if err := c.do(ctx, http.MethodPost, "/ingest/file", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Job fetches a job record.
func (c *Client) Job(ctx context.Context, id string) (*models.Job, error) {
	var out models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches service status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var out models.Status
	if err := c.do(ctx, http.MethodGet, "/status", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var decoded struct {
			Error string `json:"error"`
			JobID string `json:"job_id"`
		}
		if json.Unmarshal(b, &decoded) == nil && decoded.Error != "" {
			apiErr.Message, apiErr.JobID = decoded.Error, decoded.JobID
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
