// Package cli provides output formatting and an HTTP client for the shiori CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetWidth = 200

// ParseOutputFormat accepts "text" or "json"; empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteQueryResponse writes a query result to w in the given format.
func WriteQueryResponse(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if resp.Answer == nil {
		fmt.Fprintln(w, "No matching chunks.")
		return nil
	}
	fmt.Fprintf(w, "Answer:\n%s\n\n", *resp.Answer)
	fmt.Fprintf(w, "%d chunk(s):\n", len(resp.Chunks))
	for i, c := range resp.Chunks {
		fmt.Fprintln(w, "---------------------------------------------------------")
		fmt.Fprintf(w, "[%d] score %.4f  %s\n", i+1, c.Score, locator(c.Metadata))
		fmt.Fprintf(w, "%s\n", utils.Truncate(strings.TrimSpace(c.Text), snippetWidth))
	}
	return nil
}

// locator renders filename, page and sheet from chunk metadata.
func locator(md map[string]any) string {
	var parts []string
	if v, ok := md["filename"].(string); ok && v != "" {
		parts = append(parts, v)
	}
	if v, ok := md["page"]; ok && v != nil {
		parts = append(parts, fmt.Sprintf("page %v", v))
	}
	if v, ok := md["sheet"].(string); ok && v != "" {
		parts = append(parts, "sheet "+v)
	}
	return strings.Join(parts, ", ")
}

// WriteIngestResponse writes the outcome of one ingestion.
func WriteIngestResponse(w io.Writer, resp *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s  %s  %s (%s)  chunks=%d\n",
		resp.JobID, resp.Status, resp.Metadata.Filename, resp.Metadata.SourceType, resp.Stats.Chunks)
	return nil
}

// WriteJob writes a job record.
func WriteJob(w io.Writer, job *models.Job, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, job)
	}
	fmt.Fprintf(w, "id:           %s\n", job.ID)
	fmt.Fprintf(w, "source_type:  %s\n", job.SourceType)
	fmt.Fprintf(w, "status:       %s\n", job.Status)
	fmt.Fprintf(w, "chunks:       %d\n", job.Stats.Chunks)
	if job.Stats.Tokens != nil {
		fmt.Fprintf(w, "tokens:       %d\n", *job.Stats.Tokens)
	}
	if job.Error != nil {
		fmt.Fprintf(w, "error:        %s\n", *job.Error)
	}
	fmt.Fprintf(w, "created_at:   %s\n", job.CreatedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "updated_at:   %s\n", job.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return nil
}

// WriteStatus writes service status.
func WriteStatus(w io.Writer, status *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "embedding_model:    %s\n", status.Embedding.Model)
	fmt.Fprintf(w, "embedding_dim:      %d\n", status.Embedding.Dimension)
	fmt.Fprintf(w, "vector_store:       %s\n", status.Vector.Store)
	fmt.Fprintf(w, "collection:         %s\n", status.Vector.Collection)
	if status.Vector.Error != "" {
		fmt.Fprintf(w, "collection_error:   %s\n", status.Vector.Error)
	} else {
		fmt.Fprintf(w, "collection_dim:     %d\n", status.Vector.Dimension)
		fmt.Fprintf(w, "points:             %d   # indexed chunks\n", status.Vector.Points)
	}
	fmt.Fprintf(w, "jobs_backend:       %s\n", status.Jobs.Backend)
	fmt.Fprintf(w, "upload_dir:         %s\n", status.Storage.UploadDir)
	fmt.Fprintf(w, "pending_uploads:    %d   # %d bytes\n", status.Storage.PendingFiles, status.Storage.UploadBytes)
	if status.Storage.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:      %s\n", status.Storage.DatabasePath)
		fmt.Fprintf(w, "database_bytes:     %d\n", status.Storage.DatabaseBytes)
	}
	return nil
}

// ParseFilters turns repeated key=value flags into a filter map. Values that
// parse as integers, floats or booleans keep that type; everything else is a string.
func ParseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q; want key=value", p)
		}
		out[k] = scalar(v)
	}
	return out, nil
}

func scalar(v string) any {
	var n json.Number
	if err := json.Unmarshal([]byte(v), &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

// FilterFlag collects repeated --filter flags.
type FilterFlag []string

func (f *FilterFlag) String() string {
	s := append([]string(nil), *f...)
	sort.Strings(s)
	return strings.Join(s, ",")
}

// Set appends one key=value pair.
func (f *FilterFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}
