// Package models defines the data structures shared by ingestion, retrieval, and the job ledger.
package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceType is the declared format of an uploaded document.
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceDOCX SourceType = "docx"
	SourceTXT  SourceType = "txt"
	SourceCSV  SourceType = "csv"
	SourceXLSX SourceType = "xlsx"
)

// SupportedSourceTypes lists every accepted source type in a stable order.
var SupportedSourceTypes = []SourceType{SourcePDF, SourceDOCX, SourceTXT, SourceCSV, SourceXLSX}

// ParseSourceType normalizes s and reports whether it names a supported type.
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, ok := range SupportedSourceTypes {
		if st == ok {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSourceType, s)
}

// SourceTypeForExtension maps a file extension (with or without the dot) to a source type.
func SourceTypeForExtension(ext string) (SourceType, bool) {
	st, err := ParseSourceType(strings.TrimPrefix(ext, "."))
	if err != nil {
		return "", false
	}
	return st, true
}

// TextUnit is one ordered piece of parser output. Page is 1-based and zero when unknown.
type TextUnit struct {
	Page  int
	Sheet string
	Text  string
}

// Chunk is a bounded segment of a document ready for embedding.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// ChunkMetadata is attached to every indexed point under the "metadata" payload key.
type ChunkMetadata struct {
	Source         string
	Filename       string
	SourceType     SourceType
	Page           int
	Sheet          string
	Hash           string
	EmbeddingModel string
	EmbeddingDim   int
	CreatedAt      time.Time
	JobID          string
	ChunkIndex     int
}

// Map returns the metadata as a payload map. Unknown locators are stored as null.
func (m ChunkMetadata) Map() map[string]any {
	out := map[string]any{
		"source":          m.Source,
		"filename":        m.Filename,
		"source_type":     string(m.SourceType),
		"page":            nil,
		"sheet":           nil,
		"hash":            m.Hash,
		"embedding_model": m.EmbeddingModel,
		"embedding_dim":   m.EmbeddingDim,
		"created_at":      m.CreatedAt.UTC().Format(time.RFC3339),
		"job_id":          m.JobID,
		"chunk_index":     m.ChunkIndex,
	}
	if m.Page > 0 {
		out["page"] = m.Page
	}
	if m.Sheet != "" {
		out["sheet"] = m.Sheet
	}
	return out
}

// Payload builds the stored point payload {text, metadata}.
func (c Chunk) Payload() map[string]any {
	return map[string]any{
		"text":     c.Text,
		"metadata": c.Metadata.Map(),
	}
}
