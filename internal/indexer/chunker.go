// Package indexer turns uploaded documents into indexed, embedded chunks.
package indexer

import (
	"fmt"
	"strings"
)

// sentenceCutRatio is how far into a window a ". " boundary must be before the
// window is shortened to end on it.
const sentenceCutRatio = 0.6

// Chunker splits text into overlapping character windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// It returns an error unless chunkSize > 0 and 0 <= chunkOverlap < chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split preprocesses text and returns its chunks in document order. Every
// returned chunk is non-empty and at most chunkSize characters long.
func (c *Chunker) Split(text string) []string {
	runes := []rune(Preprocess(text))
	n := len(runes)
	if n == 0 {
		return nil
	}
	minCut := int(float64(c.chunkSize) * sentenceCutRatio)

	var chunks []string
	start := 0
	for start < n {
		end := min(start+c.chunkSize, n)
		if end != n {
			if cut := lastSentenceBoundary(runes[start:end]); cut > minCut {
				end = start + cut + 1
			}
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == n {
			break
		}
		next := max(0, end-c.chunkOverlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// lastSentenceBoundary returns the index of the last ". " in window, or -1.
func lastSentenceBoundary(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '.' && window[i+1] == ' ' {
			return i
		}
	}
	return -1
}

// TabularToMarkdown renders rows as a pipe-separated table: a header line, a
// separator line, at most maxRows data rows, then "... (N more rows)" when rows
// were dropped. Missing cells render empty. No rows yields "".
func TabularToMarkdown(headers []string, rows [][]string, maxRows int) string {
	if len(rows) == 0 || len(headers) == 0 {
		return ""
	}
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	lines := []string{strings.Join(headers, " | "), strings.Join(sep, " | ")}
	shown := rows
	if maxRows >= 0 && len(rows) > maxRows {
		shown = rows[:maxRows]
	}
	cells := make([]string, len(headers))
	for _, row := range shown {
		for i := range headers {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	if len(rows) > len(shown) {
		lines = append(lines, fmt.Sprintf("... (%d more rows)", len(rows)-len(shown)))
	}
	return strings.Join(lines, "\n")
}
