// Package extract turns uploaded documents into ordered text units.
package extract

import (
	"fmt"
	"os"

	"github.com/hyperjump/shiori/internal/models"
)

// DefaultMaxTableRows caps the data rows rendered per CSV file or XLSX sheet.
const DefaultMaxTableRows = 50

// Extractor parses the supported document formats.
type Extractor struct {
	maxTableRows int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxTableRows sets how many data rows of a table are rendered before
// the remainder is summarized.
func WithMaxTableRows(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTableRows = n
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxTableRows: DefaultMaxTableRows}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse reads the file at path as sourceType and returns its text units in
// document order. Every failure wraps models.ErrParsing.
func (e *Extractor) Parse(path string, sourceType models.SourceType) ([]models.TextUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read file: %w", models.ErrParsing, err)
	}
	return e.ParseBytes(content, sourceType)
}

// ParseBytes parses content as sourceType.
func (e *Extractor) ParseBytes(content []byte, sourceType models.SourceType) ([]models.TextUnit, error) {
	var (
		units []models.TextUnit
		err   error
	)
	switch sourceType {
	case models.SourcePDF:
		units, err = extractPDF(content)
	case models.SourceDOCX:
		units, err = extractDOCX(content)
	case models.SourceTXT:
		units, err = extractPlain(content)
	case models.SourceCSV:
		units, err = extractCSV(content, e.maxTableRows)
	case models.SourceXLSX:
		units, err = extractExcel(content, e.maxTableRows)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedSourceType, sourceType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrParsing, sourceType, err)
	}
	return units, nil
}
