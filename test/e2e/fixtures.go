// Package e2e runs the ingestion and retrieval pipeline end to end through the
// HTTP router; this file builds minimal documents for each source type.
package e2e

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/shiori/internal/models"
)

// FixtureSourceTypes lists the source types MinimalFile can build. PDF is not
// generated here; its parser is covered by the extract package tests.
var FixtureSourceTypes = []models.SourceType{
	models.SourceTXT,
	models.SourceDOCX,
	models.SourceCSV,
	models.SourceXLSX,
}

// MinimalFile returns the bytes of a minimal document of the given type whose
// extracted text contains text.
func MinimalFile(st models.SourceType, text string) ([]byte, error) {
	switch st {
	case models.SourceTXT:
		return []byte(text), nil
	case models.SourceDOCX:
		return minimalDocx(text)
	case models.SourceCSV:
		return []byte("topic,summary\nfixture," + csvQuote(text) + "\n"), nil
	case models.SourceXLSX:
		return minimalXlsx(text)
	default:
		return nil, fmt.Errorf("no fixture for source type %q", st)
	}
}

func csvQuote(s string) string {
	return `"` + string(bytes.ReplaceAll([]byte(s), []byte(`"`), []byte(`""`))) + `"`
}

func minimalDocx(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	_, err = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t xml:space="preserve">` +
		html.EscapeString(text) + `</w:t></w:r></w:p></w:body></w:document>`))
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"topic", "summary"}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"fixture", text}); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
