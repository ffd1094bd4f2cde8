package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/models"
)

// csvSheetName labels the single unit produced from a CSV file.
const csvSheetName = "csv"

// extractCSV treats the first record as the header and renders the rest as a
// markdown table.
func extractCSV(content []byte, maxRows int) ([]models.TextUnit, error) {
	text, err := extractPlain(content)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text[0].Text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return []models.TextUnit{{Page: 1, Sheet: csvSheetName}}, nil
	}
	return []models.TextUnit{{
		Page:  1,
		Sheet: csvSheetName,
		Text:  indexer.TabularToMarkdown(trimCells(records[0]), records[1:], maxRows),
	}}, nil
}

// extractExcel returns one unit per sheet, in workbook order.
func extractExcel(content []byte, maxRows int) ([]models.TextUnit, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var units []models.TextUnit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		unit := models.TextUnit{Page: 1, Sheet: sheet}
		if len(rows) > 0 {
			unit.Text = indexer.TabularToMarkdown(trimCells(rows[0]), rows[1:], maxRows)
		}
		units = append(units, unit)
	}
	return units, nil
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
