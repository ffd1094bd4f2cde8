package extract

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hyperjump/shiori/internal/models"
)

// extractPlain decodes text honoring a UTF-8 or UTF-16 byte order mark and
// falls back to UTF-8. Invalid sequences become U+FFFD.
func extractPlain(content []byte) ([]models.TextUnit, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, content)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	return []models.TextUnit{{Page: 1, Text: string(out)}}, nil
}
