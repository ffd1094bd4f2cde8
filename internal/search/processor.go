package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// ProcessQuery trims the query text, applies top_k defaults and limits, and
// rejects filters whose values are not scalars.
func ProcessQuery(q *models.QueryRequest, cfg config.RetrievalConfig) error {
	q.Query = strings.TrimSpace(q.Query)
	if err := q.Validate(cfg.DefaultTopK, cfg.MaxTopK); err != nil {
		return err
	}
	for k, v := range q.Filters {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty filter key", models.ErrClientInput)
		}
		switch v.(type) {
		case string, bool, int, int32, int64, float32, float64, json.Number:
		default:
			return fmt.Errorf("%w: filter %q must be a string, number or boolean", models.ErrClientInput, k)
		}
	}
	return nil
}
