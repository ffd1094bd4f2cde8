package models

// QueryRequest is a retrieval request. Filters are exact-match metadata constraints.
type QueryRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters,omitempty"`
	TopK    int            `json:"top_k,omitempty"`
}

// Validate rejects an empty query and normalizes TopK into [1, maxTopK].
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// RetrievedChunk is one search hit.
type RetrievedChunk struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Citation is reserved for answer synthesis and is never populated.
type Citation struct {
	Filename string `json:"filename"`
	Page     int    `json:"page,omitempty"`
	Sheet    string `json:"sheet,omitempty"`
}

// QueryResponse carries the placeholder answer and the ranked chunks.
// Answer is nil when nothing was retrieved.
type QueryResponse struct {
	Answer    *string          `json:"answer"`
	Chunks    []RetrievedChunk `json:"chunks"`
	Citations []Citation       `json:"citations"`
}
