package models

import "fmt"

// QueryRequest is a retrieval request against the index store.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate checks the request and applies defaults: an empty query is
// rejected, a zero TopK becomes defaultK, and TopK is capped at maxK.
// A negative TopK is left untouched; the retriever rejects it.
func (q *QueryRequest) Validate(defaultK, maxK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK == 0 {
		q.TopK = defaultK
	}
	if maxK > 0 && q.TopK > maxK {
		q.TopK = maxK
	}
	return nil
}

// QueryResponse is the response for a retrieval request.
type QueryResponse struct {
	Query     string         `json:"query"`
	Results   []*ScoredEntry `json:"results"`
	QueryTime int64          `json:"query_time_ms"`
}
