// Package retriever answers catalog queries against the index store.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/internal/store"
)

// InvalidQueryError rejects a query with a negative result count.
type InvalidQueryError struct {
	K int
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid result count: %d", e.K)
}

// Retriever embeds query text and searches the index store.
type Retriever struct {
	embedder embedding.Embedder
	store    store.Store
	logger   *zap.Logger // optional; when set, logs query events
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for query debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever over the given embedder and store.
func NewRetriever(e embedding.Embedder, st store.Store, opts ...Option) *Retriever {
	r := &Retriever{embedder: e, store: st}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the top-k entries most similar to the query text, best
// first. k == 0 returns an empty result without touching the embedder;
// k < 0 is rejected with an InvalidQueryError. The query is embedded with a
// single call regardless of length.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]*models.ScoredEntry, error) {
	if k < 0 {
		return nil, &InvalidQueryError{K: k}
	}
	if k == 0 {
		return []*models.ScoredEntry{}, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if r.logger != nil {
		r.logger.Debug("query answered", zap.Int("k", k), zap.Int("results", len(results)))
	}
	return results, nil
}

// TopByPrice returns the most expensive entries, price descending.
func (r *Retriever) TopByPrice(ctx context.Context, limit int) ([]*models.IndexEntry, error) {
	return r.store.TopByPrice(ctx, limit)
}

// Count reports the number of entries in the index store.
func (r *Retriever) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}
