// Package store persists embedded nodes and serves nearest-neighbor and
// price-ordered lookups.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/fnly/tana/internal/models"
)

// Store is the index store: it persists (vector, metadata) entries and
// supports similarity search plus a descending-price scan.
type Store interface {
	// Ping verifies the store is reachable. Called at startup; a failure
	// there is fatal.
	Ping(ctx context.Context) error

	// EnsureIndexes idempotently creates or verifies the similarity index
	// and the descending price index. Calling it twice is a no-op.
	EnsureIndexes(ctx context.Context) error

	// Write persists nodes one at a time. Each node is stored atomically or
	// not at all; a rejected node (nil or mismatched-dimension vector) does
	// not block the rest. Returns the number persisted and, when any node
	// was rejected, a *WriteError naming them.
	Write(ctx context.Context, nodes []*models.Node) (int, error)

	// Nearest returns up to k entries by descending similarity. Ties are
	// stable by insertion order. k <= 0 returns an empty result.
	Nearest(ctx context.Context, vector []float32, k int) ([]*models.ScoredEntry, error)

	// TopByPrice returns up to limit entries ordered by descending price.
	TopByPrice(ctx context.Context, limit int) ([]*models.IndexEntry, error)

	Count(ctx context.Context) (int64, error)
	Close() error
}

// ConnectionError reports an unreachable index store.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("index store unreachable at %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError aggregates the nodes rejected during a Write call.
type WriteError struct {
	FailedIDs []string
	Reasons   []error
}

func (e *WriteError) Error() string {
	if len(e.Reasons) == 0 {
		return "write failed"
	}
	return fmt.Sprintf("write rejected %d node(s) [%s]: %v",
		len(e.FailedIDs), strings.Join(e.FailedIDs, ", "), e.Reasons[0])
}

func (e *WriteError) add(id string, err error) {
	e.FailedIDs = append(e.FailedIDs, id)
	e.Reasons = append(e.Reasons, err)
}

func (e *WriteError) orNil() error {
	if len(e.FailedIDs) == 0 {
		return nil
	}
	return e
}

// entryPrice extracts the scalar sort value from node metadata.
func entryPrice(meta map[string]any, priceField string) float64 {
	if v, ok := meta[priceField]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

// checkVector validates a node vector against the store dimensionality.
func checkVector(vec []float32, dims int) error {
	if vec == nil {
		return fmt.Errorf("node has no embedding")
	}
	if len(vec) != dims {
		return &models.DimensionMismatchError{Got: len(vec), Want: dims}
	}
	return nil
}
