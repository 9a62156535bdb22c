package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/pkg/utils"
)

// MemoryStore is an in-memory index store using brute-force inner-product
// search. Suitable for tests and small catalogs.
type MemoryStore struct {
	dimensions int
	priceField string
	mu         sync.RWMutex
	entries    []*models.IndexEntry // insertion order
	byID       map[string]int       // entry position by ID
}

// NewMemoryStore creates an in-memory store with the given dimensionality.
func NewMemoryStore(dimensions int, priceField string) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{dimensions: dimensions, priceField: priceField, byID: make(map[string]int)}, nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// EnsureIndexes is a no-op; the memory store scans on demand.
func (m *MemoryStore) EnsureIndexes(ctx context.Context) error { return nil }

// Write upserts entries by ID: an existing entry is replaced in place, so
// re-ingesting a catalog does not duplicate it. Rejected nodes are reported
// without blocking the rest.
func (m *MemoryStore) Write(ctx context.Context, nodes []*models.Node) (int, error) {
	werr := &WriteError{}
	m.mu.Lock()
	defer m.mu.Unlock()
	persisted := 0
	for _, n := range nodes {
		if err := checkVector(n.Embedding, m.dimensions); err != nil {
			werr.add(n.ID, err)
			continue
		}
		vec := make([]float32, m.dimensions)
		copy(vec, n.Embedding)
		entry := &models.IndexEntry{
			ID:       n.ID,
			Content:  n.Content,
			Metadata: n.Metadata,
			Price:    entryPrice(n.Metadata, m.priceField),
			Vector:   vec,
		}
		if pos, ok := m.byID[n.ID]; ok {
			m.entries[pos] = entry
		} else {
			m.byID[n.ID] = len(m.entries)
			m.entries = append(m.entries, entry)
		}
		persisted++
	}
	return persisted, werr.orNil()
}

// Nearest returns the top-k entries by inner product, ties stable by
// insertion order.
func (m *MemoryStore) Nearest(ctx context.Context, query []float32, k int) ([]*models.ScoredEntry, error) {
	if err := checkVector(query, m.dimensions); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	scored := make([]*models.ScoredEntry, len(m.entries))
	for i, e := range m.entries {
		scored[i] = &models.ScoredEntry{Entry: e, Score: utils.InnerProduct(query, e.Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// TopByPrice returns up to limit entries ordered by descending price.
func (m *MemoryStore) TopByPrice(ctx context.Context, limit int) ([]*models.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	out := make([]*models.IndexEntry, len(m.entries))
	copy(out, m.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	if limit > len(out) {
		limit = len(out)
	}
	return out[:limit], nil
}

// Count returns the number of stored entries.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
