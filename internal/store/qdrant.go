package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fnly/tana/internal/models"
)

// QdrantStore is a REST client to a Qdrant collection. The collection and
// the price payload index are created idempotently by EnsureIndexes.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	dimensions int
	priceField string
	maxRetries int
	client     *http.Client
}

// QdrantConfig configures the Qdrant index store client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	PriceField string
	Timeout    time.Duration
	MaxRetries int
}

// NewQdrantStore creates a Qdrant-backed index store.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &QdrantStore{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		priceField: cfg.PriceField,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Ping probes the Qdrant API root. A failure here at startup is fatal.
func (s *QdrantStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/collections", nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return &ConnectionError{Addr: s.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &ConnectionError{Addr: s.url, Err: fmt.Errorf("liveness probe: %s", resp.Status)}
	}
	return nil
}

// EnsureIndexes creates the collection (cosine distance) and the float
// payload index on the price field. Both calls are no-ops when the resources
// already exist.
func (s *QdrantStore) EnsureIndexes(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		body := map[string]any{
			"vectors": map[string]any{"size": s.dimensions, "distance": "Cosine"},
		}
		if err := s.doJSON(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx := map[string]any{"field_name": s.priceField, "field_schema": "float"}
	if err := s.doJSON(ctx, http.MethodPut, s.collectionURL("/index"), idx, nil); err != nil {
		// Recreating an existing payload index is not an error.
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create price index: %w", err)
		}
	}
	return nil
}

// Write upserts nodes as points. Dimension-mismatched nodes are rejected
// client-side; the rest are written.
func (s *QdrantStore) Write(ctx context.Context, nodes []*models.Node) (int, error) {
	werr := &WriteError{}
	points := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		if err := checkVector(n.Embedding, s.dimensions); err != nil {
			werr.add(n.ID, err)
			continue
		}
		points = append(points, map[string]any{
			"id":     n.ID,
			"vector": n.Embedding,
			"payload": map[string]any{
				"content":    n.Content,
				"metadata":   n.Metadata,
				s.priceField: entryPrice(n.Metadata, s.priceField),
			},
		})
	}
	if len(points) > 0 {
		body := map[string]any{"points": points}
		if err := s.doJSON(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
			for _, p := range points {
				werr.add(p["id"].(string), err)
			}
			return 0, werr
		}
	}
	return len(points), werr.orNil()
}

// Nearest searches the collection for the top-k points by similarity.
func (s *QdrantStore) Nearest(ctx context.Context, query []float32, k int) ([]*models.ScoredEntry, error) {
	if err := checkVector(query, s.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	body := map[string]any{"vector": query, "limit": k, "with_payload": true}
	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}
	out := make([]*models.ScoredEntry, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, &models.ScoredEntry{Entry: s.payloadEntry(r.ID, r.Payload), Score: r.Score})
	}
	return out, nil
}

// TopByPrice scrolls the collection ordered by the price payload index.
func (s *QdrantStore) TopByPrice(ctx context.Context, limit int) ([]*models.IndexEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"order_by":     map[string]any{"key": s.priceField, "direction": "desc"},
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      string         `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body, &resp); err != nil {
		return nil, err
	}
	out := make([]*models.IndexEntry, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, s.payloadEntry(p.ID, p.Payload))
	}
	return out, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close is a no-op for the REST client.
func (s *QdrantStore) Close() error { return nil }

func (s *QdrantStore) payloadEntry(id string, payload map[string]any) *models.IndexEntry {
	entry := &models.IndexEntry{ID: id}
	if v, ok := payload["content"].(string); ok {
		entry.Content = v
	}
	if v, ok := payload["metadata"].(map[string]any); ok {
		entry.Metadata = v
	}
	if v, ok := payload[s.priceField].(float64); ok {
		entry.Price = v
	}
	return entry
}

func (s *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.collectionURL(""), nil)
	if err != nil {
		return false, err
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return false, &ConnectionError{Addr: s.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("get collection: %s", resp.Status)
	}
	return true, nil
}

func (s *QdrantStore) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *QdrantStore) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

// doJSON performs one API call, retrying transport failures with exponential
// backoff. A connection dropping mid-run is retried; HTTP-level errors are
// returned immediately.
func (s *QdrantStore) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt-1); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		s.auth(req)
		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &ConnectionError{Addr: s.url, Err: err}
			continue
		}
		err = func() error {
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				payload, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(payload))
			}
			if out != nil {
				return json.NewDecoder(resp.Body).Decode(out)
			}
			return nil
		}()
		return err
	}
	return lastErr
}

func (s *QdrantStore) backoff(ctx context.Context, attempt int) error {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
