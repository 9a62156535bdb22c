package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/fnly/tana/internal/config"
	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/internal/retriever"
	"github.com/fnly/tana/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mock := embedding.NewMockEmbedder(4)
	st, err := store.NewMemoryStore(4, "price")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	entries := map[string]float64{
		"rugged field laptop": 1899,
		"slim office laptop":  999,
	}
	for text, price := range entries {
		vec, err := mock.Embed(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := st.Write(ctx, []*models.Node{{
			ID:        text,
			Content:   text,
			Metadata:  map[string]any{"name": text, "price": price},
			Embedding: vec,
		}}); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	return NewServer(retriever.NewRetriever(mock, st), st, cfg, zap.NewNop())
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", `{"query":"rugged field laptop","top_k":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Entry.Metadata["name"] != "rugged field laptop" {
		t.Errorf("top result = %+v", resp.Results[0].Entry)
	}
}

func TestHandleQuery_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleQuery_NegativeTopK(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", `{"query":"anything","top_k":-3}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleQuery_BadBody(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleQuery_DefaultTopK(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/query", `{"query":"laptop"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	// Default top_k is 5 but only two entries exist.
	if len(resp.Results) != 2 {
		t.Errorf("results = %d", len(resp.Results))
	}
}

func TestHandlePrices(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/prices?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Entries []*models.IndexEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Price != 1899 {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestHandlePrices_InvalidLimit(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/prices?limit=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Entries int            `json:"entries"`
		Config  map[string]any `json:"config"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Entries != 2 {
		t.Errorf("entries = %d", resp.Entries)
	}
	if resp.Config["store_type"] != "sqlite" {
		t.Errorf("config = %+v", resp.Config)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
