package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fnly/tana/internal/models"
)

func newTestSQLite(t *testing.T, dims int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tana.db"), dims, "price", "price_desc_idx")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLite(t, 3)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	nodes := []*models.Node{
		node("a", []float32{1, 0, 0}, 999.99),
		node("b", []float32{0, 1, 0}, 1459),
	}
	n, err := s.Write(ctx, nodes)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("persisted %d", n)
	}

	results, err := s.Nearest(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Entry.ID != "a" {
		t.Errorf("top = %s", results[0].Entry.ID)
	}
	// Metadata round-trips the normalized field set without loss.
	if results[0].Entry.Metadata["name"] != "a" {
		t.Errorf("metadata name = %v", results[0].Entry.Metadata["name"])
	}
	if results[0].Entry.Metadata["price"] != 999.99 {
		t.Errorf("metadata price = %v", results[0].Entry.Metadata["price"])
	}
	if results[0].Entry.Price != 999.99 {
		t.Errorf("price column = %v", results[0].Entry.Price)
	}
}

func TestSQLiteStore_EnsureIndexesIdempotent(t *testing.T) {
	s := newTestSQLite(t, 2)
	ctx := context.Background()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Errorf("second EnsureIndexes: %v", err)
	}
}

func TestSQLiteStore_RejectsMismatchedWrite(t *testing.T) {
	s := newTestSQLite(t, 3)
	ctx := context.Background()

	n, err := s.Write(ctx, []*models.Node{
		node("good", []float32{1, 0, 0}, 1),
		node("bad", []float32{1, 0, 0, 0}, 2),
	})
	if n != 1 {
		t.Errorf("persisted %d, want 1", n)
	}
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("error = %v", err)
	}
	if len(werr.FailedIDs) != 1 || werr.FailedIDs[0] != "bad" {
		t.Errorf("failed ids = %v", werr.FailedIDs)
	}
	count, _ := s.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, store changed for rejected entry", count)
	}
}

func TestSQLiteStore_WriteSameIDReplaces(t *testing.T) {
	s := newTestSQLite(t, 2)
	ctx := context.Background()
	if _, err := s.Write(ctx, []*models.Node{
		node("a", []float32{1, 0}, 100),
		node("b", []float32{0, 1}, 200),
	}); err != nil {
		t.Fatal(err)
	}
	updated := node("a", []float32{0, 1}, 150)
	updated.Content = "updated content"
	if _, err := s.Write(ctx, []*models.Node{updated}); err != nil {
		t.Fatal(err)
	}

	count, _ := s.Count(ctx)
	if count != 2 {
		t.Fatalf("count after rewrite = %d, want 2", count)
	}
	results, err := s.Nearest(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	// The conflict update keeps the original rowid, so "a" wins the tie.
	if results[0].Entry.ID != "a" || results[0].Entry.Content != "updated content" {
		t.Errorf("top result = %s %q", results[0].Entry.ID, results[0].Entry.Content)
	}
	if results[0].Entry.Price != 150 {
		t.Errorf("price after rewrite = %v", results[0].Entry.Price)
	}
}

func TestSQLiteStore_TopByPrice(t *testing.T) {
	s := newTestSQLite(t, 2)
	ctx := context.Background()
	_, _ = s.Write(ctx, []*models.Node{
		node("mid", []float32{1, 0}, 1099),
		node("dear", []float32{0, 1}, 5999.99),
		node("cheap", []float32{1, 0}, 949),
	})
	entries, err := s.TopByPrice(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	want := []string{"dear", "mid", "cheap"}
	for i, e := range entries {
		if e.ID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.ID, want[i])
		}
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tana.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, 2, "price", "price_desc_idx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(ctx, []*models.Node{node("keep", []float32{1, 0}, 42)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewSQLiteStore(path, 2, "price", "price_desc_idx")
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	count, err := s2.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after reopen = %d", count)
	}
}

func TestNew_Factory(t *testing.T) {
	if _, err := New(Options{Type: "memory", Dimensions: 4, PriceField: "price"}); err != nil {
		t.Errorf("memory: %v", err)
	}
	s, err := New(Options{Type: "sqlite", Path: filepath.Join(t.TempDir(), "x.db"), Dimensions: 4, PriceField: "price"})
	if err != nil {
		t.Errorf("sqlite: %v", err)
	} else {
		_ = s.Close()
	}
	if _, err := New(Options{Type: "bogus", Dimensions: 4}); err == nil {
		t.Error("unknown type should fail")
	}
}
