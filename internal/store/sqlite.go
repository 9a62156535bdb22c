package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/pkg/utils"
)

// SQLiteStore is the persistent index store. Vectors are stored as
// little-endian float32 blobs; similarity search is a brute-force scan in
// insertion (rowid) order, which keeps ties stable. The price index backs
// descending-price scans.
type SQLiteStore struct {
	db             *sql.DB
	dimensions     int
	priceField     string
	priceIndexName string
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, dimensions int, priceField, priceIndexName string) (*SQLiteStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if priceIndexName == "" {
		priceIndexName = "price_desc_idx"
	}
	s := &SQLiteStore{
		db:             db,
		dimensions:     dimensions,
		priceField:     priceField,
		priceIndexName: priceIndexName,
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_entries (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT,
		price REAL NOT NULL DEFAULT 0,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &ConnectionError{Addr: "sqlite", Err: err}
	}
	return nil
}

// EnsureIndexes creates the descending price index if missing. The vector
// side needs no separate resource here; the entries table is the scan set.
func (s *SQLiteStore) EnsureIndexes(ctx context.Context) error {
	stmt := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %q ON index_entries(price DESC)`, s.priceIndexName)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure price index: %w", err)
	}
	return nil
}

// Write upserts each node in its own statement, so every entry is stored
// fully or not at all and re-ingesting does not duplicate. The conflict
// update keeps the original rowid, preserving insertion order for ties.
// Rejected nodes do not block the rest.
func (s *SQLiteStore) Write(ctx context.Context, nodes []*models.Node) (int, error) {
	werr := &WriteError{}
	persisted := 0
	for _, n := range nodes {
		if err := checkVector(n.Embedding, s.dimensions); err != nil {
			werr.add(n.ID, err)
			continue
		}
		metadataJSON, err := json.Marshal(n.Metadata)
		if err != nil {
			werr.add(n.ID, fmt.Errorf("marshal metadata: %w", err))
			continue
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO index_entries (id, content, metadata, price, embedding)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			 	content = excluded.content,
			 	metadata = excluded.metadata,
			 	price = excluded.price,
			 	embedding = excluded.embedding`,
			n.ID, n.Content, string(metadataJSON),
			entryPrice(n.Metadata, s.priceField), vectorToBytes(n.Embedding),
		)
		if err != nil {
			werr.add(n.ID, err)
			continue
		}
		persisted++
	}
	return persisted, werr.orNil()
}

// Nearest scans all entries in insertion order and returns the top-k by
// inner product.
func (s *SQLiteStore) Nearest(ctx context.Context, query []float32, k int) ([]*models.ScoredEntry, error) {
	if err := checkVector(query, s.dimensions); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, price, embedding FROM index_entries ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []*models.ScoredEntry
	for rows.Next() {
		entry, vec, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if len(vec) != s.dimensions {
			return nil, &models.DimensionMismatchError{Got: len(vec), Want: s.dimensions}
		}
		entry.Vector = vec
		scored = append(scored, &models.ScoredEntry{Entry: entry, Score: utils.InnerProduct(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// TopByPrice returns up to limit entries in descending price order via the
// price index.
func (s *SQLiteStore) TopByPrice(ctx context.Context, limit int) ([]*models.IndexEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, price, embedding FROM index_entries
		 ORDER BY price DESC, rowid ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.IndexEntry
	for rows.Next() {
		entry, vec, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entry.Vector = vec
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanEntry(rows *sql.Rows) (*models.IndexEntry, []float32, error) {
	var entry models.IndexEntry
	var metadataJSON string
	var blob []byte
	if err := rows.Scan(&entry.ID, &entry.Content, &metadataJSON, &entry.Price, &blob); err != nil {
		return nil, nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
			return nil, nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &entry, bytesToVector(blob), nil
}

func vectorToBytes(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(x))
	}
	return out
}

func bytesToVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
