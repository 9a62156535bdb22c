package store

import "fmt"

// Type selects the index store implementation.
type Type string

const (
	// TypeMemory holds entries in process memory; tests and small catalogs.
	TypeMemory Type = "memory"
	// TypeSQLite persists entries locally with a real price index.
	TypeSQLite Type = "sqlite"
	// TypeQdrant uses a networked Qdrant collection.
	TypeQdrant Type = "qdrant"
)

// Options configures the store factory.
type Options struct {
	Type           string
	Path           string // sqlite database path
	Dimensions     int
	PriceField     string
	PriceIndexName string
	Qdrant         QdrantConfig
}

// New creates an index store of the configured type. SQLite is the default.
func New(opts Options) (Store, error) {
	switch Type(opts.Type) {
	case TypeMemory:
		return NewMemoryStore(opts.Dimensions, opts.PriceField)
	case TypeSQLite, "":
		return NewSQLiteStore(opts.Path, opts.Dimensions, opts.PriceField, opts.PriceIndexName)
	case TypeQdrant:
		cfg := opts.Qdrant
		cfg.Dimensions = opts.Dimensions
		cfg.PriceField = opts.PriceField
		return NewQdrantStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: memory, sqlite, qdrant)", opts.Type)
	}
}
