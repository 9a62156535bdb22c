package models

import "fmt"

// Node is a retrievable unit produced by the splitter: a text chunk carrying
// the full metadata of its source record. Embedding is nil until the embedder
// assigns it; after that the node is treated as immutable.
type Node struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"-"`

	// EmbedText is the rendered text handed to the embedding model:
	// metadata lines followed by the chunk content. Not persisted.
	EmbedText string `json:"-"`
}

// RenderEmbedText builds the text the embedding model sees for a chunk.
func RenderEmbedText(metadataText, content string) string {
	return fmt.Sprintf("Metadata: %s\n-----\nContent: %s", metadataText, content)
}

// IndexEntry is the persisted form of a node: vector, metadata, and the
// scalar price used for ordered scans.
type IndexEntry struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Price    float64        `json:"price"`
	Vector   []float32      `json:"-"`
}

// ScoredEntry is an index entry with its similarity score for a query.
type ScoredEntry struct {
	Entry *IndexEntry `json:"entry"`
	Score float64     `json:"score"`
}
