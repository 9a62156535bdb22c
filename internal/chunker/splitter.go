// Package chunker builds retrievable nodes from normalized records using
// semantic splitting: text is cut where the similarity between adjacent
// sentence windows drops past a percentile threshold.
package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/pkg/utils"
)

const (
	// DefaultBufferSize is the number of neighboring sentences joined on each
	// side when scoring a boundary.
	DefaultBufferSize = 10
	// DefaultBreakpointPercentile is the distance percentile above which a
	// boundary becomes a split point.
	DefaultBreakpointPercentile = 95
)

// Document is a normalized record rendered for splitting: the embeddable text
// plus the metadata every resulting node inherits. Key identifies the source
// record; when set, node IDs are derived from it so re-splitting the same
// record yields the same IDs and stores upsert instead of duplicating.
type Document struct {
	Key          string
	Text         string
	Metadata     map[string]any
	MetadataText string
}

// Splitter splits documents into nodes at semantic boundaries. It depends on
// an embedder to score the similarity of adjacent sentence windows.
type Splitter struct {
	embedder   embedding.Embedder
	bufferSize int
	percentile float64
}

// NewSplitter creates a splitter. bufferSize and percentile fall back to
// defaults when zero; percentile must be in (0, 100].
func NewSplitter(embedder embedding.Embedder, bufferSize int, percentile float64) (*Splitter, error) {
	if embedder == nil {
		return nil, fmt.Errorf("splitter requires an embedder")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if percentile == 0 {
		percentile = DefaultBreakpointPercentile
	}
	if percentile < 0 || percentile > 100 {
		return nil, fmt.Errorf("breakpoint percentile must be in (0, 100], got %v", percentile)
	}
	return &Splitter{embedder: embedder, bufferSize: bufferSize, percentile: percentile}, nil
}

// Split splits every document into nodes. An empty document set yields an
// empty node slice. Fails on the first document whose windows cannot be
// embedded; callers wanting per-document failure handling use SplitDocument.
func (s *Splitter) Split(ctx context.Context, docs []Document) ([]*models.Node, error) {
	var nodes []*models.Node
	for i := range docs {
		docNodes, err := s.SplitDocument(ctx, docs[i])
		if err != nil {
			return nil, fmt.Errorf("split document %d: %w", i, err)
		}
		nodes = append(nodes, docNodes...)
	}
	return nodes, nil
}

// SplitDocument splits one document into one or more nodes. Every node
// inherits the document metadata unchanged; metadata is never split. A
// document that fits in a single sentence produces one node without any
// embedding calls.
func (s *Splitter) SplitDocument(ctx context.Context, doc Document) ([]*models.Node, error) {
	sentences := SplitSentences(doc.Text)
	if len(sentences) <= 1 {
		return []*models.Node{s.newNode(doc, 0, doc.Text)}, nil
	}

	windows := s.sentenceWindows(sentences)
	vectors, err := s.embedder.EmbedBatch(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("embed sentence windows: %w", err)
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - utils.CosineSimilarity(vectors[i], vectors[i+1])
	}
	threshold := percentile(distances, s.percentile)

	var nodes []*models.Node
	start := 0
	for i, d := range distances {
		if d > threshold {
			nodes = append(nodes, s.newNode(doc, len(nodes), joinSentences(sentences[start:i+1])))
			start = i + 1
		}
	}
	nodes = append(nodes, s.newNode(doc, len(nodes), joinSentences(sentences[start:])))
	return nodes, nil
}

// sentenceWindows joins up to bufferSize sentences on each side of every
// sentence, so boundary scores reflect local context rather than single
// sentences.
func (s *Splitter) sentenceWindows(sentences []string) []string {
	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - s.bufferSize
		if lo < 0 {
			lo = 0
		}
		hi := i + s.bufferSize + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		windows[i] = joinSentences(sentences[lo:hi])
	}
	return windows
}

func (s *Splitter) newNode(doc Document, index int, content string) *models.Node {
	// The node owns its metadata copy; no back-reference to the record.
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	content = strings.TrimSpace(content)
	return &models.Node{
		ID:        nodeID(doc.Key, index),
		Content:   content,
		Metadata:  meta,
		EmbedText: models.RenderEmbedText(doc.MetadataText, content),
	}
}

// nodeID derives a stable UUID from the record key and chunk index, so
// repeated ingests of the same record upsert rather than duplicate. Unkeyed
// documents fall back to random IDs.
func nodeID(key string, index int) string {
	if key == "" {
		return uuid.New().String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", key, index))).String()
}

func joinSentences(sentences []string) string {
	return strings.TrimSpace(strings.Join(sentences, " "))
}

// percentile returns the p-th percentile of values using linear interpolation
// between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
