// Package pipeline runs catalog ingestion: read records, normalize them to
// the declared schema, split into nodes at semantic boundaries, embed the
// node texts in batches, and persist everything to the index store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/fnly/tana/internal/chunker"
	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/internal/normalize"
	"github.com/fnly/tana/internal/source"
	"github.com/fnly/tana/internal/store"
)

// Ingestor wires the ingestion stages together. One record can fail a stage
// without aborting the run; every failure lands in the report.
type Ingestor struct {
	schema     *normalize.Schema
	splitter   *chunker.Splitter
	embedder   embedding.Embedder
	store      store.Store
	textField  string
	priceField string
	excluded   []string
	batchSize  int
	workers    int
	logger     *zap.Logger // optional; when set, logs stage progress
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for stage progress output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// WithWorkers bounds the number of concurrent embedding batches.
func WithWorkers(n int) IngestorOption {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.workers = n
		}
	}
}

// NewIngestor creates an ingestor with the given dependencies. textField
// names the record field whose value is split and embedded; excluded keys
// are dropped from node metadata.
func NewIngestor(
	schema *normalize.Schema,
	splitter *chunker.Splitter,
	embedder embedding.Embedder,
	st store.Store,
	textField string,
	excluded []string,
	batchSize int,
	opts ...IngestorOption,
) *Ingestor {
	if batchSize <= 0 {
		batchSize = 10
	}
	ing := &Ingestor{
		schema:     schema,
		splitter:   splitter,
		embedder:   embedder,
		store:      st,
		textField:  textField,
		priceField: schema.PriceField,
		excluded:   excluded,
		batchSize:  batchSize,
		workers:    4,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Preflight verifies the store and the embedding provider before any
// ingestion work. Either failure is fatal for the run.
func (ing *Ingestor) Preflight(ctx context.Context) error {
	if err := ing.store.Ping(ctx); err != nil {
		return fmt.Errorf("store liveness probe failed: %w", err)
	}
	if err := embedding.VerifyDimensions(ctx, ing.embedder, ing.embedder.Dimensions()); err != nil {
		return fmt.Errorf("embedding provider check failed: %w", err)
	}
	return nil
}

// Run ingests the catalog file at path and returns a per-stage report.
// Unreadable input and store-wide failures are returned as errors; per-record
// failures are recorded in the report and do not abort the run.
func (ing *Ingestor) Run(ctx context.Context, path string) (*models.Report, error) {
	recs, err := source.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	report := &models.Report{RecordsRead: len(recs)}
	ing.logDebug("catalog read", zap.String("path", path), zap.Int("records", len(recs)))

	nodes := ing.normalizeAndChunk(ctx, recs, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	embedded := ing.embedAll(ctx, nodes, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	persisted, err := ing.store.Write(ctx, embedded)
	report.Persisted = persisted
	if err != nil {
		var werr *store.WriteError
		if !errors.As(err, &werr) {
			return report, fmt.Errorf("write index entries: %w", err)
		}
		for i, id := range werr.FailedIDs {
			report.Fail(models.StagePersist, id, werr.Reasons[i])
		}
	}

	if err := ing.store.EnsureIndexes(ctx); err != nil {
		return report, fmt.Errorf("ensure indexes: %w", err)
	}

	ing.logInfo("ingestion finished",
		zap.Int("records", report.RecordsRead),
		zap.Int("persisted", report.Persisted),
		zap.Int("failed", report.Failed()))
	return report, nil
}

// normalizeAndChunk runs the first two stages record by record so every
// failure is attributed to the record that caused it.
func (ing *Ingestor) normalizeAndChunk(ctx context.Context, recs []models.Record, report *models.Report) []*models.Node {
	var nodes []*models.Node
	for _, res := range ing.schema.NormalizeAll(recs) {
		id := recordLabel(recs[res.Index], res.Index)
		if res.Err != nil {
			report.Fail(models.StageNormalize, id, res.Err)
			continue
		}
		report.Normalized++

		doc := chunker.Document{
			Key:          id,
			Text:         res.Record.Values[ing.textField],
			Metadata:     res.Record.Metadata(ing.priceField, ing.excluded),
			MetadataText: res.Record.MetadataText(ing.excluded),
		}
		docNodes, err := ing.splitter.SplitDocument(ctx, doc)
		if err != nil {
			report.Fail(models.StageChunk, id, err)
			continue
		}
		report.Chunked += len(docNodes)
		nodes = append(nodes, docNodes...)
	}
	return nodes
}

// embedAll embeds node texts in fixed-size batches across a bounded worker
// pool. Node order is preserved; a failed batch fails only its own nodes.
// No new batch starts after the context is cancelled.
func (ing *Ingestor) embedAll(ctx context.Context, nodes []*models.Node, report *models.Report) []*models.Node {
	type batch struct {
		start, end int
	}
	var batches []batch
	for start := 0; start < len(nodes); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batches = append(batches, batch{start, end})
	}

	failed := make([]error, len(batches))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < ing.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bi := range jobs {
				b := batches[bi]
				texts := make([]string, 0, b.end-b.start)
				for _, n := range nodes[b.start:b.end] {
					texts = append(texts, n.EmbedText)
				}
				vectors, err := ing.embedder.EmbedBatch(ctx, texts)
				if err != nil {
					failed[bi] = err
					continue
				}
				for i, vec := range vectors {
					nodes[b.start+i].Embedding = vec
				}
			}
		}()
	}

dispatch:
	for bi := range batches {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- bi:
		}
	}
	close(jobs)
	wg.Wait()

	var embedded []*models.Node
	for bi, b := range batches {
		if failed[bi] != nil {
			for _, n := range nodes[b.start:b.end] {
				report.Fail(models.StageEmbed, n.ID, failed[bi])
			}
			continue
		}
		for _, n := range nodes[b.start:b.end] {
			if n.Embedding == nil {
				// Batch never ran: dispatch stopped on cancellation.
				report.Fail(models.StageEmbed, n.ID, ctx.Err())
				continue
			}
			report.Embedded++
			embedded = append(embedded, n)
		}
	}
	return embedded
}

// recordLabel identifies a record in failure reports, preferring its name.
func recordLabel(rec models.Record, index int) string {
	for _, key := range []string{"_id", "name"} {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return "record " + strconv.Itoa(index)
}

func (ing *Ingestor) logDebug(msg string, fields ...zap.Field) {
	if ing.logger != nil {
		ing.logger.Debug(msg, fields...)
	}
}

func (ing *Ingestor) logInfo(msg string, fields ...zap.Field) {
	if ing.logger != nil {
		ing.logger.Info(msg, fields...)
	}
}
