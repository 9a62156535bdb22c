// Package main is the Tana CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fnly/tana/internal/chunker"
	"github.com/fnly/tana/internal/cli"
	"github.com/fnly/tana/internal/config"
	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/models"
	"github.com/fnly/tana/internal/normalize"
	"github.com/fnly/tana/internal/pipeline"
	"github.com/fnly/tana/internal/retriever"
	"github.com/fnly/tana/internal/server"
	"github.com/fnly/tana/internal/store"
	"github.com/fnly/tana/internal/watcher"
	"github.com/fnly/tana/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tana/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "prices":
		runPrices()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tana version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: tana <command> [flags]

Commands:
  ingest    Read the catalog file, embed it, and build the index
  query     Search the index with natural language
  prices    List the most expensive entries
  server    Run the HTTP API server
  watch     Re-ingest the catalog whenever it changes on disk
  status    Show index size and configuration
  version   Print version
  help      Print this message`)
}

// components holds everything a command needs, wired from config.
type components struct {
	Config    *config.Config
	Embedder  embedding.Embedder
	Store     store.Store
	Ingestor  *pipeline.Ingestor
	Retriever *retriever.Retriever
	Logger    *zap.Logger
}

func (c *components) Close() {
	_ = c.Embedder.Close()
	_ = c.Store.Close()
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*components, error) {
	client, err := embedding.NewClient(embedding.Config{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		Timeout:    cfg.Embedding.Timeout(),
		MaxRetries: cfg.Embedding.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	embedder := embedding.Embedder(embedding.NewCachedEmbedder(client, cfg.Embedding.CacheSize))

	st, err := store.New(store.Options{
		Type:           cfg.Store.Type,
		Path:           cfg.Store.Path,
		Dimensions:     cfg.Embedding.Dimensions,
		PriceField:     cfg.Catalog.PriceField,
		PriceIndexName: cfg.Store.PriceIndexName,
		Qdrant: store.QdrantConfig{
			URL:        cfg.Store.Qdrant.URL,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: cfg.Store.Qdrant.Collection,
			Dimensions: cfg.Embedding.Dimensions,
			PriceField: cfg.Catalog.PriceField,
		},
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("create store: %w", err)
	}

	schema, err := normalize.NewSchema(cfg.Catalog.Fields, cfg.Catalog.PriceField)
	if err != nil {
		_ = embedder.Close()
		_ = st.Close()
		return nil, err
	}
	splitter, err := chunker.NewSplitter(embedder, cfg.Chunking.BufferSize, float64(cfg.Chunking.Percentile))
	if err != nil {
		_ = embedder.Close()
		_ = st.Close()
		return nil, err
	}

	var ingestOpts []pipeline.IngestorOption
	var retrieveOpts []retriever.Option
	if debug {
		ingestOpts = append(ingestOpts, pipeline.WithLogger(logger))
		retrieveOpts = append(retrieveOpts, retriever.WithLogger(logger))
	}
	ingestOpts = append(ingestOpts, pipeline.WithWorkers(cfg.Search.Workers))

	ing := pipeline.NewIngestor(
		schema, splitter, embedder, st,
		cfg.Catalog.TextField, cfg.Catalog.ExcludedKeys, cfg.Embedding.BatchSize,
		ingestOpts...,
	)
	return &components{
		Config:    cfg,
		Embedder:  embedder,
		Store:     st,
		Ingestor:  ing,
		Retriever: retriever.NewRetriever(embedder, st, retrieveOpts...),
		Logger:    logger,
	}, nil
}

// setup loads config, builds the logger, and wires components for a command.
func setup(configPath string, debugFlag bool) (*components, func()) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))

	comps, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	cleanup := func() {
		comps.Close()
		_ = logger.Sync()
	}
	return comps, cleanup
}

// startupChecks verifies the store and the embedding provider before a
// command serves queries. A provider that returns vectors of the wrong
// dimensionality would fail every search, so it is caught here instead.
func startupChecks(ctx context.Context, st store.Store, e embedding.Embedder, dimensions int) error {
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store liveness probe failed: %w", err)
	}
	if err := embedding.VerifyDimensions(ctx, e, dimensions); err != nil {
		return fmt.Errorf("embedding provider check failed: %w", err)
	}
	return nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	catalogPath := fs.String("catalog", "", "catalog file path (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	comps, cleanup := setup(*configPath, *debug)
	defer cleanup()

	path := *catalogPath
	if path == "" {
		path = comps.Config.Catalog.Path
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "No catalog path: set catalog.path in config or pass -catalog")
		os.Exit(1)
	}

	ctx := context.Background()
	if err := comps.Ingestor.Preflight(ctx); err != nil {
		comps.Logger.Fatal("Preflight failed", zap.Error(err))
	}
	report, err := comps.Ingestor.Run(ctx, path)
	if err != nil {
		comps.Logger.Fatal("Ingestion failed", zap.Error(err))
	}
	if err := cli.WriteReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query the store directly)")
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tana query [flags] <query>")
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: tana query [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serverURL != "" {
		response, err := queryViaHTTP(*serverURL, &models.QueryRequest{Query: queryStr, TopK: *topK})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteQueryResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	comps, cleanup := setup(*configPath, false)
	defer cleanup()

	if err := startupChecks(context.Background(), comps.Store, comps.Embedder, comps.Config.Embedding.Dimensions); err != nil {
		comps.Logger.Fatal("Startup checks failed", zap.Error(err))
	}

	req := models.QueryRequest{Query: queryStr, TopK: *topK}
	if err := req.Validate(comps.Config.Search.TopK, comps.Config.Search.MaxTopK); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	start := time.Now()
	results, err := comps.Retriever.Retrieve(context.Background(), req.Query, req.TopK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	response := &models.QueryResponse{
		Query:     req.Query,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}
	if err := cli.WriteQueryResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runPrices() {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "number of entries (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	comps, cleanup := setup(*configPath, false)
	defer cleanup()

	n := *limit
	if n <= 0 {
		n = comps.Config.Search.TopK
	}
	entries, err := comps.Retriever.TopByPrice(context.Background(), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Price listing failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePriceList(os.Stdout, entries, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	comps, cleanup := setup(*configPath, *debug)
	defer cleanup()
	cfg := comps.Config

	if err := startupChecks(context.Background(), comps.Store, comps.Embedder, cfg.Embedding.Dimensions); err != nil {
		comps.Logger.Fatal("Startup checks failed", zap.Error(err))
	}

	srv := server.NewServer(comps.Retriever, comps.Store, cfg, comps.Logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled && cfg.Catalog.Path != "" {
		w := newCatalogWatcher(comps, cfg)
		if err := w.Start(watchCtx); err != nil {
			comps.Logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			comps.Logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	comps.Logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	comps, cleanup := setup(*configPath, *debug)
	defer cleanup()
	cfg := comps.Config

	if cfg.Catalog.Path == "" {
		fmt.Fprintln(os.Stderr, "No catalog path: set catalog.path in config")
		os.Exit(1)
	}
	if err := comps.Ingestor.Preflight(context.Background()); err != nil {
		comps.Logger.Fatal("Preflight failed", zap.Error(err))
	}

	// Ingest once up front so the index matches the file before watching.
	if report, err := comps.Ingestor.Run(context.Background(), cfg.Catalog.Path); err != nil {
		comps.Logger.Fatal("Initial ingestion failed", zap.Error(err))
	} else {
		comps.Logger.Info("initial ingestion done",
			zap.Int("persisted", report.Persisted), zap.Int("failed", report.Failed()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := newCatalogWatcher(comps, cfg)
	if err := w.Start(ctx); err != nil {
		comps.Logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	comps.Logger.Info("watching catalog", zap.String("path", cfg.Catalog.Path))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	comps.Logger.Info("Shutting down...")
}

func newCatalogWatcher(comps *components, cfg *config.Config) *watcher.Watcher {
	opts := []watcher.WatcherOption{watcher.WithDebounce(cfg.Watch.Debounce())}
	if cfg.Debug {
		opts = append(opts, watcher.WithLogger(comps.Logger))
	}
	return watcher.NewWatcher(cfg.Catalog.Path, func(path string) {
		report, err := comps.Ingestor.Run(context.Background(), path)
		if err != nil {
			comps.Logger.Warn("re-ingestion failed", zap.String("path", path), zap.Error(err))
			return
		}
		comps.Logger.Info("catalog re-ingested",
			zap.Int("persisted", report.Persisted), zap.Int("failed", report.Failed()))
	}, opts...)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type statusResponse struct {
		Entries int64          `json:"entries"`
		Config  map[string]any `json:"config,omitempty"`
	}

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "decode response: %v\n", err)
			os.Exit(1)
		}
	} else {
		comps, cleanup := setup(*configPath, false)
		defer cleanup()
		count, err := comps.Store.Count(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Entries: count,
			Config: map[string]any{
				"store_type":           comps.Config.Store.Type,
				"embedding_model":      comps.Config.Embedding.Model,
				"embedding_dimensions": comps.Config.Embedding.Dimensions,
				"chunk_buffer_size":    comps.Config.Chunking.BufferSize,
				"chunk_percentile":     comps.Config.Chunking.Percentile,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("entries:  %d   # index entries in the store\n", status.Entries)
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"store_type", "embedding_model", "embedding_dimensions", "chunk_buffer_size", "chunk_percentile"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-21s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}
