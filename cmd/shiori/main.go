// Package main is the shiori CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/jobs"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/internal/watcher"
	"github.com/hyperjump/shiori/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/shiori/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 10 * time.Minute
)

// loadConfig loads config from path, then applies .env and environment
// overrides. When path is the default, ./config.yaml wins if it exists; when
// neither exists the built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string, lookup config.LookupFunc) (*config.Config, string, error) {
	config.LoadDotEnv()
	resolved := path
	if path == defaultConfigPath {
		resolved = ""
		if cwd, err := os.Getwd(); err == nil {
			if fallback := filepath.Join(cwd, "config.yaml"); fileExists(fallback) {
				resolved = fallback
			}
		}
		if resolved == "" && fileExists(defaultConfigPath) {
			resolved = defaultConfigPath
		}
	}

	var cfg *config.Config
	if resolved == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(resolved); err != nil {
			return nil, "", err
		}
	}
	config.ApplyEnv(cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, resolved, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	var err error
	switch command {
	case "server":
		err = runServer(args)
	case "ingest":
		err = runIngest(args, os.Stdout)
	case "query":
		err = runQuery(args, os.Stdout)
	case "job":
		err = runJob(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("shiori version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("vector_store", cfg.Vector.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	if len(cfg.Watch.Directories) > 0 {
		inbox := newInboxWatcher(cfg, components.Indexer, logger)
		if err := inbox.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer inbox.Stop()
		go inbox.SyncExistingFiles()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- components.Server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return components.Server.Stop(shutdownCtx)
}

func newInboxWatcher(cfg *config.Config, idx *indexer.Indexer, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.RecursiveOrDefault(),
		func(ctx context.Context, path string, st models.SourceType) error {
			_, err := idx.IngestFile(ctx, path, string(st))
			return err
		},
		watcher.WithLogger(logger),
		watcher.WithIgnore(cfg.Storage.UploadDir),
	)
}

// reorderArgs moves flags that appear after the positional arguments to the
// front so flag.Parse sees them: "shiori query pasta --top-k 3".
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runIngest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = ingest directly without a server)")
	sourceType := fs.String("type", "", "source type: pdf, docx, txt, csv, xlsx (default: from extension)")
	filename := fs.String("filename", "", "filename recorded in chunk metadata (default: file's base name)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		return errors.New("usage: shiori ingest [flags] <file-or-directory>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	ctx := context.Background()

	if *serverURL != "" {
		client := cli.NewClient(*serverURL, clientTimeout)
		if !info.IsDir() {
			resp, err := client.IngestFile(ctx, path, *sourceType, *filename)
			if err != nil {
				return err
			}
			return cli.WriteIngestResponse(out, resp, format)
		}
		var errs []error
		walkErr := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if _, ok := models.SourceTypeForExtension(filepath.Ext(p)); !ok {
				return nil
			}
			resp, err := client.IngestFile(ctx, p, "", "")
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p, err))
				return nil
			}
			return cli.WriteIngestResponse(out, resp, format)
		})
		return errors.Join(append(errs, walkErr)...)
	}

	cfg, _, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	if info.IsDir() {
		results, err := components.Indexer.IngestDirectory(ctx, path)
		for _, resp := range results {
			if werr := cli.WriteIngestResponse(out, resp, format); werr != nil {
				return werr
			}
		}
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	st := *sourceType
	if st == "" {
		inferred, ok := models.SourceTypeForExtension(filepath.Ext(path))
		if !ok {
			return fmt.Errorf("%w: cannot infer source type of %s; pass --type", models.ErrUnsupportedSourceType, path)
		}
		st = string(inferred)
	}
	name := *filename
	if name == "" {
		name = filepath.Base(path)
	}
	resp, err := components.Indexer.Ingest(ctx, indexer.Upload{Reader: f, Filename: name, SourceType: st})
	if resp != nil {
		if werr := cli.WriteIngestResponse(out, resp, format); werr != nil {
			return werr
		}
	}
	return err
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = query directly without a server)")
	topK := fs.Int("top-k", 0, "number of chunks to return (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	var filters cli.FilterFlag
	fs.Var(&filters, "filter", "metadata filter key=value (repeatable)")
	_ = fs.Parse(reorderArgs(args))

	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		return errors.New("usage: shiori query [flags] <query>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	filterMap, err := cli.ParseFilters(filters)
	if err != nil {
		return err
	}
	req := &models.QueryRequest{Query: queryStr, Filters: filterMap, TopK: *topK}
	ctx := context.Background()

	if *serverURL != "" {
		resp, err := cli.NewClient(*serverURL, clientTimeout).Query(ctx, req)
		if err != nil {
			return err
		}
		return cli.WriteQueryResponse(out, resp, format)
	}

	cfg, _, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	resp, err := components.Engine.Query(ctx, req)
	if err != nil {
		return err
	}
	return cli.WriteQueryResponse(out, resp, format)
}

func runJob(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("job", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the job ledger directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		return errors.New("usage: shiori job [flags] <job-id>")
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	id := fs.Arg(0)
	ctx := context.Background()

	if *serverURL != "" {
		job, err := cli.NewClient(*serverURL, clientTimeout).Job(ctx, id)
		if err != nil {
			return err
		}
		return cli.WriteJob(out, job, format)
	}

	cfg, _, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	ledger, err := jobs.New(ctx, cfg.Jobs, cfg.Storage.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()
	job, err := ledger.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return cli.WriteJob(out, job, format)
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect backends directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if *serverURL != "" {
		status, err := cli.NewClient(*serverURL, clientTimeout).Status(ctx)
		if err != nil {
			return err
		}
		return cli.WriteStatus(out, status, format)
	}

	cfg, _, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	status := components.Server.Status(ctx)
	return cli.WriteStatus(out, &status, format)
}

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Vectors  *vector.Manager
	Ledger   jobs.Ledger
	Engine   *search.Engine
	Indexer  *indexer.Indexer
	Server   *server.Server
}

func (c *Components) Close() {
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c := &Components{Embedder: embedder}

	store, err := vector.NewStore(ctx, cfg.Vector, cfg.Storage.DatabasePath, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Vectors = vector.NewManager(store, cfg.Vector.Collection,
		vector.WithLogger(logger),
		vector.WithStrictDimension(cfg.Vector.StrictDimension),
	)
	logger.Info("vector store initialized",
		zap.String("type", store.Type()),
		zap.String("collection", cfg.Vector.Collection))

	c.Ledger, err = jobs.New(ctx, cfg.Jobs, cfg.Storage.DatabasePath, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize job ledger: %w", err)
	}

	parser := extract.NewExtractor(extract.WithMaxTableRows(cfg.Chunking.MaxTableRows))
	c.Indexer, err = indexer.NewIndexer(cfg, embedder, c.Vectors, c.Ledger, parser, indexer.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	c.Engine = search.NewEngine(embedder, c.Vectors, cfg.Retrieval, search.WithLogger(logger))
	c.Server = server.NewServer(c.Engine, c.Indexer, c.Ledger, cfg, logger)
	return c, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `shiori - document ingestion and retrieval service

Usage:
  shiori server [flags]                 Start the HTTP server
  shiori ingest [flags] <file|dir>      Ingest a document or every supported file in a directory
  shiori query [flags] <query>          Retrieve the chunks most similar to a query
  shiori job [flags] <job-id>           Show an ingestion job
  shiori status [flags]                 Show embedding, vector store, job ledger and disk status
  shiori version                        Show version
  shiori help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shiori/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Client Flags (ingest, query, job, status):
  --server string    Server URL (default: http://localhost:8080). Use --server "" to work
                     directly against the configured backends without a running server.
  --config string    Config file path (direct mode)
  --output string    Output format: text or json (default: text)

Ingest Flags:
  --type string      Source type: pdf, docx, txt, csv, xlsx (default: from extension)
  --filename string  Filename recorded in chunk metadata

Query Flags:
  --top-k int        Number of chunks to return
  --filter k=v       Exact-match metadata filter; repeat for several (all must match)

Environment:
  OPENAI_API_KEY, OPENAI_BASE_URL, PROVIDER, EMBEDDING_MODEL, VECTOR_DB, QDRANT_URL,
  QDRANT_API_KEY, COLLECTION_NAME, MONGO_URL, DATABASE_NAME, UPLOAD_DIR, HASH_SALT
  (a .env file in the working directory is loaded first)

Examples:
  shiori server
  shiori ingest report.pdf
  shiori ingest --type txt --filename notes.txt ./notes
  shiori query "how long to boil pasta"
  shiori query --filter filename=recipes.pdf --filter page=3 --top-k 3 pasta
  shiori job 3f2b9c1e-6a7d-4e8f-9b1a-2c3d4e5f6a7b
  shiori status --output json`)
}
