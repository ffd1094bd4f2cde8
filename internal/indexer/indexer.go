package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/ident"
	"github.com/hyperjump/shiori/internal/jobs"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/pkg/utils"
)

// sourceUpload is the metadata "source" of every chunk ingested through Indexer.
const sourceUpload = "upload"

// Parser turns a stored document into ordered text units.
type Parser interface {
	Parse(path string, sourceType models.SourceType) ([]models.TextUnit, error)
}

// Upload is one document handed to Ingest.
type Upload struct {
	Reader     io.Reader
	Filename   string // empty picks a generated name
	SourceType string
}

// Indexer runs the ingestion pipeline: persist, parse, chunk, embed, upsert,
// and record the outcome in the job ledger.
type Indexer struct {
	embedder  embedding.Embedder
	vectors   *vector.Manager
	ledger    jobs.Ledger
	parser    Parser
	chunker   *Chunker
	uploadDir string
	hashSalt  string
	maxBatch  int
	logger    *zap.Logger
	now       func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithClock replaces time.Now for chunk timestamps.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer with the given dependencies. It fails only on
// invalid chunking parameters.
func NewIndexer(
	cfg *config.Config,
	embedder embedding.Embedder,
	vectors *vector.Manager,
	ledger jobs.Ledger,
	parser Parser,
	opts ...IndexerOption,
) (*Indexer, error) {
	chunker, err := NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		return nil, err
	}
	idx := &Indexer{
		embedder:  embedder,
		vectors:   vectors,
		ledger:    ledger,
		parser:    parser,
		chunker:   chunker,
		uploadDir: cfg.Storage.UploadDir,
		hashSalt:  cfg.Chunking.HashSalt,
		maxBatch:  cfg.Embedding.MaxBatchInputs,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx, nil
}

// Ingest stores up, creates its job and indexes it synchronously.
//
// An unsupported source type is rejected before anything is written or
// recorded. Once the job exists, a failure still returns the response (status
// failed) alongside the error, so callers can report the job id. The stored
// upload is removed on every path.
func (idx *Indexer) Ingest(ctx context.Context, up Upload) (*models.IngestResponse, error) {
	sourceType, err := models.ParseSourceType(up.SourceType)
	if err != nil {
		return nil, err
	}
	filename := strings.TrimSpace(up.Filename)
	if filename == "" {
		filename = ident.DefaultFilename()
	}

	path, err := idx.persist(up.Reader, filename)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				idx.logger.Warn("failed to remove upload", zap.String("path", path), zap.Error(rmErr))
			}
		}()
	}
	if err != nil {
		return nil, err
	}

	jobID := ident.NewJobID()
	if _, err := idx.ledger.CreateJob(ctx, jobID, string(sourceType)); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	resp := &models.IngestResponse{
		JobID:    jobID,
		Status:   models.JobProcessing,
		Metadata: models.IngestMetadata{Filename: filename, SourceType: sourceType},
	}
	idx.logger.Debug("ingestion started",
		zap.String("job_id", jobID),
		zap.String("filename", filename),
		zap.String("source_type", string(sourceType)))

	start := time.Now()
	stats, procErr := idx.process(ctx, jobID, path, filename, sourceType)

	// Record the outcome even if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)
	if procErr != nil {
		resp.Status = models.JobFailed
		if _, err := idx.ledger.UpdateJob(recordCtx, jobID, models.Failed(procErr.Error())); err != nil {
			idx.logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
		}
		idx.logFailure(jobID, filename, procErr)
		return resp, procErr
	}

	if _, err := idx.ledger.UpdateJob(recordCtx, jobID, models.Completed(stats)); err != nil {
		resp.Status = models.JobFailed
		completeErr := fmt.Errorf("failed to mark job completed: %w", err)
		if _, err := idx.ledger.UpdateJob(recordCtx, jobID, models.Failed(completeErr.Error())); err != nil {
			idx.logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
		}
		idx.logFailure(jobID, filename, completeErr)
		return resp, completeErr
	}
	resp.Status = models.JobCompleted
	resp.Stats = stats
	idx.logger.Info("document ingested",
		zap.String("job_id", jobID),
		zap.String("filename", filename),
		zap.Int("chunks", stats.Chunks),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// IngestFile ingests the file at path under its base name.
func (idx *Indexer) IngestFile(ctx context.Context, path, sourceType string) (*models.IngestResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	return idx.Ingest(ctx, Upload{Reader: f, Filename: filepath.Base(path), SourceType: sourceType})
}

// IngestDirectory walks dir and ingests every regular file whose extension is
// a supported source type. Files are ingested independently; the returned
// error joins every per-file failure.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string) ([]*models.IngestResponse, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var (
		results []*models.IngestResponse
		errs    []error
	)
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		st, ok := models.SourceTypeForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		resp, ingestErr := idx.IngestFile(ctx, path, string(st))
		if resp != nil {
			results = append(results, resp)
		}
		if ingestErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, ingestErr))
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return results, errors.Join(errs...)
}

func (idx *Indexer) persist(r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: empty upload", models.ErrClientInput)
	}
	if err := os.MkdirAll(idx.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(idx.uploadDir, ident.UploadName(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// process runs parse through upsert for one stored document.
func (idx *Indexer) process(ctx context.Context, jobID, path, filename string, sourceType models.SourceType) (models.JobStats, error) {
	units, err := idx.parser.Parse(path, sourceType)
	if err != nil {
		return models.JobStats{}, err
	}

	chunks := idx.buildChunks(units, jobID, filename, sourceType)
	if len(chunks) == 0 {
		idx.logger.Info("document produced no chunks", zap.String("job_id", jobID), zap.String("filename", filename))
		return models.JobStats{Chunks: 0}, nil
	}
	if idx.maxBatch > 0 && len(chunks) > idx.maxBatch {
		return models.JobStats{}, fmt.Errorf("%w: %d chunks exceeds the embedding batch limit of %d",
			models.ErrDocumentTooLarge, len(chunks), idx.maxBatch)
	}

	if err := idx.vectors.EnsureCollection(ctx, idx.embedder.Dimension()); err != nil {
		return models.JobStats{}, err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return models.JobStats{}, embedding.ClassifyError(err)
	}
	if len(vectors) != len(chunks) {
		return models.JobStats{}, fmt.Errorf("embedding provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	ids := make([]string, len(chunks))
	payloads := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		ids[i] = ident.NewPointID()
		payloads[i] = ch.Payload()
	}
	if err := idx.vectors.Upsert(ctx, ids, vectors, payloads); err != nil {
		return models.JobStats{}, err
	}
	return models.JobStats{Chunks: len(chunks)}, nil
}

func (idx *Indexer) buildChunks(units []models.TextUnit, jobID, filename string, sourceType models.SourceType) []models.Chunk {
	createdAt := idx.now().UTC()
	model := idx.embedder.Name()
	dim := idx.embedder.Dimension()

	var chunks []models.Chunk
	for _, unit := range units {
		for _, text := range idx.chunker.Split(unit.Text) {
			chunks = append(chunks, models.Chunk{
				Text: text,
				Metadata: models.ChunkMetadata{
					Source:         sourceUpload,
					Filename:       filename,
					SourceType:     sourceType,
					Page:           unit.Page,
					Sheet:          unit.Sheet,
					Hash:           ident.ContentHash(idx.hashSalt, text),
					EmbeddingModel: model,
					EmbeddingDim:   dim,
					CreatedAt:      createdAt,
					JobID:          jobID,
					ChunkIndex:     len(chunks),
				},
			})
		}
	}
	return chunks
}

func (idx *Indexer) logFailure(jobID, filename string, err error) {
	fields := []zap.Field{zap.String("job_id", jobID), zap.String("filename", filename), zap.Error(err)}
	switch models.Classify(err) {
	case models.ClassInternal:
		idx.logger.Error("ingestion failed", fields...)
	default:
		idx.logger.Warn("ingestion failed", append(fields, zap.String("class", string(models.Classify(err))))...)
	}
}
