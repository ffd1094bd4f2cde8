package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	status TEXT NOT NULL,
	chunks INTEGER NOT NULL DEFAULT 0,
	tokens INTEGER,
	error TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

// SQLiteLedger stores jobs in the local SQLite database. Timestamps are kept
// as Unix milliseconds.
type SQLiteLedger struct {
	db   *sql.DB
	opts ledgerOptions
}

var _ Ledger = (*SQLiteLedger)(nil)

// NewSQLiteLedger opens (creating if needed) the jobs table in dbPath.
func NewSQLiteLedger(ctx context.Context, dbPath string, opts ...Option) (*SQLiteLedger, error) {
	db, err := storage.OpenSQLite(ctx, dbPath, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteLedger{db: db, opts: buildOptions(opts)}, nil
}

func (s *SQLiteLedger) Backend() string { return "sqlite" }

func (s *SQLiteLedger) CreateJob(ctx context.Context, id, sourceType string) (*models.Job, error) {
	job := newJob(id, sourceType, s.opts.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, source_type, status, chunks, tokens, error, created_at, updated_at)
		VALUES (?, ?, ?, 0, NULL, NULL, ?, ?)`,
		job.ID, job.SourceType, string(job.Status), job.CreatedAt.UnixMilli(), job.UpdatedAt.UnixMilli())
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return nil, fmt.Errorf("job %s already exists", id)
		}
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	return job, nil
}

func (s *SQLiteLedger) UpdateJob(ctx context.Context, id string, upd models.JobUpdate) (*models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx, selectJob, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if err := apply(job, upd, s.opts.now()); err != nil {
		return nil, err
	}

	var tokens, msg any
	if job.Stats.Tokens != nil {
		tokens = *job.Stats.Tokens
	}
	if job.Error != nil {
		msg = *job.Error
	}
	// The status guard keeps two racing terminal updates from both landing.
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, chunks = ?, tokens = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(job.Status), job.Stats.Chunks, tokens, msg, job.UpdatedAt.UnixMilli(),
		id, string(models.JobProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: job %s changed concurrently", models.ErrInvalidTransition, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit job update: %w", err)
	}
	return job, nil
}

func (s *SQLiteLedger) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, selectJob, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

const selectJob = `
	SELECT id, source_type, status, chunks, tokens, error, created_at, updated_at
	FROM jobs WHERE id = ?`

func scanJob(row *sql.Row) (*models.Job, error) {
	var (
		job                  models.Job
		status               string
		tokens               sql.NullInt64
		msg                  sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&job.ID, &job.SourceType, &status, &job.Stats.Chunks, &tokens, &msg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	if tokens.Valid {
		n := int(tokens.Int64)
		job.Stats.Tokens = &n
	}
	if msg.Valid {
		job.Error = &msg.String
	}
	job.CreatedAt = time.UnixMilli(createdAt).UTC()
	job.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &job, nil
}
