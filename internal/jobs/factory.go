package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/pkg/utils"
)

// New opens the ledger selected by cfg. When a durable backend cannot be
// opened the process keeps running on a MemoryLedger and logs a warning.
func New(ctx context.Context, cfg config.JobsConfig, databasePath string, logger *zap.Logger, opts ...Option) (Ledger, error) {
	logger = utils.OrNop(logger)
	backend := cfg.ResolvedBackend(databasePath)

	switch backend {
	case "mongo":
		l, err := NewMongoLedger(ctx, cfg, opts...)
		if err != nil {
			logger.Warn("mongo job ledger unavailable; falling back to in-memory jobs", zap.Error(err))
			return NewMemoryLedger(opts...), nil
		}
		logger.Info("job ledger ready", zap.String("backend", backend),
			zap.String("database", cfg.Database), zap.String("collection", cfg.Collection))
		return l, nil
	case "sqlite":
		l, err := NewSQLiteLedger(ctx, databasePath, opts...)
		if err != nil {
			logger.Warn("sqlite job ledger unavailable; falling back to in-memory jobs", zap.Error(err))
			return NewMemoryLedger(opts...), nil
		}
		logger.Info("job ledger ready", zap.String("backend", backend), zap.String("path", databasePath))
		return l, nil
	case "memory":
		logger.Warn("using in-memory job ledger; job records are lost on restart")
		return NewMemoryLedger(opts...), nil
	default:
		return nil, fmt.Errorf("unknown job backend: %s (supported: mongo, sqlite, memory)", backend)
	}
}
