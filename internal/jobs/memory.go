package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/shiori/internal/models"
)

// MemoryLedger keeps jobs in a map for the lifetime of the process.
type MemoryLedger struct {
	jobs map[string]*models.Job
	mu   sync.RWMutex
	opts ledgerOptions
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger(opts ...Option) *MemoryLedger {
	return &MemoryLedger{
		jobs: make(map[string]*models.Job),
		opts: buildOptions(opts),
	}
}

func (m *MemoryLedger) Backend() string { return "memory" }

func (m *MemoryLedger) CreateJob(_ context.Context, id, sourceType string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[id]; exists {
		return nil, fmt.Errorf("job %s already exists", id)
	}
	job := newJob(id, sourceType, m.opts.now())
	m.jobs[id] = job
	return cloneJob(job), nil
}

func (m *MemoryLedger) UpdateJob(_ context.Context, id string, upd models.JobUpdate) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	next := cloneJob(job)
	if err := apply(next, upd, m.opts.now()); err != nil {
		return nil, err
	}
	m.jobs[id] = next
	return cloneJob(next), nil
}

func (m *MemoryLedger) GetJob(_ context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	return cloneJob(job), nil
}

func (m *MemoryLedger) Close() error { return nil }
