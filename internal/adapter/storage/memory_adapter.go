package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// MemoryAdapter keeps tables in process memory. Used for tests and demos.
type MemoryAdapter struct {
	mu     sync.RWMutex
	tables map[string]domain.Table
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{tables: make(map[string]domain.Table)}
}

func (m *MemoryAdapter) ReadTable(_ context.Context, name string) (domain.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return domain.Table{}, port.ErrTableNotFound
	}
	return t.Clone(), nil
}

func (m *MemoryAdapter) WriteTable(_ context.Context, name string, t domain.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = t.Clone()
	return nil
}

func (m *MemoryAdapter) AppendRows(_ context.Context, name string, columns []string, rows []domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[name]
	if !ok {
		t = domain.Table{Columns: append([]string(nil), columns...)}
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, project(t.Columns, r))
	}
	m.tables[name] = t
	return nil
}

func (m *MemoryAdapter) UpdateRow(_ context.Context, name string, index int, expect, next domain.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[name]
	if !ok {
		return port.ErrTableNotFound
	}
	if index < 0 || index >= len(t.Rows) || !maps.Equal(t.Rows[index], expect) {
		return port.ErrRowChanged
	}
	t.Rows[index] = maps.Clone(next)
	return nil
}

// project keeps only the cells of r that the header knows about.
func project(columns []string, r domain.Row) domain.Row {
	out := make(domain.Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// MemoryIdempotency is an in-process IdempotencyRepository. Claims do not
// survive a restart; use the Redis adapter when they must.
type MemoryIdempotency struct {
	mu      sync.Mutex
	records map[string]domain.CommitRecord
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{records: make(map[string]domain.CommitRecord)}
}

func (m *MemoryIdempotency) Claim(_ context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[requestID]; ok {
		return false, nil
	}
	m.records[requestID] = domain.CommitRecord{RequestID: requestID, State: domain.CommitClaimed}
	return true, nil
}

func (m *MemoryIdempotency) Get(_ context.Context, requestID string) (*domain.CommitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[requestID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryIdempotency) Save(_ context.Context, record domain.CommitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.RequestID] = record
	return nil
}

func (m *MemoryIdempotency) Release(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, requestID)
	return nil
}
