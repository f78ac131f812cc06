package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// LedgerWriter appends sale records to the Sales table.
//
// Stores without a native append get read-concat-write under mu. That only
// serializes writers in this process; two processes sharing such a store can
// still lose an entry.
type LedgerWriter struct {
	store port.TableStore
	table string
	mu    sync.Mutex
}

func NewLedgerWriter(store port.TableStore, table string) *LedgerWriter {
	return &LedgerWriter{store: store, table: table}
}

// Append adds entry at the end of the ledger, creating the table on first use.
func (w *LedgerWriter) Append(ctx context.Context, entry domain.LedgerEntry) error {
	row := entry.Row()

	if a, ok := w.store.(port.Appender); ok {
		if err := a.AppendRows(ctx, w.table, domain.SalesColumns, []domain.Row{row}); err != nil {
			return fmt.Errorf("%w: append %s: %w", domain.ErrWrite, w.table, err)
		}
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	t, err := w.store.ReadTable(ctx, w.table)
	switch {
	case errors.Is(err, port.ErrTableNotFound):
		t = domain.Table{Columns: domain.SalesColumns}
	case err != nil:
		return fmt.Errorf("%w: read %s: %w", domain.ErrWrite, w.table, err)
	}
	if len(t.Columns) == 0 {
		t.Columns = domain.SalesColumns
	}

	rows := make([]domain.Row, 0, len(t.Rows)+1)
	rows = append(rows, t.Rows...)
	t.Rows = append(rows, row)

	if err := w.store.WriteTable(ctx, w.table, t); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrWrite, w.table, err)
	}
	return nil
}

// Entries returns the ledger in commit order. A missing table is an empty
// ledger.
func (w *LedgerWriter) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	t, err := w.store.ReadTable(ctx, w.table)
	if errors.Is(err, port.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("w.store.ReadTable -> %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(t.Rows))
	for _, r := range t.Rows {
		entries = append(entries, domain.ParseLedgerRow(t.Columns, r))
	}
	return entries, nil
}

// Contains reports whether an entry with requestID was already appended.
func (w *LedgerWriter) Contains(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	entries, err := w.Entries(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}
