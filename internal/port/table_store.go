package port

import (
	"context"
	"errors"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowChanged    = errors.New("row changed since it was read")
)

// TableStore is the backing store: a spreadsheet, a directory of CSV files
// or a database holding sheet-shaped tables.
type TableStore interface {
	// ReadTable returns all rows of name in stored order, or ErrTableNotFound.
	ReadTable(ctx context.Context, name string) (domain.Table, error)

	// WriteTable replaces the whole table, creating it if needed.
	WriteTable(ctx context.Context, name string, table domain.Table) error
}

// Appender is implemented by stores with a native append. The table is
// created with columns as header when absent; cells for columns missing from
// an existing header are dropped.
type Appender interface {
	AppendRows(ctx context.Context, name string, columns []string, rows []domain.Row) error
}

// RowUpdater is implemented by stores that can replace one row only if it
// still equals expect. It returns ErrRowChanged otherwise.
type RowUpdater interface {
	UpdateRow(ctx context.Context, name string, index int, expect, next domain.Row) error
}
