package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// tableStore is what every adapter in this package provides.
type tableStore interface {
	port.TableStore
	port.Appender
	port.RowUpdater
}

var contractColumns = []string{"Description", "Quantity (PC)"}

func contractTable() domain.Table {
	return domain.Table{
		Columns: contractColumns,
		Rows: []domain.Row{
			{"Description": "Marble", "Quantity (PC)": "10"},
			{"Description": "Granite", "Quantity (PC)": "4"},
		},
	}
}

// testTableStore runs the behavior shared by all adapters against store.
// Table names are prefixed so runs against a shared database do not clash.
func testTableStore(t *testing.T, store tableStore, prefix string) {
	ctx := context.Background()

	t.Run("missing table", func(t *testing.T) {
		_, err := store.ReadTable(ctx, prefix+"Nope")
		if !errors.Is(err, port.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("write then read", func(t *testing.T) {
		name := prefix + "Inventory"
		if err := store.WriteTable(ctx, name, contractTable()); err != nil {
			t.Fatalf("WriteTable failed: %v", err)
		}
		got, err := store.ReadTable(ctx, name)
		if err != nil {
			t.Fatalf("ReadTable failed: %v", err)
		}
		if len(got.Columns) != 2 || got.Columns[0] != "Description" {
			t.Errorf("unexpected columns: %v", got.Columns)
		}
		if len(got.Rows) != 2 || got.Rows[1]["Description"] != "Granite" {
			t.Errorf("unexpected rows: %v", got.Rows)
		}
	})

	t.Run("write replaces", func(t *testing.T) {
		name := prefix + "Replace"
		store.WriteTable(ctx, name, contractTable())
		short := domain.Table{Columns: contractColumns, Rows: []domain.Row{{"Description": "Slate", "Quantity (PC)": "1"}}}
		if err := store.WriteTable(ctx, name, short); err != nil {
			t.Fatalf("WriteTable failed: %v", err)
		}
		got, _ := store.ReadTable(ctx, name)
		if len(got.Rows) != 1 || got.Rows[0]["Description"] != "Slate" {
			t.Errorf("expected table to be replaced, got %v", got.Rows)
		}
	})

	t.Run("append creates and extends", func(t *testing.T) {
		name := prefix + "Sales"
		columns := []string{"Item", "Qty"}
		if err := store.AppendRows(ctx, name, columns, []domain.Row{{"Item": "Marble", "Qty": "3"}}); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}
		if err := store.AppendRows(ctx, name, columns, []domain.Row{
			{"Item": "Granite", "Qty": "1"},
			{"Item": "Slate", "Qty": "2", "Extra": "dropped"},
		}); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}

		got, err := store.ReadTable(ctx, name)
		if err != nil {
			t.Fatalf("ReadTable failed: %v", err)
		}
		if len(got.Rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(got.Rows))
		}
		if got.Rows[2]["Item"] != "Slate" {
			t.Errorf("expected append order to be kept, got %v", got.Rows)
		}
		if _, ok := got.Rows[2]["Extra"]; ok {
			t.Error("expected cells outside the header to be dropped")
		}
	})

	t.Run("update row compare and set", func(t *testing.T) {
		name := prefix + "CAS"
		store.WriteTable(ctx, name, contractTable())
		cur, _ := store.ReadTable(ctx, name)

		next := domain.Row{"Description": "Marble", "Quantity (PC)": "7"}
		if err := store.UpdateRow(ctx, name, 0, cur.Rows[0], next); err != nil {
			t.Fatalf("UpdateRow failed: %v", err)
		}

		// The same expectation is now stale.
		err := store.UpdateRow(ctx, name, 0, cur.Rows[0], domain.Row{"Description": "Marble", "Quantity (PC)": "5"})
		if !errors.Is(err, port.ErrRowChanged) {
			t.Fatalf("expected ErrRowChanged, got %v", err)
		}

		err = store.UpdateRow(ctx, name, 9, cur.Rows[0], next)
		if !errors.Is(err, port.ErrRowChanged) {
			t.Fatalf("expected ErrRowChanged for out of range index, got %v", err)
		}

		got, _ := store.ReadTable(ctx, name)
		if got.Rows[0]["Quantity (PC)"] != "7" {
			t.Errorf("expected stock 7, got %q", got.Rows[0]["Quantity (PC)"])
		}
		if got.Rows[1]["Quantity (PC)"] != "4" {
			t.Errorf("expected other rows untouched, got %v", got.Rows[1])
		}
	})
}
