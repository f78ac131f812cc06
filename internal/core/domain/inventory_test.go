package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

func inventoryTable(rows ...domain.Row) domain.Table {
	return domain.Table{Columns: domain.InventoryColumns, Rows: rows}
}

func item(description, finish, thickness, qty, price string) domain.Row {
	return domain.Row{
		domain.ColDescription: description,
		domain.ColFinish:      finish,
		domain.ColThickness:   thickness,
		domain.ColSize:        "600x600",
		domain.ColQuantity:    qty,
		domain.ColPrice:       price,
	}
}

func TestNewCatalogIndex_NormalizesCells(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("  Marble ", "White", " 10mm", "1,200", "5,000.50"),
	))
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	row, ok := idx.Row(0)
	require.True(t, ok)
	assert.Equal(t, "Marble", row.Description)
	assert.Equal(t, "10mm", row.Thickness)
	assert.Equal(t, "600x600", row.Size)
	assert.Equal(t, 1200, row.StockQuantity)
	assert.True(t, row.UnitPrice.Equal(decimal.RequireFromString("5000.50")))
	assert.Equal(t, 1200, row.MaxQuantity())
}

func TestNewCatalogIndex_MalformedNumbersBecomeZero(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("Marble", "White", "10mm", "n/a", ""),
		item("Marble", "Black", "10mm", "-4", "-10"),
		item("Marble", "Beige", "10mm", "1e19", ""),
		item("Marble", "Green", "10mm", "99999999999999999999", ""),
		item("Marble", "Grey", "10mm", "7.9", "abc"),
	))
	require.NoError(t, err)

	for _, r := range idx.Rows()[:4] {
		assert.Zero(t, r.StockQuantity, r.Finish)
		assert.True(t, r.UnitPrice.IsZero())
	}
	assert.Equal(t, 7, idx.Rows()[4].StockQuantity, "fractions are truncated")
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		cell string
		want int
	}{
		{"1,200", 1200},
		{"2147483647", 2147483647},
		{"2147483647.9", 2147483647},
		{"2147483648", 0},
		{"1e19", 0},
		{"-1e19", 0},
		{"99999999999999999999", 0},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseStock(tt.cell))
		})
	}
}

func TestNewCatalogIndex_MissingColumns(t *testing.T) {
	_, err := domain.NewCatalogIndex("Inventory", domain.Table{
		Columns: []string{"Description", "Thickness", "TZS"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoad)

	var loadErr *domain.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, []string{domain.ColFinish, domain.ColQuantity}, loadErr.Missing)
	assert.Contains(t, err.Error(), "Color/Finish")
}

func TestNewCatalogIndex_SizeColumnOptional(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", domain.Table{
		Columns: []string{"description ", "COLOR/FINISH", "Thickness", "Quantity (PC)", "TZS"},
		Rows: []domain.Row{{
			"description ":  "Marble",
			"COLOR/FINISH":  "White",
			"Thickness":     "10mm",
			"Quantity (PC)": "5",
			"TZS":           "100",
		}},
	})
	require.NoError(t, err)
	assert.Empty(t, idx.Layout().Size)

	row, _ := idx.Row(0)
	assert.Equal(t, "Marble", row.Description)
	assert.Equal(t, 5, row.StockQuantity)
}

func TestNewCatalogIndex_SkipsBlankRows(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("Marble", "White", "10mm", "20", "5000"),
		item("", "", "", "", ""),
		item("Granite", "Grey", "18mm", "3", "42000"),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	_, ok := idx.Row(1)
	assert.False(t, ok, "blank row has no id")

	row, ok := idx.Row(2)
	require.True(t, ok, "row ids keep their table position")
	assert.Equal(t, "Granite", row.Description)
}

func TestNewCatalogIndex_RecordsDuplicates(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("Marble", "White", "10mm", "20", "5000"),
		item("Marble", "White", "10mm", "4", "4800"),
	))
	require.NoError(t, err)
	require.Len(t, idx.Duplicates(), 1)
	assert.Equal(t, domain.RowID(1), idx.Duplicates()[0].ID)
}

func TestCatalogIndex_Apply(t *testing.T) {
	idx, err := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("Marble", "White", "10mm", "20", "5000"),
	))
	require.NoError(t, err)

	assert.True(t, idx.Apply(0, 17))
	row, _ := idx.Row(0)
	assert.Equal(t, 17, row.StockQuantity)

	assert.False(t, idx.Apply(0, -1))
	assert.False(t, idx.Apply(5, 1))
}

func TestCatalogIndex_RowsIsACopy(t *testing.T) {
	idx, _ := domain.NewCatalogIndex("Inventory", inventoryTable(
		item("Marble", "White", "10mm", "20", "5000"),
	))
	rows := idx.Rows()
	rows[0].StockQuantity = 0

	row, _ := idx.Row(0)
	assert.Equal(t, 20, row.StockQuantity)
}

func TestInventoryLayout_WithStock(t *testing.T) {
	layout, err := domain.ResolveInventoryLayout("Inventory", domain.InventoryColumns)
	require.NoError(t, err)

	raw := item("Marble", "White", "10mm", "1,200", "5000")
	next := layout.WithStock(raw, 1197)

	assert.Equal(t, "1197", next[domain.ColQuantity])
	assert.Equal(t, "1,200", raw[domain.ColQuantity], "input row is not modified")
	assert.Equal(t, raw[domain.ColPrice], next[domain.ColPrice])
}
