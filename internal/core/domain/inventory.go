package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Inventory table header, as laid out in the shop's sheet.
const (
	ColDescription = "Description"
	ColFinish      = "Color/Finish"
	ColThickness   = "Thickness"
	ColSize        = "Size (mm)"
	ColQuantity    = "Quantity (PC)"
	ColPrice       = "TZS"
)

// InventoryColumns is the default header used when creating an Inventory table.
var InventoryColumns = []string{ColDescription, ColFinish, ColThickness, ColSize, ColQuantity, ColPrice}

// RowID identifies a catalog row within one loaded snapshot: its position in
// the Inventory table.
type RowID int

// CatalogRow is one sellable variant.
type CatalogRow struct {
	ID            RowID
	Description   string
	Finish        string
	Thickness     string
	Size          string
	StockQuantity int
	UnitPrice     decimal.Decimal
}

// Key returns the attribute triple identifying the row.
func (r CatalogRow) Key() ItemKey {
	return ItemKey{Description: r.Description, Finish: r.Finish, Thickness: r.Thickness}
}

// MaxQuantity is the largest quantity a sale of this row may request.
func (r CatalogRow) MaxQuantity() int {
	return r.StockQuantity
}

// ItemKey is the (description, finish, thickness) triple.
type ItemKey struct {
	Description string
	Finish      string
	Thickness   string
}

// InventoryLayout maps the logical inventory fields onto the actual header
// names found in a table (which may differ in case or padding).
type InventoryLayout struct {
	Description string
	Finish      string
	Thickness   string
	Size        string // empty when the sheet has no size column
	Quantity    string
	Price       string
}

// ResolveInventoryLayout matches the mandatory columns against columns.
// A *LoadError lists every missing one.
func ResolveInventoryLayout(table string, columns []string) (InventoryLayout, error) {
	var (
		layout  InventoryLayout
		missing []string
	)
	lookup := func(name string, dst *string) {
		c, ok := findColumn(columns, name)
		if !ok {
			missing = append(missing, name)
			return
		}
		*dst = c
	}
	lookup(ColDescription, &layout.Description)
	lookup(ColFinish, &layout.Finish)
	lookup(ColThickness, &layout.Thickness)
	lookup(ColQuantity, &layout.Quantity)
	lookup(ColPrice, &layout.Price)
	layout.Size, _ = findColumn(columns, ColSize)

	if len(missing) > 0 {
		return InventoryLayout{}, &LoadError{Table: table, Missing: missing}
	}
	return layout, nil
}

// Parse normalizes one raw row. Malformed numeric cells become zero.
func (l InventoryLayout) Parse(id RowID, raw Row) CatalogRow {
	row := CatalogRow{
		ID:            id,
		Description:   strings.TrimSpace(raw[l.Description]),
		Finish:        strings.TrimSpace(raw[l.Finish]),
		Thickness:     strings.TrimSpace(raw[l.Thickness]),
		StockQuantity: ParseStock(raw[l.Quantity]),
		UnitPrice:     ParseAmount(raw[l.Price]),
	}
	if l.Size != "" {
		row.Size = strings.TrimSpace(raw[l.Size])
	}
	return row
}

// WithStock returns a copy of raw with the quantity cell replaced.
func (l InventoryLayout) WithStock(raw Row, stock int) Row {
	next := make(Row, len(raw)+1)
	for k, v := range raw {
		next[k] = v
	}
	next[l.Quantity] = strconv.Itoa(stock)
	return next
}

// ParseStock reads a quantity cell. Thousands separators are ignored,
// fractions truncated, and anything unparsable, negative or beyond
// math.MaxInt32 counts as zero.
func ParseStock(cell string) int {
	d := ParseAmount(cell).Truncate(0)
	if d.GreaterThan(maxStock) {
		return 0
	}
	return int(d.IntPart())
}

var maxStock = decimal.NewFromInt(math.MaxInt32)

// ParseAmount reads a numeric cell as a non-negative decimal, zero when
// unparsable.
func ParseAmount(cell string) decimal.Decimal {
	d, err := decimal.NewFromString(cleanNumber(cell))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var numberCleaner = strings.NewReplacer(",", "", " ", "", "_", "", "\u00a0", "")

func cleanNumber(cell string) string {
	return numberCleaner.Replace(strings.TrimSpace(cell))
}

// CatalogIndex is an in-memory snapshot of the Inventory table.
// It is not safe for concurrent mutation; callers reload it between
// interaction cycles.
type CatalogIndex struct {
	table      string
	layout     InventoryLayout
	rows       []CatalogRow
	byID       map[RowID]int
	duplicates []CatalogRow
}

// NewCatalogIndex builds a snapshot from a raw Inventory table.
func NewCatalogIndex(name string, t Table) (*CatalogIndex, error) {
	layout, err := ResolveInventoryLayout(name, t.Columns)
	if err != nil {
		return nil, err
	}

	idx := &CatalogIndex{
		table:  name,
		layout: layout,
		byID:   make(map[RowID]int, len(t.Rows)),
	}
	seen := make(map[ItemKey]bool, len(t.Rows))
	for i, raw := range t.Rows {
		row := layout.Parse(RowID(i), raw)
		if row.Description == "" && row.Finish == "" && row.Thickness == "" {
			continue
		}
		if seen[row.Key()] {
			idx.duplicates = append(idx.duplicates, row)
		}
		seen[row.Key()] = true
		idx.byID[row.ID] = len(idx.rows)
		idx.rows = append(idx.rows, row)
	}
	return idx, nil
}

// Table is the name of the table the snapshot was loaded from.
func (c *CatalogIndex) Table() string { return c.table }

// Layout is the resolved header of the loaded table.
func (c *CatalogIndex) Layout() InventoryLayout { return c.layout }

// Len is the number of rows in the snapshot.
func (c *CatalogIndex) Len() int { return len(c.rows) }

// Rows returns a copy of all rows in load order.
func (c *CatalogIndex) Rows() []CatalogRow {
	return append([]CatalogRow(nil), c.rows...)
}

// Row looks up a row by id.
func (c *CatalogIndex) Row(id RowID) (CatalogRow, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CatalogRow{}, false
	}
	return c.rows[i], true
}

// Duplicates lists rows whose attribute triple repeats an earlier row.
// They stay in the snapshot but are never returned by Resolve.
func (c *CatalogIndex) Duplicates() []CatalogRow {
	return append([]CatalogRow(nil), c.duplicates...)
}

// Apply records a committed decrement in the snapshot. Only the sale
// coordinator calls it, after both writes succeeded.
func (c *CatalogIndex) Apply(id RowID, newStock int) bool {
	i, ok := c.byID[id]
	if !ok || newStock < 0 {
		return false
	}
	c.rows[i].StockQuantity = newStock
	return true
}
