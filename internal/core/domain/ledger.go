package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sales table header. RequestID is an extension column; it is dropped when
// appending to a sheet created without it.
const (
	ColTimestamp      = "Timestamp"
	ColItem           = "Item"
	ColColor          = "Color"
	ColLedgerThick    = "Thickness"
	ColQty            = "Qty"
	ColUnitPrice      = "Price"
	ColTotal          = "Total"
	ColStockRemaining = "Stock_Remaining"
	ColRequestID      = "Request_ID"
)

// SalesColumns is the header written when the Sales table is created.
var SalesColumns = []string{
	ColTimestamp, ColItem, ColColor, ColLedgerThick, ColQty,
	ColUnitPrice, ColTotal, ColStockRemaining, ColRequestID,
}

// TimestampLayout is how ledger timestamps are written to the sheet.
const TimestampLayout = "2006-01-02 15:04:05"

// LedgerEntry is an immutable record of a committed sale. It refers to the
// item by its attributes, not by row id, so it stays readable after the
// catalog changes.
type LedgerEntry struct {
	Timestamp      time.Time
	Description    string
	Finish         string
	Thickness      string
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	StockRemaining int
	RequestID      string
}

// NewLedgerEntry books quantity units of row at price, leaving stockRemaining.
func NewLedgerEntry(row CatalogRow, quantity int, price decimal.Decimal, stockRemaining int, at time.Time, requestID string) LedgerEntry {
	return LedgerEntry{
		Timestamp:      at,
		Description:    row.Description,
		Finish:         row.Finish,
		Thickness:      row.Thickness,
		Quantity:       quantity,
		UnitPrice:      price,
		Total:          price.Mul(decimal.NewFromInt(int64(quantity))),
		StockRemaining: stockRemaining,
		RequestID:      requestID,
	}
}

// Row formats the entry as a Sales table row.
func (e LedgerEntry) Row() Row {
	return Row{
		ColTimestamp:      e.Timestamp.Format(TimestampLayout),
		ColItem:           e.Description,
		ColColor:          e.Finish,
		ColLedgerThick:    e.Thickness,
		ColQty:            strconv.Itoa(e.Quantity),
		ColUnitPrice:      e.UnitPrice.String(),
		ColTotal:          e.Total.String(),
		ColStockRemaining: strconv.Itoa(e.StockRemaining),
		ColRequestID:      e.RequestID,
	}
}

// ParseLedgerRow reads a Sales row back. Header names are matched the same
// lenient way as the inventory header; unreadable cells become zero values.
func ParseLedgerRow(columns []string, raw Row) LedgerEntry {
	cell := func(name string) string {
		c, ok := findColumn(columns, name)
		if !ok {
			return ""
		}
		return strings.TrimSpace(raw[c])
	}

	e := LedgerEntry{
		Description:    cell(ColItem),
		Finish:         cell(ColColor),
		Thickness:      cell(ColLedgerThick),
		Quantity:       ParseStock(cell(ColQty)),
		UnitPrice:      ParseAmount(cell(ColUnitPrice)),
		Total:          ParseAmount(cell(ColTotal)),
		StockRemaining: ParseStock(cell(ColStockRemaining)),
		RequestID:      cell(ColRequestID),
	}
	ts := cell(ColTimestamp)
	if t, err := time.ParseInLocation(TimestampLayout, ts, time.Local); err == nil {
		e.Timestamp = t
	} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
		e.Timestamp = t
	}
	return e
}
