package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SaleRequest is a proposed sale against one catalog row.
type SaleRequest struct {
	RowID    RowID
	Quantity int
	// UnitPrice overrides the catalog price when valid.
	UnitPrice   decimal.NullDecimal
	RequestedAt time.Time
	// RequestID is the idempotency token of this commit attempt. The
	// coordinator generates one when empty.
	RequestID string
}

// PriceFor returns the price the sale will be booked at.
func (s SaleRequest) PriceFor(row CatalogRow) decimal.Decimal {
	if s.UnitPrice.Valid {
		return s.UnitPrice.Decimal
	}
	return row.UnitPrice
}

// CommitResult is what a successful commit leaves behind.
type CommitResult struct {
	NewStock int
	Entry    LedgerEntry
}

// ValidateSale checks a proposed sale against the row's current stock.
// It has no side effects and may be called as often as needed.
func ValidateSale(row CatalogRow, quantity int, price decimal.Decimal) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if price.IsNegative() {
		return ErrInvalidPrice
	}
	if quantity > row.StockQuantity {
		return &InsufficientStockError{RowID: row.ID, Available: row.StockQuantity, Requested: quantity}
	}
	return nil
}

// ParseQuantity reads an operator-entered quantity. Anything but a positive
// whole number is rejected.
func ParseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || q <= 0 {
		return 0, ErrInvalidQuantity
	}
	return q, nil
}

// ParsePrice reads an operator-entered unit price.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(cleanNumber(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}
