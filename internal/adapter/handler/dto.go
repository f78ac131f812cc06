package handler

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

type SaleRequest struct {
	RequestID   string              `json:"request_id"`
	Description string              `json:"description"`
	Finish      string              `json:"finish"`
	Thickness   string              `json:"thickness"`
	Quantity    json.Number         `json:"quantity"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
}

func (r SaleRequest) key() domain.ItemKey {
	return domain.ItemKey{Description: r.Description, Finish: r.Finish, Thickness: r.Thickness}
}

type SaleResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Code      string       `json:"code,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	NewStock  *int         `json:"new_stock,omitempty"`
	Entry     *LedgerEntry `json:"entry,omitempty"`
}

type CatalogRow struct {
	RowID         int             `json:"row_id"`
	Description   string          `json:"description"`
	Finish        string          `json:"finish"`
	Thickness     string          `json:"thickness"`
	Size          string          `json:"size,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	MaxQuantity   int             `json:"max_quantity"`
}

type LedgerEntry struct {
	Timestamp      time.Time       `json:"timestamp"`
	Description    string          `json:"description"`
	Finish         string          `json:"finish"`
	Thickness      string          `json:"thickness"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	StockRemaining int             `json:"stock_remaining"`
	RequestID      string          `json:"request_id,omitempty"`
}

type OptionsResponse struct {
	Options []string `json:"options"`
}

func toCatalogRow(r domain.CatalogRow) CatalogRow {
	return CatalogRow{
		RowID:         int(r.ID),
		Description:   r.Description,
		Finish:        r.Finish,
		Thickness:     r.Thickness,
		Size:          r.Size,
		StockQuantity: r.StockQuantity,
		UnitPrice:     r.UnitPrice,
		MaxQuantity:   r.MaxQuantity(),
	}
}

func toLedgerEntry(e domain.LedgerEntry) LedgerEntry {
	return LedgerEntry{
		Timestamp:      e.Timestamp,
		Description:    e.Description,
		Finish:         e.Finish,
		Thickness:      e.Thickness,
		Quantity:       e.Quantity,
		UnitPrice:      e.UnitPrice,
		Total:          e.Total,
		StockRemaining: e.StockRemaining,
		RequestID:      e.RequestID,
	}
}

// saleResponse builds the reply for a commit or ledger retry. A partial write
// still reports the stock that was applied.
func saleResponse(res domain.CommitResult, err error) SaleResponse {
	if err == nil {
		entry := toLedgerEntry(res.Entry)
		return SaleResponse{
			Success:   true,
			Message:   "sale recorded",
			RequestID: res.Entry.RequestID,
			NewStock:  &res.NewStock,
			Entry:     &entry,
		}
	}

	f := classify(err)
	resp := SaleResponse{Success: false, Message: f.message, Code: f.code}

	var partial *domain.PartialWriteError
	if errors.As(err, &partial) {
		entry := toLedgerEntry(partial.Entry)
		resp.RequestID = partial.RequestID
		resp.NewStock = &partial.NewStock
		resp.Entry = &entry
	}
	var dup *domain.DuplicateCommitError
	if errors.As(err, &dup) {
		resp.RequestID = dup.Record.RequestID
		if dup.Record.State != domain.CommitClaimed {
			resp.NewStock = &dup.Record.NewStock
		}
	}
	return resp
}

func options(values []string) OptionsResponse {
	if values == nil {
		values = []string{}
	}
	return OptionsResponse{Options: values}
}
