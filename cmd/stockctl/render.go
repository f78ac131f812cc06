package main

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

const currency = "TZS"

// formatTZS displays an amount with the shilling's symbol and minor units.
func formatTZS(amount decimal.Decimal) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

func stockMarkdown(rows []domain.CatalogRow) string {
	var b strings.Builder
	b.WriteString("# Stock\n\n")
	if len(rows) == 0 {
		b.WriteString("_No items._\n")
		return b.String()
	}
	b.WriteString("| Description | Finish | Thickness | Size | Stock | Price |\n")
	b.WriteString("|---|---|---|---|---:|---:|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
			cell(r.Description), cell(r.Finish), cell(r.Thickness), cell(r.Size), r.StockQuantity, formatTZS(r.UnitPrice))
	}
	return b.String()
}

func ledgerMarkdown(entries []domain.LedgerEntry) string {
	var b strings.Builder
	b.WriteString("# Sales\n\n")
	if len(entries) == 0 {
		b.WriteString("_No sales recorded._\n")
		return b.String()
	}
	b.WriteString("| Time | Item | Finish | Thickness | Qty | Price | Total | Left |\n")
	b.WriteString("|---|---|---|---|---:|---:|---:|---:|\n")
	total := decimal.Zero
	for _, e := range entries {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Format(domain.TimestampLayout)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s | %s | %d |\n",
			ts, cell(e.Description), cell(e.Finish), cell(e.Thickness),
			e.Quantity, formatTZS(e.UnitPrice), formatTZS(e.Total), e.StockRemaining)
		total = total.Add(e.Total)
	}
	fmt.Fprintf(&b, "\n**%d sales, %s in total.**\n", len(entries), formatTZS(total))
	return b.String()
}

// cell escapes text for a markdown table cell.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func render(markdown string) (string, error) {
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}
