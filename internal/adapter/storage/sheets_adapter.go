package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// SheetsAdapter reads and writes tabs of one Google spreadsheet. Each tab is
// a table whose first row is the header.
//
// Values are written USER_ENTERED so numbers typed into the sheet stay
// numeric. The Sheets API has no conditional write, so UpdateRow is
// read-compare-write on a single row: another client can still slip in
// between the two calls.
type SheetsAdapter struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewSheetsAdapter(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsAdapter, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.NewService -> %w", err)
	}
	return &SheetsAdapter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsAdapter) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(name, "")).Context(ctx).Do()
	if err != nil {
		return domain.Table{}, s.wrap(name, err)
	}
	return valuesToTable(resp.Values), nil
}

// WriteTable overwrites the tab from A1, then clears whatever the old table
// had below the new last row.
func (s *SheetsAdapter) WriteTable(ctx context.Context, name string, t domain.Table) error {
	if err := s.ensureSheet(ctx, name); err != nil {
		return err
	}

	values := tableToValues(t)
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange(name, "A1"), &sheets.ValueRange{
		Values: values,
	}).ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return s.wrap(name, err)
	}

	tail := fmt.Sprintf("A%d:ZZ", len(values)+1)
	_, err = s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, sheetRange(name, tail), &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *SheetsAdapter) AppendRows(ctx context.Context, name string, columns []string, rows []domain.Row) error {
	header, err := s.header(ctx, name)
	if errors.Is(err, port.ErrTableNotFound) || (err == nil && len(header) == 0) {
		return s.WriteTable(ctx, name, domain.Table{Columns: columns, Rows: rows})
	}
	if err != nil {
		return err
	}

	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, rowValues(header, r))
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheetRange(name, "A1"), &sheets.ValueRange{
		Values: values,
	}).ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *SheetsAdapter) UpdateRow(ctx context.Context, name string, index int, expect, next domain.Row) error {
	header, err := s.header(ctx, name)
	if err != nil {
		return err
	}

	// Data rows start below the header, and sheet rows are 1-based.
	line := index + 2
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(name, fmt.Sprintf("A%d:ZZ%d", line, line))).
		Context(ctx).Do()
	if err != nil {
		return s.wrap(name, err)
	}
	if len(resp.Values) == 0 {
		return port.ErrRowChanged
	}
	if current := valuesRow(header, resp.Values[0]); !maps.Equal(current, expect) {
		return port.ErrRowChanged
	}

	// Only the cells that changed are written, so formulas and formatting
	// elsewhere in the row survive.
	var data []*sheets.ValueRange
	for i, col := range header {
		if next[col] == expect[col] {
			continue
		}
		data = append(data, &sheets.ValueRange{
			Range:  sheetRange(name, fmt.Sprintf("%s%d", columnName(i), line)),
			Values: [][]interface{}{{next[col]}},
		})
	}
	if len(data) == 0 {
		return nil
	}
	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *SheetsAdapter) header(ctx context.Context, name string) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(name, "1:1")).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap(name, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return cellsToStrings(resp.Values[0]), nil
}

// ensureSheet adds the tab when the spreadsheet does not have it yet.
func (s *SheetsAdapter) ensureSheet(ctx context.Context, name string) error {
	_, err := s.header(ctx, name)
	if !errors.Is(err, port.ErrTableNotFound) {
		return err
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

// wrap turns the API's "unknown range" answer into ErrTableNotFound.
func (s *SheetsAdapter) wrap(name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range") {
		return port.ErrTableNotFound
	}
	return fmt.Errorf("sheet %s: %w", name, err)
}

const valueInput = "USER_ENTERED"

// columnName turns a 0-based column index into its A1 letters.
func columnName(i int) string {
	name := ""
	for i++; i > 0; i = (i - 1) / 26 {
		name = string(rune('A'+(i-1)%26)) + name
	}
	return name
}

func sheetRange(name, cells string) string {
	quoted := "'" + strings.ReplaceAll(name, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func valuesToTable(values [][]interface{}) domain.Table {
	if len(values) == 0 {
		return domain.Table{}
	}
	t := domain.Table{Columns: cellsToStrings(values[0])}
	for _, v := range values[1:] {
		t.Rows = append(t.Rows, valuesRow(t.Columns, v))
	}
	return t
}

// valuesRow maps one API row onto the header. The API trims trailing empty
// cells, so short rows are padded.
func valuesRow(header []string, cells []interface{}) domain.Row {
	r := make(domain.Row, len(header))
	for i, col := range header {
		if i < len(cells) && cells[i] != nil {
			r[col] = fmt.Sprint(cells[i])
		} else {
			r[col] = ""
		}
	}
	return r
}

func tableToValues(t domain.Table) [][]interface{} {
	values := make([][]interface{}, 0, len(t.Rows)+1)
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	values = append(values, header)
	for _, r := range t.Rows {
		values = append(values, rowValues(t.Columns, r))
	}
	return values
}

func rowValues(header []string, r domain.Row) []interface{} {
	cells := make([]interface{}, len(header))
	for i, c := range header {
		cells[i] = r[c]
	}
	return cells
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprint(c)
	}
	return out
}
