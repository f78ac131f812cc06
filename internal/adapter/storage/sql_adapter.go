package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

type dialect int

const (
	dialectMySQL dialect = iota
	dialectSQLite
)

// SQLAdapter keeps sheet-shaped tables in a relational database: one row
// per table holding its header, one row per record holding its cells as JSON.
// Compare-and-set and append run inside database transactions, which makes
// them safe across processes sharing the database.
type SQLAdapter struct {
	db      *sql.DB
	dialect dialect
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialectMySQL}
}

// NewSQLiteAdapter expects a handle opened with the sqlite3 driver. In-memory
// databases must be limited to one connection by the caller.
func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialectSQLite}
}

// Migrate creates the storage tables if they do not exist.
func (s *SQLAdapter) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sheet_tables (
			name VARCHAR(128) NOT NULL PRIMARY KEY,
			columns_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			table_name VARCHAR(128) NOT NULL,
			row_index INT NOT NULL,
			cells_json TEXT NOT NULL,
			PRIMARY KEY (table_name, row_index)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// forUpdate locks selected rows on MySQL. SQLite serializes writers at the
// database level and has no row locks.
func (s *SQLAdapter) forUpdate() string {
	if s.dialect == dialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

func (s *SQLAdapter) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	var columnsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns_json FROM sheet_tables WHERE name = ?`, name,
	).Scan(&columnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, port.ErrTableNotFound
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("query table %s: %w", name, err)
	}

	var t domain.Table
	if err := json.Unmarshal([]byte(columnsJSON), &t.Columns); err != nil {
		return domain.Table{}, fmt.Errorf("decode %s header: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells_json FROM sheet_rows WHERE table_name = ? ORDER BY row_index`, name)
	if err != nil {
		return domain.Table{}, fmt.Errorf("query rows of %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return domain.Table{}, fmt.Errorf("scan %s: %w", name, err)
		}
		r, err := decodeRow(cells)
		if err != nil {
			return domain.Table{}, fmt.Errorf("decode %s row: %w", name, err)
		}
		t.Rows = append(t.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return domain.Table{}, fmt.Errorf("iterate %s: %w", name, err)
	}
	return t, nil
}

func (s *SQLAdapter) WriteTable(ctx context.Context, name string, t domain.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encode %s header: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_tables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("clear table %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE table_name = ?`, name); err != nil {
		return fmt.Errorf("clear rows of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sheet_tables (name, columns_json) VALUES (?, ?)`, name, string(columns),
	); err != nil {
		return fmt.Errorf("insert table %s: %w", name, err)
	}
	if err := insertRows(ctx, tx, name, 0, t.Columns, t.Rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLAdapter) AppendRows(ctx context.Context, name string, columns []string, rows []domain.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var header []string
	var columnsJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT columns_json FROM sheet_tables WHERE name = ?`+s.forUpdate(), name,
	).Scan(&columnsJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		header = columns
		encoded, err := json.Marshal(header)
		if err != nil {
			return fmt.Errorf("encode %s header: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_tables (name, columns_json) VALUES (?, ?)`, name, string(encoded),
		); err != nil {
			return fmt.Errorf("insert table %s: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("query table %s: %w", name, err)
	default:
		if err := json.Unmarshal([]byte(columnsJSON), &header); err != nil {
			return fmt.Errorf("decode %s header: %w", name, err)
		}
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_index) + 1, 0) FROM sheet_rows WHERE table_name = ?`, name,
	).Scan(&next); err != nil {
		return fmt.Errorf("query %s length: %w", name, err)
	}

	if err := insertRows(ctx, tx, name, next, header, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLAdapter) UpdateRow(ctx context.Context, name string, index int, expect, next domain.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var cells string
	err = tx.QueryRowContext(ctx,
		`SELECT cells_json FROM sheet_rows WHERE table_name = ? AND row_index = ?`+s.forUpdate(),
		name, index,
	).Scan(&cells)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrRowChanged
	}
	if err != nil {
		return fmt.Errorf("query %s row %d: %w", name, index, err)
	}
	current, err := decodeRow(cells)
	if err != nil {
		return fmt.Errorf("decode %s row %d: %w", name, index, err)
	}
	if !maps.Equal(current, expect) {
		return port.ErrRowChanged
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s row %d: %w", name, index, err)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET cells_json = ? WHERE table_name = ? AND row_index = ? AND cells_json = ?`,
		string(encoded), name, index, cells,
	)
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", name, index, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return port.ErrRowChanged
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, name string, start int, header []string, rows []domain.Row) error {
	for i, r := range rows {
		encoded, err := json.Marshal(project(header, r))
		if err != nil {
			return fmt.Errorf("encode %s row: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (table_name, row_index, cells_json) VALUES (?, ?, ?)`,
			name, start+i, string(encoded),
		); err != nil {
			return fmt.Errorf("insert %s row %d: %w", name, start+i, err)
		}
	}
	return nil
}

func decodeRow(cells string) (domain.Row, error) {
	r := domain.Row{}
	if err := json.Unmarshal([]byte(cells), &r); err != nil {
		return nil, err
	}
	return r, nil
}
