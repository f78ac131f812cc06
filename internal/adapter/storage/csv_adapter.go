package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// CSVAdapter stores each table as <dir>/<name>.csv with a header line.
//
// Access is serialized by mu, so compare-and-set and append are atomic for
// this process only. Another process editing the same files is not locked out.
type CSVAdapter struct {
	dir string
	mu  sync.Mutex
}

func NewCSVAdapter(dir string) (*CSVAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &CSVAdapter{dir: dir}, nil
}

func (c *CSVAdapter) path(name string) string {
	return filepath.Join(c.dir, name+".csv")
}

func (c *CSVAdapter) ReadTable(ctx context.Context, name string) (domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return domain.Table{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(name)
}

func (c *CSVAdapter) WriteTable(ctx context.Context, name string, t domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(name, t)
}

// AppendRows writes rows at the end of the file without rewriting it.
func (c *CSVAdapter) AppendRows(ctx context.Context, name string, columns []string, rows []domain.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	header, err := c.header(name)
	if errors.Is(err, port.ErrTableNotFound) {
		return c.write(name, domain.Table{Columns: columns, Rows: rows})
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		if err := w.Write(record(header, r)); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}

	f, err := os.OpenFile(c.path(name), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", name, err)
	}
	return f.Close()
}

func (c *CSVAdapter) UpdateRow(ctx context.Context, name string, index int, expect, next domain.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.read(name)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.Rows) || !maps.Equal(t.Rows[index], expect) {
		return port.ErrRowChanged
	}
	t.Rows[index] = next
	return c.write(name, t)
}

func (c *CSVAdapter) read(name string) (domain.Table, error) {
	f, err := os.Open(c.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Table{}, port.ErrTableNotFound
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := domain.Table{Columns: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("read %s: %w", name, err)
		}
		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func (c *CSVAdapter) header(name string) ([]string, error) {
	f, err := os.Open(c.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, port.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, nil
}

// write replaces the file through a temp file and rename, so readers never
// see a half-written table.
func (c *CSVAdapter) write(name string, t domain.Table) error {
	tmp, err := os.CreateTemp(c.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for _, r := range t.Rows {
		if err := w.Write(record(t.Columns, r)); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), c.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func record(columns []string, r domain.Row) []string {
	rec := make([]string, len(columns))
	for i, c := range columns {
		rec[i] = r[c]
	}
	return rec
}
