package domain

import (
	"maps"
	"strings"
)

// Row is one record of a backing-store table, keyed by column name.
// Values are the raw cell text as the backend returned it.
type Row map[string]string

// Table is an ordered set of rows sharing one header.
type Table struct {
	Columns []string
	Rows    []Row
}

// Clone returns a deep copy so callers can mutate rows without touching the
// store's view.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = maps.Clone(r)
	}
	return out
}

// Column returns the header name matching want after trimming and ignoring
// case, and whether it was found.
func (t Table) Column(want string) (string, bool) {
	return findColumn(t.Columns, want)
}

func findColumn(columns []string, want string) (string, bool) {
	for _, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return c, true
		}
	}
	return "", false
}
