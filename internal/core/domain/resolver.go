package domain

import (
	"slices"
)

// The resolver narrows the snapshot in three stages: description, then
// finish, then thickness. Each stage filters the previous stage's rows,
// never the full catalog.

// Descriptions returns the distinct descriptions in byte-wise order.
func (c *CatalogIndex) Descriptions() []string {
	return distinct(c.rows, func(r CatalogRow) string { return r.Description })
}

// Finishes returns the distinct finishes of rows with the given description.
func (c *CatalogIndex) Finishes(description string) []string {
	return distinct(c.byDescription(description), func(r CatalogRow) string { return r.Finish })
}

// Thicknesses returns the distinct thicknesses of rows matching description
// and finish.
func (c *CatalogIndex) Thicknesses(description, finish string) []string {
	return distinct(c.byFinish(description, finish), func(r CatalogRow) string { return r.Thickness })
}

// Resolve returns the row matching the full triple. When the catalog holds
// more than one, the first by load order wins.
func (c *CatalogIndex) Resolve(description, finish, thickness string) (CatalogRow, error) {
	rows := filter(c.byFinish(description, finish), func(r CatalogRow) bool { return r.Thickness == thickness })
	if len(rows) == 0 {
		return CatalogRow{}, ErrNotFound
	}
	return rows[0], nil
}

// Candidates returns the rows matching a partial selection. Empty trailing
// arguments leave that level unconstrained; an empty description returns
// the whole snapshot.
func (c *CatalogIndex) Candidates(description, finish, thickness string) []CatalogRow {
	switch {
	case description == "":
		return c.Rows()
	case finish == "":
		return c.byDescription(description)
	case thickness == "":
		return c.byFinish(description, finish)
	}
	return filter(c.byFinish(description, finish), func(r CatalogRow) bool { return r.Thickness == thickness })
}

func (c *CatalogIndex) byDescription(description string) []CatalogRow {
	return filter(c.rows, func(r CatalogRow) bool { return r.Description == description })
}

func (c *CatalogIndex) byFinish(description, finish string) []CatalogRow {
	return filter(c.byDescription(description), func(r CatalogRow) bool { return r.Finish == finish })
}

func filter(rows []CatalogRow, keep func(CatalogRow) bool) []CatalogRow {
	var out []CatalogRow
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func distinct(rows []CatalogRow, field func(CatalogRow) string) []string {
	set := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		set[field(r)] = struct{}{}
	}
	var keys []string
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
