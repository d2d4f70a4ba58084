// Package dataset holds the tabular sources behind the territory index
// (settlements, postal codes, named places, countries) and the lazily
// materialized, filtered and reprojected subsets each territory derives
// from its parent's.
package dataset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/paulstuart/go-territories/crs"
)

// Kind names the source a table was read from
type Kind string

const (
	Settlements Kind = "settlements"
	Postals     Kind = "postals"
	Geonames    Kind = "geonames"
	Countries   Kind = "countries"
)

// Schema describes the columns of a table
type Schema struct {
	Columns []string
	Name    string // column holding the display name
	Lon     string // empty when rows carry no location
	Lat     string

	once  sync.Once
	index map[string]int
}

// Col returns the position of a column, or -1
func (s *Schema) Col(name string) int {
	if s == nil {
		return -1
	}
	s.once.Do(func() {
		s.index = make(map[string]int, len(s.Columns))
		for i, c := range s.Columns {
			s.index[c] = i
		}
	})
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Located reports whether rows carry coordinates
func (s *Schema) Located() bool {
	return s != nil && s.Lon != "" && s.Lat != ""
}

// Row is one record. ID is its position in the base table it was read from
// and survives filtering and reprojection.
type Row struct {
	ID     int
	Values []string
	Point  orb.Point
}

// Table is an immutable set of rows sharing a schema and a CRS.
// A nil *Table is an unconfigured dataset and is safe to use.
type Table struct {
	Kind   Kind
	CRS    string
	Schema *Schema
	Rows   []Row

	indexOnce sync.Once
	index     *rtree.RTreeG[int]
}

// NewTable wraps rows read in the given system
func NewTable(kind Kind, system string, schema *Schema, rows []Row) *Table {
	return &Table{Kind: kind, CRS: crs.Normalize(system), Schema: schema, Rows: rows}
}

// Len is 0 for a nil table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Materialize lets a table serve as the root of a chain of subsets
func (t *Table) Materialize() (*Table, error) {
	return t, nil
}

// Get returns a column value, empty when the column is unknown
func (t *Table) Get(r Row, column string) string {
	if t == nil {
		return ""
	}
	i := t.Schema.Col(column)
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Name is the row's display name
func (t *Table) Name(r Row) string {
	if t == nil || t.Schema == nil {
		return ""
	}
	return t.Get(r, t.Schema.Name)
}

// Where keeps the rows for which keep returns true
func (t *Table) Where(keep func(Row) bool) *Table {
	if t == nil {
		return nil
	}
	var rows []Row
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.derive(rows)
}

func (t *Table) derive(rows []Row) *Table {
	if rows == nil {
		rows = []Row{}
	}
	return &Table{Kind: t.Kind, CRS: t.CRS, Schema: t.Schema, Rows: rows}
}

// Distinct returns the sorted non-empty values of a column
func (t *Table) Distinct(column string) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows {
		v := t.Get(r, column)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// First row whose column equals value
func (t *Table) First(column, value string) (Row, bool) {
	if t == nil {
		return Row{}, false
	}
	for _, r := range t.Rows {
		if t.Get(r, column) == value {
			return r, true
		}
	}
	return Row{}, false
}

// Points returns every row location
func (t *Table) Points() []orb.Point {
	if t == nil || !t.Schema.Located() {
		return nil
	}
	pts := make([]orb.Point, len(t.Rows))
	for i, r := range t.Rows {
		pts[i] = r.Point
	}
	return pts
}

// IDs returns the base-table ids of the rows
func (t *Table) IDs() []int {
	if t == nil {
		return nil
	}
	ids := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.ID
	}
	return ids
}

// Reproject returns the table expressed in another system.
// The receiver is returned unchanged when it is already in that system.
func (t *Table) Reproject(system string) (*Table, error) {
	if t == nil || system == "" || crs.Same(t.CRS, system) {
		return t, nil
	}
	proj, err := crs.Projector(t.CRS, system)
	if err != nil {
		return nil, fmt.Errorf("reproject %s: %w", t.Kind, err)
	}
	rows := make([]Row, len(t.Rows))
	located := t.Schema.Located()
	for i, r := range t.Rows {
		rows[i] = r
		if located {
			rows[i].Point = proj(r.Point)
		}
	}
	out := t.derive(rows)
	out.CRS = crs.Normalize(system)
	return out, nil
}

// Near calls fn for every row whose location falls in the bound, stopping when fn returns false.
// The point index is built on first use.
func (t *Table) Near(b orb.Bound, fn func(Row) bool) {
	if t.Len() == 0 || !t.Schema.Located() {
		return
	}
	t.indexOnce.Do(func() {
		t.index = &rtree.RTreeG[int]{}
		for i, r := range t.Rows {
			t.index.Insert(r.Point, r.Point, i)
		}
	})
	t.index.Search(b.Min, b.Max, func(_, _ [2]float64, i int) bool {
		return fn(t.Rows[i])
	})
}

// String implements fmt.Stringer
func (t *Table) String() string {
	if t == nil {
		return "<no dataset>"
	}
	return fmt.Sprintf("%s (%d rows, %s)", t.Kind, len(t.Rows), t.CRS)
}
