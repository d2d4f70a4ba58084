package dataset

import (
	"strconv"
	"strings"
)

// Filter keeps rows whose Column holds one of Values
type Filter struct {
	Column string
	Values []string
}

// Eq is a single valued filter
func Eq(column, value string) Filter {
	return Filter{Column: column, Values: []string{value}}
}

// Normalize canonicalizes a code so "42", "42.0" and "042" compare equal.
// Non numeric values are trimmed and lower cased.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.ToLower(v)
}

// Exact keeps the rows holding one of the values verbatim
func (f Filter) Exact(t *Table) *Table {
	if t == nil {
		return nil
	}
	i := t.Schema.Col(f.Column)
	want := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		want[v] = struct{}{}
	}
	return t.Where(func(r Row) bool {
		if i < 0 || i >= len(r.Values) {
			return false
		}
		_, ok := want[r.Values[i]]
		return ok
	})
}

func (f Filter) normalized(t *Table) *Table {
	i := t.Schema.Col(f.Column)
	want := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		want[Normalize(v)] = struct{}{}
	}
	return t.Where(func(r Row) bool {
		if i < 0 || i >= len(r.Values) {
			return false
		}
		_, ok := want[Normalize(r.Values[i])]
		return ok
	})
}

// Apply filters exactly first and falls back to normalized matching
func (f Filter) Apply(t *Table) *Table {
	if t == nil {
		return nil
	}
	out := f.Exact(t)
	if out.Len() == 0 {
		out = f.normalized(t)
	}
	return out
}
