// Package search implements the two queries every territory answers over its
// datasets: approximate name lookup and radius lookup around a point.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/paulmach/orb/planar"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/geom"
)

// Prefilter narrows the rows before a search: a case insensitive substring
// of Column, or a regular expression when Regex is set
type Prefilter struct {
	Column  string
	Pattern string
	Regex   bool
}

// Where is a substring prefilter
func Where(column, pattern string) Prefilter {
	return Prefilter{Column: column, Pattern: pattern}
}

// Match is a name search result
type Match struct {
	Row        dataset.Row
	Name       string
	Similarity float64
}

// Hit is a radius search result, Distance is in table CRS units
type Hit struct {
	Row      dataset.Row
	Distance float64
}

type matcher func(string) bool

func (p Prefilter) compile() (matcher, error) {
	if p.Regex {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("prefilter %s: %w", p.Column, err)
		}
		return re.MatchString, nil
	}
	want := strings.ToLower(p.Pattern)
	return func(v string) bool {
		return strings.Contains(strings.ToLower(v), want)
	}, nil
}

// Apply runs the prefilters in order, stopping as soon as nothing is left
func Apply(t *dataset.Table, prefilters ...Prefilter) (*dataset.Table, error) {
	for _, p := range prefilters {
		if t.Len() == 0 {
			return t, nil
		}
		match, err := p.compile()
		if err != nil {
			return nil, err
		}
		src, column := t, p.Column
		t = src.Where(func(r dataset.Row) bool {
			return match(src.Get(r, column))
		})
	}
	return t, nil
}

func chars(s string) []string {
	return strings.Split(s, "")
}

// Similarity is the Ratcliff/Obershelp ratio of two names, 1 only when they are equal
func Similarity(candidate, query string) float64 {
	return difflib.NewMatcher(chars(candidate), chars(query)).Ratio()
}

// Name finds the distinct name closest to query and returns every row carrying it.
// Ties between names go to the lexicographically greater one.
func Name(t *dataset.Table, query string, prefilters ...Prefilter) ([]Match, error) {
	if query == "" || t.Len() == 0 {
		return nil, nil
	}
	t, err := Apply(t, prefilters...)
	if err != nil || t.Len() == 0 {
		return nil, err
	}

	best, bestScore := "", -1.0
	seen := make(map[string]struct{})
	q := chars(query)
	m := difflib.NewMatcher(nil, q)
	for _, r := range t.Rows {
		name := t.Name(r)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		m.SetSeq1(chars(name))
		score := m.Ratio()
		if score > bestScore || (score == bestScore && name > best) {
			best, bestScore = name, score
		}
	}

	var out []Match
	for _, r := range t.Rows {
		if t.Name(r) == best {
			out = append(out, Match{Row: r, Name: best, Similarity: bestScore})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// Radius returns the rows within radius of p, nearest first. The radius is in
// the units of the table CRS; the point is reprojected into it first.
func Radius(t *dataset.Table, p crs.Point, radius float64, prefilters ...Prefilter) ([]Hit, error) {
	if t.Len() == 0 || !t.Schema.Located() || radius < 0 {
		return nil, nil
	}
	at, err := crs.ToCRS(p, t.CRS)
	if err != nil {
		return nil, err
	}
	center := at.Orb()

	disc := geom.Disc(center, radius)
	var rows []dataset.Row
	t.Near(disc.Bound(), func(r dataset.Row) bool {
		if radius == 0 {
			if r.Point.Equal(center) {
				rows = append(rows, r)
			}
			return true
		}
		if planar.RingContains(disc, r.Point) {
			rows = append(rows, r)
		}
		return true
	})

	found := dataset.NewTable(t.Kind, t.CRS, t.Schema, rows)
	found, err = Apply(found, prefilters...)
	if err != nil || found.Len() == 0 {
		return nil, err
	}

	hits := make([]Hit, found.Len())
	for i, r := range found.Rows {
		hits[i] = Hit{Row: r, Distance: planar.Distance(center, r.Point)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Row.ID < hits[j].Row.ID
	})
	return hits, nil
}
