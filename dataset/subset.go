package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrAmbiguousAdminMapping is reported when a subset had to fall back on the
// place name join and could not settle on a single administrative code
var ErrAmbiguousAdminMapping = errors.New("ambiguous admin mapping")

// Source is anything a subset can be derived from: a base *Table or another *Subset
type Source interface {
	Materialize() (*Table, error)
}

// SourceFunc adapts a loader to a Source. It is called on every Materialize,
// wrap it in a Subset to load once.
type SourceFunc func() (*Table, error)

// Materialize implements Source
func (f SourceFunc) Materialize() (*Table, error) {
	return f()
}

// NameJoin recovers the admin code of a postal subset from the names of the
// territory's own settlements, for countries whose postal and settlement codes disagree
type NameJoin struct {
	Places      Source // the territory's settlement subset
	PlaceColumn string // name column in Places
	Column      string // name column in the filtered source
}

// Subset is a lazily computed, cached filter of a source table reprojected into one CRS
type Subset struct {
	src     Source
	crs     string
	filters []Filter
	join    *NameJoin

	mu    sync.Mutex
	done  atomic.Bool
	table *Table
	err   error
	warn  error
}

// Derive declares a subset; nothing is filtered until Materialize is called.
// A nil src makes an unconfigured dataset.
func Derive(src Source, system string, filters ...Filter) *Subset {
	return &Subset{src: src, crs: system, filters: filters}
}

// WithNameJoin enables the name join fallback for filters matching nothing
func (s *Subset) WithNameJoin(j NameJoin) *Subset {
	s.join = &j
	return s
}

// Filters the subset applies
func (s *Subset) Filters() []Filter {
	return s.filters
}

// Materialize computes the subset once and caches it.
// A nil table means the dataset is not configured, an empty one that nothing matched.
func (s *Subset) Materialize() (*Table, error) {
	if s == nil {
		return nil, nil
	}
	if s.done.Load() {
		return s.table, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done.Load() {
		s.table, s.warn, s.err = s.compute()
		s.done.Store(true)
	}
	return s.table, s.err
}

// Warning is the non fatal problem met while materializing, if any
func (s *Subset) Warning() error {
	if s == nil || !s.done.Load() {
		return nil
	}
	return s.warn
}

// Invalidate drops the cached table so the next Materialize recomputes it
func (s *Subset) Invalidate() {
	s.mu.Lock()
	s.done.Store(false)
	s.table, s.err, s.warn = nil, nil, nil
	s.mu.Unlock()
}

// compute returns the table, a warning and an error
func (s *Subset) compute() (*Table, error, error) {
	if s.src == nil {
		return nil, nil, nil
	}
	t, err := s.src.Materialize()
	if err != nil || t == nil {
		return nil, nil, err
	}
	var warn error
	for _, f := range s.filters {
		next := f.Apply(t)
		if next.Len() == 0 && s.join != nil {
			next, warn = s.joinByName(t, f)
		}
		t = next
	}
	t, err = t.Reproject(s.crs)
	if err != nil {
		return nil, nil, err
	}
	return t, warn, nil
}

func (s *Subset) joinByName(t *Table, f Filter) (*Table, error) {
	empty := t.derive(nil)
	places, err := s.join.Places.Materialize()
	if err != nil || places.Len() == 0 {
		return empty, s.ambiguous(f, "no settlements to join")
	}
	names := make(map[string]struct{}, places.Len())
	for _, r := range places.Rows {
		names[places.Get(r, s.join.PlaceColumn)] = struct{}{}
	}
	counts := make(map[string]int)
	for _, r := range t.Rows {
		if _, ok := names[t.Get(r, s.join.Column)]; !ok {
			continue
		}
		if v := t.Get(r, f.Column); v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return empty, s.ambiguous(f, "no place name in common")
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > 1 && counts[values[0]] == counts[values[1]] {
		return empty, s.ambiguous(f, fmt.Sprintf("tie between %s", strings.Join(values[:2], " and ")))
	}
	log.Debug().
		Str("column", f.Column).
		Strs("wanted", f.Values).
		Str("joined", values[0]).
		Int("votes", counts[values[0]]).
		Msg("Admin code recovered by place name")
	return Eq(f.Column, values[0]).Apply(t), nil
}

func (s *Subset) ambiguous(f Filter, why string) error {
	err := fmt.Errorf("%w: %s %v: %s", ErrAmbiguousAdminMapping, f.Column, f.Values, why)
	log.Warn().Err(err).Str("column", f.Column).Strs("values", f.Values).Msg("Subset left empty")
	return err
}
