package territories

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/search"
)

// World is the root of the hierarchy. It embeds its Node, so every node
// operation is available on it.
type World struct {
	*Node
}

// NewWorld reads the country table and declares the continents.
// Everything else is loaded on demand.
func NewWorld(provider dataset.Provider, cfg Config) (*World, error) {
	cfg = cfg.withDefaults()
	if !crs.Known(cfg.CRS) {
		return nil, fmt.Errorf("world projection: %w: %q", crs.ErrUnknownCRS, cfg.CRS)
	}
	countries, err := provider.Countries()
	if err != nil {
		return nil, fmt.Errorf("failed to load countries -- %w", err)
	}
	if countries == nil {
		countries = dataset.NewTable(dataset.Countries, crs.WGS84, dataset.CountrySchema(), nil)
	}

	e := &env{cfg: cfg, provider: provider, countries: countries}
	root := &Node{variant: VariantWorld, code: "world", crs: crs.WGS84, env: e}
	root.settlements = dataset.Derive(dataset.SourceFunc(e.loadSettlements), crs.WGS84)

	continents, err := root.Children()
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("countries", countries.Len()).
		Int("continents", len(continents)).
		Str("crs", cfg.CRS).
		Msg("World ready")
	return &World{Node: root}, nil
}

// Continents in code order
func (w *World) Continents() ([]*Node, error) {
	return w.Children()
}

// Country by ISO code
func (w *World) Country(code string) (*Node, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	r, ok := w.env.countries.First("ISO", code)
	if !ok {
		return nil, fmt.Errorf("country %q: %w", code, ErrCodeNotFound)
	}
	continent, err := w.Child(w.env.countries.Get(r, "Continent"))
	if err != nil {
		return nil, err
	}
	return continent.Child(code)
}

// Countries of every continent, in continent then code order
func (w *World) Countries() ([]*Node, error) {
	continents, err := w.Children()
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, c := range continents {
		countries, err := c.Children()
		if err != nil {
			return nil, err
		}
		out = append(out, countries...)
	}
	return out, nil
}

// CountryByName returns the country whose name is closest to name
func (w *World) CountryByName(name string) (*Node, error) {
	matches, err := search.Name(w.env.countries, name)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return w.Country(w.env.countries.Get(matches[0].Row, "ISO"))
}

// LocateCountry returns the code of the first country whose boundary holds
// the point, empty when none does
func (w *World) LocateCountry(p crs.Point) (string, error) {
	continents, err := w.Children()
	if err != nil {
		return "", err
	}
	for _, continent := range continents {
		in, err := continent.Contains(p, true)
		if err != nil {
			return "", err
		}
		if !in {
			continue
		}
		countries, err := continent.Children()
		if err != nil {
			return "", err
		}
		for _, c := range countries {
			in, err := c.Contains(p, false)
			if err != nil {
				return "", err
			}
			if in {
				return c.code, nil
			}
		}
	}
	return "", nil
}

// Registry hands out one World per configuration
type Registry struct {
	provider dataset.Provider

	mu     sync.Mutex
	worlds sync.Map // Config -> *World
}

// NewRegistry builds worlds from the given provider
func NewRegistry(provider dataset.Provider) *Registry {
	return &Registry{provider: provider}
}

// World returns the World for cfg, building it on first request
func (r *Registry) World(cfg Config) (*World, error) {
	cfg = cfg.withDefaults()
	if w, ok := r.worlds.Load(cfg); ok {
		return w.(*World), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.worlds.Load(cfg); ok {
		return w.(*World), nil
	}
	w, err := NewWorld(r.provider, cfg)
	if err != nil {
		return nil, err
	}
	r.worlds.Store(cfg, w)
	return w, nil
}
