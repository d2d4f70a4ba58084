// Package territories resolves coordinates and place names against the
// administrative hierarchy World > Continent > Country > Region > County >
// Community > Settlement.
//
// Every level is a Node tagged with its Variant. A node slices its parent's
// settlement, postal and named-place tables into its own subsets, and derives
// a precise boundary and a cheap bounding region from its shape or, lacking
// one, from its settlements. Everything is computed on first use and kept for
// the lifetime of the World.
package territories

import (
	"fmt"
	"sync"
	"weak"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
)

// Variant is the level of a node in the hierarchy
type Variant int

const (
	VariantWorld Variant = iota
	VariantContinent
	VariantCountry
	VariantRegion
	VariantCounty
	VariantCommunity
	VariantSettlement
)

var variantNames = [...]string{
	"world", "continent", "country", "region", "county", "community", "settlement",
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("variant(%d)", int(v))
	}
	return variantNames[v]
}

// capability is what a variant needs to slice its parent's datasets
type capability struct {
	child       Variant
	settlements string // settlement column holding the node code
	postals     string // postal column holding the node code
	geonames    string // named place column holding the node code
	alias       string // postal column holding the display name
	projected   bool   // subsets are kept in the configured CRS
}

var capabilities = map[Variant]capability{
	VariantWorld:      {child: VariantContinent},
	VariantContinent:  {child: VariantCountry, settlements: "countrycode"},
	VariantCountry:    {child: VariantRegion, settlements: "countrycode", projected: true},
	VariantRegion:     {child: VariantCounty, settlements: "admin1code", postals: "state_code", geonames: "admin1code", alias: "state_name", projected: true},
	VariantCounty:     {child: VariantCommunity, settlements: "admin2code", postals: "county_code", geonames: "admin2code", alias: "county_name", projected: true},
	VariantCommunity:  {child: VariantSettlement, settlements: "admin3code", postals: "community_code", geonames: "admin3code", alias: "community_name", projected: true},
	VariantSettlement: {projected: true},
}

var continentNames = map[string]string{
	"AF": "Africa",
	"AN": "Antarctica",
	"AS": "Asia",
	"EU": "Europe",
	"NA": "North America",
	"OC": "Oceania",
	"SA": "South America",
}

// env is shared by every node of a World
type env struct {
	cfg       Config
	provider  dataset.Provider
	countries *dataset.Table
	shapes    lazy[map[string]orb.Geometry]
}

func (e *env) loadSettlements() (*dataset.Table, error) {
	if !e.cfg.WithCities {
		return nil, nil
	}
	return e.provider.Settlements(e.cfg.CitiesFile)
}

func (e *env) shape(geonameid string) (orb.Geometry, error) {
	shapes, err := e.shapes.get(func() (map[string]orb.Geometry, error) {
		if !e.cfg.WithShapes {
			return nil, nil
		}
		return e.provider.Shapes()
	})
	if err != nil || shapes == nil {
		return nil, err
	}
	return shapes[geonameid], nil
}

// Node is one territory. Nodes are created by their parent and must not be
// copied.
type Node struct {
	variant Variant
	code    string
	crs     string
	env     *env
	parent  weak.Pointer[Node]

	// countries and settlements are backed by a single row
	table *dataset.Table
	row   dataset.Row

	settlements *dataset.Subset
	postals     *dataset.Subset
	geonames    *dataset.Subset

	name  lazy[string]
	bnds  lazy[*bounds]
	kids  lazy[*childSet]
	index lazy[childIndex]

	mu      sync.Mutex
	adopted map[string]*Node
}

// newChild declares a child node and its subsets; nothing is loaded yet
func (n *Node) newChild(v Variant, code string, t *dataset.Table, r dataset.Row) *Node {
	c := &Node{
		variant: v,
		code:    code,
		crs:     crs.WGS84,
		env:     n.env,
		parent:  weak.Make(n),
		table:   t,
		row:     r,
	}
	cp := capabilities[v]
	if cp.projected {
		c.crs = n.env.cfg.CRS
	}

	switch v {
	case VariantContinent:
		var codes []string
		for _, row := range n.env.countries.Rows {
			if n.env.countries.Get(row, "Continent") == code {
				codes = append(codes, n.env.countries.Get(row, "ISO"))
			}
		}
		c.settlements = dataset.Derive(n.settlements, c.crs, dataset.Filter{Column: cp.settlements, Values: codes})
	case VariantCountry:
		cfg, provider := n.env.cfg, n.env.provider
		c.settlements = dataset.Derive(n.settlements, c.crs, dataset.Eq(cp.settlements, code))
		if cfg.WithPostals {
			c.postals = dataset.Derive(dataset.SourceFunc(func() (*dataset.Table, error) {
				return provider.Postals(code)
			}), c.crs)
		}
		if cfg.WithGeonames {
			c.geonames = dataset.Derive(dataset.SourceFunc(func() (*dataset.Table, error) {
				return provider.Geonames(code)
			}), c.crs)
		}
	case VariantRegion, VariantCounty, VariantCommunity:
		c.settlements = dataset.Derive(n.settlements, c.crs, dataset.Eq(cp.settlements, code))
		if n.postals != nil {
			c.postals = dataset.Derive(n.postals, c.crs, dataset.Eq(cp.postals, code)).
				WithNameJoin(dataset.NameJoin{
					Places:      c.settlements,
					PlaceColumn: "name",
					Column:      "place_name",
				})
		}
		if n.geonames != nil {
			c.geonames = dataset.Derive(n.geonames, c.crs, dataset.Eq(cp.geonames, code))
		}
	case VariantSettlement:
		c.settlements, c.postals, c.geonames = n.settlements, n.postals, n.geonames
	}
	return c
}

// Variant of the node
func (n *Node) Variant() Variant { return n.variant }

// Code is unique among siblings
func (n *Node) Code() string { return n.code }

// CRS of the node's dataset subsets
func (n *Node) CRS() string { return n.crs }

// Config the node's World was built with
func (n *Node) Config() Config { return n.env.cfg }

// Parent is nil for the World, or once the World itself is gone
func (n *Node) Parent() *Node {
	return n.parent.Value()
}

// Ancestor walks up to the first node of the given variant, the node itself included
func (n *Node) Ancestor(v Variant) *Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.variant == v {
			return cur
		}
	}
	return nil
}

// Name is the display name: the postal alias for administrative levels,
// the country or settlement name, falling back to the code
func (n *Node) Name() string {
	name, _ := n.name.get(n.loadName)
	return name
}

func (n *Node) loadName() (string, error) {
	switch n.variant {
	case VariantWorld:
		return "World", nil
	case VariantContinent:
		if name, ok := continentNames[n.code]; ok {
			return name, nil
		}
	case VariantCountry, VariantSettlement:
		if name := n.table.Name(n.row); name != "" {
			return name, nil
		}
	default:
		alias := capabilities[n.variant].alias
		t, err := n.postals.Materialize()
		if err != nil {
			return n.code, err
		}
		if t != nil {
			for _, r := range t.Rows {
				if v := t.Get(r, alias); v != "" {
					return v, nil
				}
			}
		}
	}
	return n.code, nil
}

// Settlements is the node's slice of the settlement table
func (n *Node) Settlements() (*dataset.Table, error) {
	return n.settlements.Materialize()
}

// Postals is the node's slice of the postal table
func (n *Node) Postals() (*dataset.Table, error) {
	return n.postals.Materialize()
}

// Geonames is the node's slice of the named place table
func (n *Node) Geonames() (*dataset.Table, error) {
	return n.geonames.Materialize()
}

// SubsetWarnings returns the non fatal problems met while slicing the node's datasets
func (n *Node) SubsetWarnings() []error {
	var out []error
	for _, s := range []*dataset.Subset{n.settlements, n.postals, n.geonames} {
		if err := s.Warning(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Invalidate drops the node's cached subsets, name and geometry.
// Children are kept.
func (n *Node) Invalidate() {
	if n.variant != VariantSettlement {
		for _, s := range []*dataset.Subset{n.settlements, n.postals, n.geonames} {
			if s != nil {
				s.Invalidate()
			}
		}
	}
	n.name.reset()
	n.bnds.reset()
	n.index.reset()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %s", n.variant, n.code)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (n *Node) MarshalZerologObject(e *zerolog.Event) {
	e.Str("variant", n.variant.String()).Str("code", n.code)
}
