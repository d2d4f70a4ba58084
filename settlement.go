package territories

import (
	"fmt"

	geo "github.com/kellydunn/golang-geo"
	"github.com/rs/zerolog/log"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/search"
)

// Around is a settlement found by LocateSettlementsAround, Distance in node CRS units
type Around struct {
	Distance float64
	Node     *Node
}

// Row backing a country or settlement node
func (n *Node) Row() (dataset.Row, bool) {
	return n.row, n.table != nil
}

// Location of a settlement node, in the CRS of the table it came from
func (n *Node) Location() (crs.Point, bool) {
	if n.table == nil || !n.table.Schema.Located() {
		return crs.Point{}, false
	}
	return crs.Point{X: n.row.Point[0], Y: n.row.Point[1], CRS: n.table.CRS}, true
}

// DistanceKm is the great circle distance between two located nodes
func (n *Node) DistanceKm(other *Node) (float64, error) {
	a, err := n.geographic()
	if err != nil {
		return 0, err
	}
	b, err := other.geographic()
	if err != nil {
		return 0, err
	}
	return a.GreatCircleDistance(b), nil
}

func (n *Node) geographic() (*geo.Point, error) {
	p, ok := n.Location()
	if !ok {
		return nil, fmt.Errorf("%s has no location", n)
	}
	q, err := crs.ToCRS(p, crs.WGS84)
	if err != nil {
		return nil, err
	}
	return geo.NewPoint(q.Y, q.X), nil
}

// place finds the node for a settlement row: the row's own node when it is
// one of a community's settlements, otherwise a settlement adopted by the
// deepest territory its codes lead to
func (n *Node) place(t *dataset.Table, r dataset.Row) *Node {
	cur := n
	for cur.variant < VariantCommunity {
		code := cur.childCode(t, r)
		if code == "" {
			break
		}
		next, err := cur.Child(code)
		if err != nil {
			break
		}
		cur = next
	}
	if cur.variant == VariantCommunity {
		if c, err := cur.Child(t.Get(r, "geonameid")); err == nil {
			return c
		}
	}
	return cur.adopt(t, r)
}

// childCode is the code of the child holding a settlement row
func (n *Node) childCode(t *dataset.Table, r dataset.Row) string {
	if n.variant == VariantWorld {
		country, ok := n.env.countries.First("ISO", t.Get(r, "countrycode"))
		if !ok {
			return ""
		}
		return n.env.countries.Get(country, "Continent")
	}
	return t.Get(r, capabilities[capabilities[n.variant].child].settlements)
}

// Capital is the settlement coded PPLC, nil when there is none
func (n *Node) Capital() (*Node, error) {
	t, err := n.settlements.Materialize()
	if err != nil {
		return nil, err
	}
	r, ok := t.First("featurecode", "PPLC")
	if !ok {
		return nil, nil
	}
	return n.place(t, r), nil
}

// LocateSettlementsAround wraps a radius search into settlement nodes
func (n *Node) LocateSettlementsAround(p crs.Point, radius float64, prefilters ...search.Prefilter) ([]Around, error) {
	t, err := n.settlements.Materialize()
	if err != nil {
		return nil, err
	}
	hits, err := search.Radius(t, p, radius, prefilters...)
	if err != nil {
		return nil, err
	}
	out := make([]Around, 0, len(hits))
	for _, h := range hits {
		out = append(out, Around{Distance: h.Distance, Node: n.place(t, h.Row)})
	}
	return out, nil
}

// LocateSettlement resolves a settlement by name, by postal code or both.
// A postal code supplies the name when none is given and restricts the search
// to its community. Populated places are searched in the settlement table
// first; the named place table is used when it holds a closer name.
func (n *Node) LocateSettlement(name, postalCode string) ([]*Node, error) {
	prefilters := []search.Prefilter{search.Where("featureclass", "P")}
	var within []dataset.Filter
	if postalCode != "" {
		postals, err := n.SearchPostalCode(postalCode)
		if err != nil {
			return nil, err
		}
		if postals.Len() > 0 {
			first := postals.Rows[0]
			if name == "" {
				name = postals.Get(first, "place_name")
			}
			if community := postals.Get(first, "community_code"); community != "" {
				within = append(within, dataset.Eq("admin3code", community))
			}
		}
	}
	if name == "" {
		return nil, nil
	}

	table, matches, err := bestMatches(n.settlements, name, within, prefilters)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 || matches[0].Similarity < 1 {
		gt, gm, err := bestMatches(n.geonames, name, within, prefilters)
		if err != nil {
			return nil, err
		}
		if len(gm) > 0 && (len(matches) == 0 || gm[0].Similarity > matches[0].Similarity) {
			log.Debug().Object("node", n).Str("name", name).Msg("Settlement found among named places")
			table, matches = gt, gm
		}
	}

	out := make([]*Node, 0, len(matches))
	for _, m := range matches {
		out = append(out, n.place(table, m.Row))
	}
	return out, nil
}

// bestMatches searches the subset rows kept by the within filters, which
// tolerate codes written as numbers
func bestMatches(s *dataset.Subset, name string, within []dataset.Filter, prefilters []search.Prefilter) (*dataset.Table, []search.Match, error) {
	t, err := s.Materialize()
	for _, f := range within {
		t = f.Apply(t)
	}
	if err != nil || t.Len() == 0 {
		return nil, nil, err
	}
	matches, err := search.Name(t, name, prefilters...)
	return t, matches, err
}
