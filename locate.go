package territories

import (
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/rtree"

	"github.com/paulstuart/go-territories/crs"
)

/*
	Locate strategy

	Like a county lookup, the children whose bounding box holds the point are
	first drawn from an rtree of their box envelopes, then confirmed
	against their bounding regions. When more than one survives, the ones whose
	precise boundary also holds the point are tried first. Candidates are
	always visited in code order so the answer does not depend on map order.

	Envelopes are indexed in the system their box is drawn in, one rtree per
	system, and queried with the point reprojected into it. A straight box edge
	in a projected system is curved in degrees, so a geographic envelope of the
	corners would not cover the box.
*/

// childIndex maps a CRS to the rtree of the child boxes drawn in it
type childIndex map[string]*rtree.RTreeG[*Node]

// Locate returns the deepest node holding the point, nil when the node itself does not
func (n *Node) Locate(p crs.Point) (*Node, error) {
	in, err := n.Contains(p, true)
	if err != nil || !in {
		return nil, err
	}
	candidates, err := n.candidates(p)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		found, err := c.Locate(p)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return n, nil
}

func (n *Node) candidates(p crs.Point) ([]*Node, error) {
	idx, err := n.index.get(n.buildIndex)
	if err != nil || len(idx) == 0 {
		return nil, err
	}

	var hits []*Node
	for system, tr := range idx {
		q, err := crs.ToCRS(p, system)
		if err != nil {
			return nil, err
		}
		tr.Search(q.Orb(), q.Orb(), func(_, _ [2]float64, c *Node) bool {
			hits = append(hits, c)
			return true
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].code < hits[j].code })

	var inBox []*Node
	for _, c := range hits {
		in, err := c.Contains(p, true)
		if err != nil {
			return nil, err
		}
		if in {
			inBox = append(inBox, c)
		}
	}
	if len(inBox) < 2 {
		return inBox, nil
	}

	var confirmed, rest []*Node
	codes := make([]string, len(inBox))
	for i, c := range inBox {
		codes[i] = c.code
		in, err := c.Contains(p, false)
		if err != nil {
			return nil, err
		}
		if in {
			confirmed = append(confirmed, c)
		} else {
			rest = append(rest, c)
		}
	}
	log.Warn().
		Object("node", n).
		Strs("overlapping", codes).
		Str("point", p.String()).
		Msg("Children overlap")
	return append(confirmed, rest...), nil
}

// buildIndex loads every child's geometry; settlements have none and stay out
func (n *Node) buildIndex() (childIndex, error) {
	idx := make(childIndex)
	kids, err := n.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range kids {
		if c.variant == VariantSettlement {
			continue
		}
		box, err := c.BoundingRegion()
		if err != nil {
			return nil, err
		}
		if box == nil || len(box.Ring) == 0 {
			continue
		}
		tr, ok := idx[box.CRS]
		if !ok {
			tr = &rtree.RTreeG[*Node]{}
			idx[box.CRS] = tr
		}
		env := box.Bound()
		tr.Insert(env.Min, env.Max, c)
	}
	return idx, nil
}
