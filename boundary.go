package territories

import (
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/geom"
)

/*
	Boundary strategy

	world       the whole globe, geographic
	continent   union of its countries' boundaries, box is their envelope
	country     convex hull of each part of its shape, box is the minimum
	            rotated rectangle of all hull vertices
	below       hull of the node's settlements buffered by the radius, box is
	            the minimum rotated rectangle of that buffered again
	settlement  a point, no boundary and no box

	A continent or country without a shape falls back on its settlements.
	The box always covers the boundary so it can reject points on its own.
*/

type bounds struct {
	bnd *geom.Shape
	box *geom.Region
	geo orb.Bound // geographic envelope used for the bbox text
}

func (n *Node) bounds() (*bounds, error) {
	return n.bnds.get(n.loadBounds)
}

// Boundary is the precise shape, nil when the node has no data to build one
func (n *Node) Boundary() (*geom.Shape, error) {
	b, err := n.bounds()
	if err != nil {
		return nil, err
	}
	return b.bnd, nil
}

// BoundingRegion is the cheap superset of the boundary
func (n *Node) BoundingRegion() (*geom.Region, error) {
	b, err := n.bounds()
	if err != nil {
		return nil, err
	}
	return b.box, nil
}

// BBox is the geographic envelope as "south, west, north, east", empty when unknown
func (n *Node) BBox() (string, error) {
	b, err := n.bounds()
	if err != nil || b.geo == (orb.Bound{}) {
		return "", err
	}
	return geom.BBoxText(b.geo), nil
}

func (n *Node) loadBounds() (*bounds, error) {
	switch n.variant {
	case VariantWorld:
		ring := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}.ToRing()
		return newBounds(geom.NewShape(crs.WGS84, ring), geom.NewRegion(crs.WGS84, ring))
	case VariantContinent:
		return n.continentBounds()
	case VariantCountry:
		shape, err := n.env.shape(n.table.Get(n.row, "geonameid"))
		if err != nil {
			return nil, err
		}
		if shape == nil {
			log.Debug().Object("node", n).Msg("No shape, bounding from settlements")
			return n.settlementBounds(n.env.cfg.Radius)
		}
		bnd := geom.HullShape(crs.WGS84, shape)
		return newBounds(bnd, geom.NewRegion(crs.WGS84, geom.MinRotatedRectangle(bnd.Vertices())))
	case VariantSettlement:
		p, ok := n.Location()
		if !ok {
			return &bounds{}, nil
		}
		disc := geom.Buffer([]orb.Point{p.Orb()}, n.env.cfg.Radius, geom.BoxSegments)
		env, err := geom.GeographicBound(disc, p.CRS)
		if err != nil {
			return nil, err
		}
		return &bounds{geo: env}, nil
	default:
		return n.settlementBounds(n.env.cfg.Radius)
	}
}

func newBounds(bnd *geom.Shape, box *geom.Region) (*bounds, error) {
	b := &bounds{bnd: bnd, box: box}
	if bnd.Empty() {
		return b, nil
	}
	env, err := geom.GeographicBound(bnd.Vertices(), bnd.CRS)
	if err != nil {
		return nil, err
	}
	b.geo = env
	return b, nil
}

func (n *Node) continentBounds() (*bounds, error) {
	countries, err := n.Children()
	if err != nil {
		return nil, err
	}
	var parts []*geom.Shape
	for _, c := range countries {
		bnd, err := c.Boundary()
		if err != nil {
			return nil, err
		}
		if bnd.Empty() {
			continue
		}
		bnd, err = bnd.Transform(crs.WGS84)
		if err != nil {
			return nil, err
		}
		parts = append(parts, bnd)
	}
	if len(parts) == 0 {
		// no shapes at all, the bare settlements will do
		return n.settlementBounds(0)
	}
	bnd, err := geom.Union(parts...)
	if err != nil {
		return nil, err
	}
	return newBounds(bnd, geom.NewRegion(crs.WGS84, geom.Envelope(bnd.Vertices())))
}

// settlementBounds hulls the node's settlements. With a radius the hull is
// buffered and so is its rotated rectangle, without one the box is the envelope.
func (n *Node) settlementBounds(radius float64) (*bounds, error) {
	t, err := n.settlements.Materialize()
	if err != nil {
		return nil, err
	}
	pts := t.Points()
	if len(pts) == 0 {
		return &bounds{}, nil
	}
	if radius <= 0 {
		return newBounds(
			geom.NewShape(t.CRS, geom.ConvexHull(pts)),
			geom.NewRegion(t.CRS, geom.Envelope(pts)),
		)
	}
	hull := geom.Buffer(pts, radius, geom.BoxSegments)
	box := geom.Buffer(geom.MinRotatedRectangle(hull), radius, geom.BoxSegments)
	return newBounds(geom.NewShape(t.CRS, hull), geom.NewRegion(t.CRS, box))
}

// Contains reports whether the point falls in the node's box and, unless
// onlyBox is set, in its boundary too. The point is reprojected as needed.
func (n *Node) Contains(p crs.Point, onlyBox bool) (bool, error) {
	b, err := n.bounds()
	if err != nil || b.box == nil {
		return false, err
	}
	in, err := b.box.ContainsPoint(p)
	if err != nil || !in || onlyBox {
		return in, err
	}
	if b.bnd.Empty() {
		return true, nil
	}
	return b.bnd.ContainsPoint(p)
}
