package geom

import (
	"fmt"

	geo "github.com/kellydunn/golang-geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/paulstuart/go-territories/crs"
)

/*
	Containment strategy

	A territory carries two geometries: a Region, the cheap superset used to
	reject points quickly, and a Shape, the precise union of rings used to
	confirm a hit. Regions are single rings tested with orb's planar ray cast
	(edges count as inside). Shapes may hold several disjoint parts and are
	tested part by part with golang-geo polygons, built once when the shape is
	created.
*/

// Shape is a union of rings expressed in one coordinate system
type Shape struct {
	CRS   string
	Parts []orb.Ring

	polys []*geo.Polygon
}

func toGeoPoly(ring orb.Ring) *geo.Polygon {
	points := make([]*geo.Point, len(ring))
	for i, pt := range ring {
		points[i] = geo.NewPoint(pt[1], pt[0])
	}
	return geo.NewPolygon(points)
}

// NewShape builds a shape from its parts
func NewShape(system string, parts ...orb.Ring) *Shape {
	s := &Shape{CRS: crs.Normalize(system)}
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		s.Parts = append(s.Parts, p)
		s.polys = append(s.polys, toGeoPoly(p))
	}
	return s
}

// HullShape explodes a geometry into its polygons and keeps the convex hull of each
func HullShape(system string, g orb.Geometry) *Shape {
	var parts []orb.Ring
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			parts = append(parts, ConvexHull(v[0]))
		}
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 {
				parts = append(parts, ConvexHull(p[0]))
			}
		}
	case orb.Ring:
		parts = append(parts, ConvexHull(v))
	case orb.Collection:
		for _, sub := range v {
			parts = append(parts, HullShape(system, sub).Parts...)
		}
	case nil:
	default:
		if b := g.Bound(); !b.IsEmpty() {
			parts = append(parts, ConvexHull(Vertices(b.ToRing())))
		}
	}
	return NewShape(system, parts...)
}

// Union merges shapes that share a coordinate system
func Union(shapes ...*Shape) (*Shape, error) {
	if len(shapes) == 0 {
		return nil, nil
	}
	var parts []orb.Ring
	system := ""
	for _, s := range shapes {
		if s == nil {
			continue
		}
		if system == "" {
			system = s.CRS
		} else if !crs.Same(system, s.CRS) {
			return nil, fmt.Errorf("union of %s and %s shapes", system, s.CRS)
		}
		parts = append(parts, s.Parts...)
	}
	if system == "" {
		return nil, nil
	}
	return NewShape(system, parts...), nil
}

// Empty is true for a nil shape or one with no parts
func (s *Shape) Empty() bool {
	return s == nil || len(s.Parts) == 0
}

// Contains tests a point already expressed in the shape's system
func (s *Shape) Contains(pt orb.Point) bool {
	if s.Empty() {
		return false
	}
	in := geo.NewPoint(pt[1], pt[0])
	for i, poly := range s.polys {
		if poly.Contains(in) {
			return true
		}
		// golang-geo is undecided on edges, orb counts them in
		if len(s.Parts[i]) > 0 && planar.RingContains(s.Parts[i], pt) {
			return true
		}
	}
	return false
}

// ContainsPoint reprojects the point first
func (s *Shape) ContainsPoint(p crs.Point) (bool, error) {
	if s.Empty() {
		return false, nil
	}
	q, err := crs.ToCRS(p, s.CRS)
	if err != nil {
		return false, err
	}
	return s.Contains(q.Orb()), nil
}

// Vertices of every part
func (s *Shape) Vertices() []orb.Point {
	if s == nil {
		return nil
	}
	return Vertices(s.Parts...)
}

// Bound is the envelope of all parts
func (s *Shape) Bound() orb.Bound {
	if s.Empty() {
		return orb.Bound{}
	}
	return orb.MultiPoint(s.Vertices()).Bound()
}

// Transform returns a copy of the shape in another system
func (s *Shape) Transform(system string) (*Shape, error) {
	if s == nil {
		return nil, nil
	}
	if crs.Same(s.CRS, system) {
		return s, nil
	}
	parts := make([]orb.Ring, len(s.Parts))
	for i, p := range s.Parts {
		r, err := crs.Ring(p, s.CRS, system)
		if err != nil {
			return nil, err
		}
		parts[i] = r
	}
	return NewShape(system, parts...), nil
}

// Region is a single ring used as a fast reject
type Region struct {
	CRS  string
	Ring orb.Ring
}

// NewRegion tags a ring with its system
func NewRegion(system string, ring orb.Ring) *Region {
	return &Region{CRS: crs.Normalize(system), Ring: ring}
}

// Contains tests a point already expressed in the region's system
func (r *Region) Contains(pt orb.Point) bool {
	if r == nil || len(r.Ring) == 0 {
		return false
	}
	return planar.RingContains(r.Ring, pt)
}

// ContainsPoint reprojects the point first
func (r *Region) ContainsPoint(p crs.Point) (bool, error) {
	if r == nil || len(r.Ring) == 0 {
		return false, nil
	}
	q, err := crs.ToCRS(p, r.CRS)
	if err != nil {
		return false, err
	}
	return r.Contains(q.Orb()), nil
}

// Bound is the envelope of the ring
func (r *Region) Bound() orb.Bound {
	if r == nil || len(r.Ring) == 0 {
		return orb.Bound{}
	}
	return r.Ring.Bound()
}

// Transform returns a copy of the region in another system
func (r *Region) Transform(system string) (*Region, error) {
	if r == nil {
		return nil, nil
	}
	if crs.Same(r.CRS, system) {
		return r, nil
	}
	ring, err := crs.Ring(r.Ring, r.CRS, system)
	if err != nil {
		return nil, err
	}
	return NewRegion(system, ring), nil
}
