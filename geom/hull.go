// Package geom holds the handful of planar operations the territory index needs:
// convex hulls, minimum rotated rectangles, convex buffers and containment.
//
// Nothing here knows about coordinate systems; callers keep every input of an
// operation in one system (see Shape.CRS and Region.CRS).
package geom

import (
	"github.com/paulmach/orb"
	sf "github.com/peterstace/simplefeatures/geom"
)

func multiPoint(points []orb.Point) sf.Geometry {
	xys := make([]float64, 0, 2*len(points))
	for _, p := range points {
		xys = append(xys, p[0], p[1])
	}
	return sf.NewMultiPointXY(xys...).AsGeometry()
}

// ring converts a point, segment or polygon result back into a closed,
// counter-clockwise orb ring
func ring(g sf.Geometry) orb.Ring {
	if g.IsEmpty() {
		return nil
	}
	var out orb.Ring
	switch g.Type() {
	case sf.TypePoint:
		xy, _ := g.MustAsPoint().XY()
		p := orb.Point{xy.X, xy.Y}
		return orb.Ring{p, p}
	case sf.TypeLineString:
		seq := g.MustAsLineString().Coordinates()
		a, b := seq.GetXY(0), seq.GetXY(seq.Length()-1)
		return orb.Ring{{a.X, a.Y}, {b.X, b.Y}, {a.X, a.Y}}
	case sf.TypePolygon:
		seq := g.MustAsPolygon().ExteriorRing().Coordinates()
		out = make(orb.Ring, seq.Length())
		for i := range out {
			xy := seq.GetXY(i)
			out[i] = orb.Point{xy.X, xy.Y}
		}
	default:
		return nil
	}
	if out.Orientation() == orb.CW {
		out.Reverse()
	}
	return out
}

// ConvexHull returns the closed, counter-clockwise hull of the points.
// A single distinct point yields a one-point ring and collinear input a
// flat two-point ring running from its lowest point; no points yields nil.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) == 0 {
		return nil
	}
	return ring(multiPoint(points).ConvexHull())
}

// Vertices flattens rings into their points, closing points included
func Vertices(rings ...orb.Ring) []orb.Point {
	var n int
	for _, r := range rings {
		n += len(r)
	}
	out := make([]orb.Point, 0, n)
	for _, r := range rings {
		out = append(out, r...)
	}
	return out
}
