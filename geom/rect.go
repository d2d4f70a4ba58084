package geom

import (
	"github.com/paulmach/orb"
	sf "github.com/peterstace/simplefeatures/geom"
)

// MinRotatedRectangle returns the smallest-area rectangle, in any orientation,
// enclosing the points (rotating calipers over the hull edges). Degenerate
// input falls back to the axis aligned envelope.
func MinRotatedRectangle(points []orb.Point) orb.Ring {
	if len(points) == 0 {
		return nil
	}
	rect := sf.RotatedMinimumAreaBoundingRectangle(multiPoint(points))
	if rect.Type() != sf.TypePolygon {
		return Envelope(ring(rect))
	}
	return ring(rect)
}

// Envelope is the axis aligned bounding rectangle of the points as a closed ring
func Envelope(points []orb.Point) orb.Ring {
	if len(points) == 0 {
		return nil
	}
	b := orb.MultiPoint(points).Bound()
	return b.ToRing()
}
