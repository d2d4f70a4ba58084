package geom

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// BoxSegments is the quarter circle resolution of bounding region buffers
	BoxSegments = 4
	// DiscSegments is the quarter circle resolution of radius search discs
	DiscSegments = 16
)

// Buffer grows the convex hull of the points by dist, approximating each
// rounded corner with quadSegs segments per quarter circle. The result is the
// hull of circles centred on every vertex, which is exact for convex input.
// A non-positive dist returns the hull itself.
func Buffer(points []orb.Point, dist float64, quadSegs int) orb.Ring {
	if dist <= 0 || len(points) == 0 {
		return ConvexHull(points)
	}
	if quadSegs < 1 {
		quadSegs = 1
	}
	hull := ConvexHull(points)
	n := 4 * quadSegs
	step := 2 * math.Pi / float64(n)
	around := make([]orb.Point, 0, len(hull)*n)
	for _, v := range hull {
		for i := 0; i < n; i++ {
			a := float64(i) * step
			around = append(around, orb.Point{v[0] + dist*math.Cos(a), v[1] + dist*math.Sin(a)})
		}
	}
	return ConvexHull(around)
}

// Disc is the buffered point used by radius searches
func Disc(center orb.Point, radius float64) orb.Ring {
	return Buffer([]orb.Point{center}, radius, DiscSegments)
}
