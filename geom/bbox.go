package geom

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/paulstuart/go-territories/crs"
)

// BBoxText formats a geographic envelope as "south, west, north, east",
// the order map feature services expect.
func BBoxText(b orb.Bound) string {
	return fmt.Sprintf("%.3f, %.3f, %.3f, %.3f", b.Min[1], b.Min[0], b.Max[1], b.Max[0])
}

// GeographicBound reprojects the points into WGS84 and returns their envelope
func GeographicBound(points []orb.Point, system string) (orb.Bound, error) {
	if len(points) == 0 {
		return orb.Bound{}, nil
	}
	g, err := crs.Transform(orb.MultiPoint(points), system, crs.WGS84)
	if err != nil {
		return orb.Bound{}, err
	}
	return g.Bound(), nil
}
