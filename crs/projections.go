package crs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/wroge/wgs84"
)

// Geodetic is the identity projection of geographic longitude / latitude
type Geodetic struct{}

func (Geodetic) Forward(lon, lat float64) (float64, float64) { return lon, lat }
func (Geodetic) Inverse(x, y float64) (float64, float64)     { return x, y }

// Mercator is the spherical web mercator, delegated to orb
type Mercator struct{}

func (Mercator) Forward(lon, lat float64) (float64, float64) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1]
}

func (Mercator) Inverse(x, y float64) (float64, float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}

// System is a wgs84 reference system seen as a Projection. Heights are
// dropped: every point is taken on the ellipsoid.
type System struct {
	fwd, inv wgs84.Func
}

// NewSystem wraps a reference system of the wgs84 package
func NewSystem(ref wgs84.CoordinateReferenceSystem) *System {
	return &System{
		fwd: wgs84.Transform(wgs84.LonLat(), ref),
		inv: wgs84.Transform(ref, wgs84.LonLat()),
	}
}

func (s *System) Forward(lon, lat float64) (float64, float64) {
	x, y, _ := s.fwd(lon, lat, 0)
	return x, y
}

func (s *System) Inverse(x, y float64) (float64, float64) {
	lon, lat, _ := s.inv(x, y, 0)
	return lon, lat
}

var epsg = wgs84.EPSG()

// fromEPSG builds a projection for any planar or geographic system of the
// wgs84 EPSG repository, such as EPSG:27700 or EPSG:25832
func fromEPSG(code string) (Projection, bool) {
	num, ok := strings.CutPrefix(code, "EPSG:")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return nil, false
	}
	switch ref := epsg.Code(n).(type) {
	case wgs84.ProjectedReferenceSystem, wgs84.GeographicReferenceSystem:
		return NewSystem(ref), true
	default:
		return nil, false
	}
}

func init() {
	Register(WGS84, Geodetic{})
	Register("EPSG:4258", Geodetic{}) // ETRS89
	Register("EPSG:4171", Geodetic{}) // RGF93
	Register(WebMercator, Mercator{})
	Register(Lambert93, NewSystem(wgs84.RGF93FranceLambert()))
	for zone := 1; zone <= 60; zone++ {
		Register(fmt.Sprintf("EPSG:%d", 32600+zone), NewSystem(wgs84.UTM(float64(zone), true)))
		Register(fmt.Sprintf("EPSG:%d", 32700+zone), NewSystem(wgs84.UTM(float64(zone), false)))
	}
}
