// Package crs converts coordinates between coordinate reference systems.
//
// Every registered system is defined by a forward / inverse pair against
// geographic WGS84 longitude and latitude, so any two registered systems can
// be bridged through geographic coordinates. Projected systems come from the
// github.com/wroge/wgs84 EPSG repository, which also serves any EPSG code it
// knows that was not registered up front. The datum of every registered
// system is treated as WGS84 compatible (RGF93 and ETRS89 differ from it by
// less than a metre).
package crs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// WGS84 is the geographic system used by every source table
	WGS84 = "EPSG:4326"
	// Lambert93 is the French metric projection and the default for countries
	Lambert93 = "EPSG:2154"
	// WebMercator is the spherical mercator used by web maps
	WebMercator = "EPSG:3857"
)

// ErrUnknownCRS is returned when an identifier has no registered projection
var ErrUnknownCRS = errors.New("unknown crs")

// Projection maps geographic degrees to the system's planar coordinates and back
type Projection interface {
	Forward(lon, lat float64) (x, y float64)
	Inverse(x, y float64) (lon, lat float64)
}

// Point is a coordinate pair tagged with the system it is expressed in
type Point struct {
	X   float64
	Y   float64
	CRS string
}

// Geographic returns a WGS84 point for the given longitude and latitude
func Geographic(lon, lat float64) Point {
	return Point{X: lon, Y: lat, CRS: WGS84}
}

// Orb returns the bare coordinates
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// String implements fmt.Stringer
func (p Point) String() string {
	return fmt.Sprintf("(%f, %f %s)", p.X, p.Y, p.CRS)
}

// To is shorthand for ToCRS(p, dest)
func (p Point) To(dest string) (Point, error) {
	return ToCRS(p, dest)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Projection{}
)

// Normalize canonicalizes an identifier, "epsg:2154" and "EPSG:2154" are the same system
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Register adds or replaces the projection for an identifier
func Register(code string, p Projection) {
	registryMu.Lock()
	registry[Normalize(code)] = p
	registryMu.Unlock()
}

// Known reports whether the identifier has a registered projection
func Known(code string) bool {
	_, err := lookup(code)
	return err == nil
}

func lookup(code string) (Projection, error) {
	code = Normalize(code)
	registryMu.RLock()
	p, ok := registry[code]
	registryMu.RUnlock()
	if ok {
		return p, nil
	}
	if p, ok = fromEPSG(code); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, code)
	}
	Register(code, p)
	return p, nil
}

// Same reports whether both identifiers name the same system
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Projector returns a function moving points from src to dst.
// Both identifiers must be registered, even when they are the same.
func Projector(src, dst string) (orb.Projection, error) {
	from, err := lookup(src)
	if err != nil {
		return nil, err
	}
	to, err := lookup(dst)
	if err != nil {
		return nil, err
	}
	if Same(src, dst) {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	return func(p orb.Point) orb.Point {
		lon, lat := from.Inverse(p[0], p[1])
		x, y := to.Forward(lon, lat)
		return orb.Point{x, y}
	}, nil
}

// ToCRS reprojects a point into dest. A point already in dest is returned as a copy.
func ToCRS(p Point, dest string) (Point, error) {
	proj, err := Projector(p.CRS, dest)
	if err != nil {
		return Point{}, err
	}
	q := proj(p.Orb())
	return Point{X: q[0], Y: q[1], CRS: Normalize(dest)}, nil
}

// Transform reprojects any orb geometry from src into dst.
// The input is never modified; the result is always a fresh copy.
func Transform(g orb.Geometry, src, dst string) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	proj, err := Projector(src, dst)
	if err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), proj), nil
}

// Ring is Transform for rings
func Ring(r orb.Ring, src, dst string) (orb.Ring, error) {
	g, err := Transform(r, src, dst)
	if err != nil || g == nil {
		return nil, err
	}
	return g.(orb.Ring), nil
}
