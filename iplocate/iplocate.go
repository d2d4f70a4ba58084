// Package iplocate maps GeoIP2 / GeoLite2 city records onto the territory hierarchy.
package iplocate

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"

	territories "github.com/paulstuart/go-territories"
	"github.com/paulstuart/go-territories/crs"
)

// ErrNotFound is returned for addresses the database cannot place
var ErrNotFound = errors.New("address not located")

// Lookup is the part of *geoip2.Reader the resolver needs
type Lookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Resolver places IP addresses in a World
type Resolver struct {
	db    Lookup
	world *territories.World
	close func() error
}

// New wraps an open database
func New(db Lookup, world *territories.World) *Resolver {
	return &Resolver{db: db, world: world}
}

// Open reads a GeoIP2 or GeoLite2 City database
func Open(filename string, world *territories.World) (*Resolver, error) {
	db, err := geoip2.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", filename, err)
	}
	r := New(db, world)
	r.close = db.Close
	return r, nil
}

// Close releases the database when the resolver opened it
func (r *Resolver) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func (r *Resolver) lookup(ip net.IP) (*geoip2.City, error) {
	if ip == nil {
		return nil, fmt.Errorf("%w: invalid address", ErrNotFound)
	}
	rec, err := r.db.City(ip)
	if err != nil {
		return nil, err
	}
	if rec.Country.IsoCode == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ip)
	}
	return rec, nil
}

// Country of the address
func (r *Resolver) Country(ip net.IP) (*territories.Node, error) {
	rec, err := r.lookup(ip)
	if err != nil {
		return nil, err
	}
	return r.country(rec)
}

func (r *Resolver) country(rec *geoip2.City) (*territories.Node, error) {
	if rec.Continent.Code != "" {
		if continent, err := r.world.Child(rec.Continent.Code); err == nil {
			if c, err := continent.Child(rec.Country.IsoCode); err == nil {
				return c, nil
			}
		}
	}
	return r.world.Country(rec.Country.IsoCode)
}

// Settlement walks down the record's subdivisions by name and looks the city
// up, by name and postal code, in the deepest territory reached
func (r *Resolver) Settlement(ip net.IP) ([]*territories.Node, error) {
	rec, err := r.lookup(ip)
	if err != nil {
		return nil, err
	}
	cur, err := r.country(rec)
	if err != nil {
		return nil, err
	}
	for _, sub := range rec.Subdivisions {
		next, err := childNamed(cur, sub.Names["en"])
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		cur = next
	}
	log.Debug().
		Str("ip", ip.String()).
		Object("territory", cur).
		Str("city", rec.City.Names["en"]).
		Str("postal", rec.Postal.Code).
		Msg("Address resolved")
	return cur.LocateSettlement(rec.City.Names["en"], rec.Postal.Code)
}

// Point is the location reported for the address
func (r *Resolver) Point(ip net.IP) (crs.Point, error) {
	rec, err := r.lookup(ip)
	if err != nil {
		return crs.Point{}, err
	}
	return crs.Geographic(rec.Location.Longitude, rec.Location.Latitude), nil
}

func childNamed(n *territories.Node, name string) (*territories.Node, error) {
	if name == "" {
		return nil, nil
	}
	kids, err := n.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range kids {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, nil
}
