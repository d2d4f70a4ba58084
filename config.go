package territories

import (
	"github.com/paulstuart/go-territories/crs"
)

const (
	// DefaultCitiesFile is the geonames settlement dump loaded by default
	DefaultCitiesFile = "cities15000"
	// DefaultRadius is the buffer around settlements, in metres, used to
	// build sub-country boundaries and as the default search radius
	DefaultRadius = 10000.0
)

// Config selects the datasets a World is built from. It is comparable and
// used as the registry key.
type Config struct {
	CitiesFile   string
	WithShapes   bool
	WithCities   bool
	WithPostals  bool
	WithGeonames bool
	CRS          string // projected system for countries and below
	Radius       float64
}

// DefaultConfig loads every dataset and projects into Lambert-93
func DefaultConfig() Config {
	return Config{
		CitiesFile:   DefaultCitiesFile,
		WithShapes:   true,
		WithCities:   true,
		WithPostals:  true,
		WithGeonames: true,
		CRS:          crs.Lambert93,
		Radius:       DefaultRadius,
	}
}

func (c Config) withDefaults() Config {
	if c.CitiesFile == "" {
		c.CitiesFile = DefaultCitiesFile
	}
	if c.CRS == "" {
		c.CRS = crs.Lambert93
	}
	c.CRS = crs.Normalize(c.CRS)
	if c.Radius <= 0 {
		c.Radius = DefaultRadius
	}
	return c
}
