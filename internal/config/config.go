// Package config loads the YAML settings shared by the commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	territories "github.com/paulstuart/go-territories"
	"github.com/paulstuart/go-territories/crs"
)

// Config represents the configuration file
type Config struct {
	DataDir   string   `yaml:"data_dir"`
	Cities    string   `yaml:"cities,omitempty"`
	CRS       string   `yaml:"crs,omitempty"`
	Radius    float64  `yaml:"radius,omitempty"`
	Datasets  Datasets `yaml:"datasets"`
	Overpass  Overpass `yaml:"overpass,omitempty"`
	GeoIPFile string   `yaml:"geoip,omitempty"`
}

// Datasets toggles the optional sources, all enabled when omitted
type Datasets struct {
	Shapes   *bool `yaml:"shapes,omitempty"`
	Cities   *bool `yaml:"cities,omitempty"`
	Postals  *bool `yaml:"postals,omitempty"`
	Geonames *bool `yaml:"geonames,omitempty"`
}

// Overpass is the map feature service
type Overpass struct {
	URL     string        `yaml:"url,omitempty"`
	Rate    float64       `yaml:"rate,omitempty"` // requests per second
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Default is used when no file is given
func Default() *Config {
	return &Config{DataDir: "data"}
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	if cfg.CRS != "" && !crs.Known(cfg.CRS) {
		return nil, fmt.Errorf("%s: %w: %q", path, crs.ErrUnknownCRS, cfg.CRS)
	}
	return cfg, nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}

// World converts the file settings into a territories configuration
func (c *Config) World() territories.Config {
	w := territories.DefaultConfig()
	if c.Cities != "" {
		w.CitiesFile = c.Cities
	}
	if c.CRS != "" {
		w.CRS = crs.Normalize(c.CRS)
	}
	if c.Radius > 0 {
		w.Radius = c.Radius
	}
	w.WithShapes = enabled(c.Datasets.Shapes)
	w.WithCities = enabled(c.Datasets.Cities)
	w.WithPostals = enabled(c.Datasets.Postals)
	w.WithGeonames = enabled(c.Datasets.Geonames)
	return w
}
