package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

const (
	// CountryInfoFile is the geonames country table
	CountryInfoFile = "countryInfo.txt"
	// ShapesFile is the simplified country shapes collection
	ShapesFile = "shapes_simplified_low.json"
	// SnapshotExt marks a gob snapshot written by GobDump
	SnapshotExt = ".gob.gz"
)

// Provider hands out the base tables. A nil table with a nil error means the
// dataset is not available.
type Provider interface {
	Countries() (*Table, error)
	Shapes() (map[string]orb.Geometry, error)
	Settlements(name string) (*Table, error)
	Postals(country string) (*Table, error)
	Geonames(country string) (*Table, error)
}

// Dir reads the geonames dumps from one directory:
//
//	countryInfo.txt
//	shapes_simplified_low.json
//	<cities>.txt or <cities>.gob.gz
//	postal/<CC>.txt
//	geonames/<CC>.txt
type Dir struct {
	Root string
}

var _ Provider = Dir{}

func (d Dir) path(parts ...string) string {
	return filepath.Join(append([]string{d.Root}, parts...)...)
}

func (d Dir) open(name string, parse func(io.Reader) (*Table, error)) (*Table, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("file", name).Msg("Dataset not available")
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	t, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", name, err)
	}
	log.Debug().Str("file", name).Int("rows", t.Len()).Msg("Dataset loaded")
	return t, nil
}

// Countries reads countryInfo.txt
func (d Dir) Countries() (*Table, error) {
	return d.open(d.path(CountryInfoFile), ReadCountryInfo)
}

// Shapes reads the country shapes, nil when absent
func (d Dir) Shapes() (map[string]orb.Geometry, error) {
	name := d.path(ShapesFile)
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	shapes, err := ReadShapes(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", name, err)
	}
	return shapes, nil
}

// Settlements prefers a snapshot over the raw dump
func (d Dir) Settlements(name string) (*Table, error) {
	snap := d.path(name + SnapshotExt)
	if _, err := os.Stat(snap); err == nil {
		var t Table
		if err := GobLoad(snap, &t); err != nil {
			return nil, err
		}
		return &t, nil
	}
	return d.open(d.path(name+".txt"), func(r io.Reader) (*Table, error) {
		return ReadGeonames(r, Settlements)
	})
}

// Postals reads postal/<CC>.txt
func (d Dir) Postals(country string) (*Table, error) {
	return d.open(d.path("postal", strings.ToUpper(country)+".txt"), ReadPostals)
}

// Geonames reads geonames/<CC>.txt
func (d Dir) Geonames(country string) (*Table, error) {
	return d.open(d.path("geonames", strings.ToUpper(country)+".txt"), func(r io.Reader) (*Table, error) {
		return ReadGeonames(r, Geonames)
	})
}
