package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/paulstuart/go-territories/crs"
)

// GeonamesColumns is the layout of the geonames dumps (cities*.txt, <CC>.txt)
var GeonamesColumns = []string{
	"geonameid", "name", "asciiname", "alternatenames", "latitude", "longitude",
	"featureclass", "featurecode", "countrycode", "cc2",
	"admin1code", "admin2code", "admin3code", "admin4code",
	"population", "elevation", "dem", "timezone", "modificationdate",
}

// PostalColumns is the layout of the geonames postal code dumps
var PostalColumns = []string{
	"country_code", "postal_code", "place_name",
	"state_name", "state_code", "county_name", "county_code",
	"community_name", "community_code", "latitude", "longitude", "accuracy",
}

// CountryColumns is the layout of countryInfo.txt
var CountryColumns = []string{
	"ISO", "ISO3", "ISO-Numeric", "fips", "Country", "Capital", "Area", "Population",
	"Continent", "tld", "CurrencyCode", "CurrencyName", "Phone",
	"PostalCodeFormat", "PostalCodeRegex", "Languages", "geonameid", "neighbours", "EquivalentFipsCode",
}

// GeonamesSchema describes settlement and named place tables
func GeonamesSchema() *Schema {
	return &Schema{Columns: GeonamesColumns, Name: "name", Lon: "longitude", Lat: "latitude"}
}

// PostalSchema describes postal code tables
func PostalSchema() *Schema {
	return &Schema{Columns: PostalColumns, Name: "place_name", Lon: "longitude", Lat: "latitude"}
}

// CountrySchema describes the country table
func CountrySchema() *Schema {
	return &Schema{Columns: CountryColumns, Name: "Country"}
}

// maximum line length, some alternatenames run long
const maxLine = 4 << 20

func readTSV(r io.Reader, kind Kind, schema *Schema) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	width := len(schema.Columns)
	lonCol, latCol := schema.Col(schema.Lon), schema.Col(schema.Lat)
	var rows []Row
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		switch {
		case len(fields) > width:
			fields = fields[:width]
		case len(fields) < width:
			fields = append(fields, make([]string, width-len(fields))...)
		}
		row := Row{ID: len(rows), Values: fields}
		if schema.Located() {
			lon, err := strconv.ParseFloat(strings.TrimSpace(fields[lonCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad longitude: %w", kind, line, err)
			}
			lat, err := strconv.ParseFloat(strings.TrimSpace(fields[latCol]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad latitude: %w", kind, line, err)
			}
			row.Point = orb.Point{lon, lat}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", kind, err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return NewTable(kind, crs.WGS84, schema, rows), nil
}

// ReadGeonames parses a geonames dump. kind is Settlements or Geonames.
func ReadGeonames(r io.Reader, kind Kind) (*Table, error) {
	return readTSV(r, kind, GeonamesSchema())
}

// ReadPostals parses a geonames postal code dump
func ReadPostals(r io.Reader) (*Table, error) {
	return readTSV(r, Postals, PostalSchema())
}

// ReadCountryInfo parses countryInfo.txt, skipping its comment header
func ReadCountryInfo(r io.Reader) (*Table, error) {
	return readTSV(r, Countries, CountrySchema())
}

// ReadShapes parses the geonames country shapes collection, keyed by geonameid
func ReadShapes(r io.Reader) (map[string]orb.Geometry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("shapes: %w", err)
	}
	shapes := make(map[string]orb.Geometry, len(fc.Features))
	for i, f := range fc.Features {
		id := geonameID(f.Properties["geoNameId"])
		if id == "" {
			return nil, fmt.Errorf("shape %d/%d has no geoNameId", i+1, len(fc.Features))
		}
		shapes[id] = f.Geometry
	}
	return shapes, nil
}

func geonameID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
