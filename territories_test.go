package territories

import (
	"runtime"
	"strconv"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/search"
)

const (
	// Riorges, Loire
	RiorgesLon, RiorgesLat = 4.04255, 46.04378
	RiorgesID              = "2983489"
)

var riorges = crs.Geographic(RiorgesLon, RiorgesLat)

func fixtureConfig() Config {
	cfg := DefaultConfig()
	cfg.CitiesFile = "cities_fixture"
	return cfg
}

func newWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w, err := NewWorld(dataset.Dir{Root: "testdata"}, cfg)
	require.NoError(t, err)
	return w
}

func walk(t *testing.T, n *Node, path ...string) *Node {
	t.Helper()
	for _, code := range path {
		next, err := n.Child(code)
		require.NoError(t, err, "%s > %s", n, code)
		n = next
	}
	return n
}

// edited serves the fixtures with rewritten settlement or postal tables
type edited struct {
	dataset.Dir
	settlements func(*dataset.Table) *dataset.Table
	postals     func(*dataset.Table) *dataset.Table
}

func (e edited) Settlements(name string) (*dataset.Table, error) {
	t, err := e.Dir.Settlements(name)
	if err != nil || t == nil || e.settlements == nil {
		return t, err
	}
	return e.settlements(t), nil
}

func (e edited) Postals(country string) (*dataset.Table, error) {
	t, err := e.Dir.Postals(country)
	if err != nil || t == nil || e.postals == nil {
		return t, err
	}
	return e.postals(t), nil
}

// withSettlement appends a French settlement at lon, lat with the given admin codes
func withSettlement(tbl *dataset.Table, id, name string, lon, lat float64, admin ...string) *dataset.Table {
	tmpl, _ := tbl.First("countrycode", "FR")
	values := append([]string(nil), tmpl.Values...)
	set := func(column, v string) { values[tbl.Schema.Col(column)] = v }
	set("geonameid", id)
	set("name", name)
	set("asciiname", name)
	set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	for i, column := range []string{"admin1code", "admin2code", "admin3code"} {
		v := ""
		if i < len(admin) {
			v = admin[i]
		}
		set(column, v)
	}
	rows := append(append([]dataset.Row(nil), tbl.Rows...), dataset.Row{
		ID:     len(tbl.Rows),
		Values: values,
		Point:  orb.Point{lon, lat},
	})
	return dataset.NewTable(tbl.Kind, tbl.CRS, tbl.Schema, rows)
}

func matchNames(t *testing.T, tbl *dataset.Table, hits []search.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = tbl.Name(h.Row)
	}
	return out
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "county", VariantCounty.String())
	assert.Equal(t, "variant(42)", Variant(42).String())
}

func TestWorldContinents(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	continents, err := w.Continents()
	require.NoError(t, err)
	require.Len(t, continents, 2)
	assert.Equal(t, "AF", continents[0].Code())
	assert.Equal(t, "Europe", continents[1].Name())
	assert.Same(t, w.Node, continents[1].Parent())
	assert.Nil(t, w.Parent())
	assert.Equal(t, crs.WGS84, continents[1].CRS())

	bbox, err := w.BBox()
	require.NoError(t, err)
	assert.Equal(t, "-90.000, -180.000, 90.000, 180.000", bbox)
}

func TestCountry(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	fr, err := w.Country("fr")
	require.NoError(t, err)
	assert.Equal(t, "France", fr.Name())
	assert.Equal(t, VariantCountry, fr.Variant())
	assert.Equal(t, crs.Lambert93, fr.CRS())
	assert.Equal(t, "EU", fr.Parent().Code())

	again, err := w.CountryByName("Frence")
	require.NoError(t, err)
	assert.Same(t, fr, again)

	_, err = w.Country("ZZ")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = fr.Child("nowhere")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	regions, err := fr.Children()
	require.NoError(t, err)
	codes := make([]string, len(regions))
	for i, r := range regions {
		codes[i] = r.Code()
	}
	assert.Equal(t, []string{"11", "84", "93"}, codes)

	bbox, err := fr.BBox()
	require.NoError(t, err)
	assert.Equal(t, "42.300, -4.800, 51.100, 7.600", bbox)
	runtime.KeepAlive(w)
}

func TestLocate(t *testing.T) {
	w := newWorld(t, fixtureConfig())

	found, err := w.Locate(riorges)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, VariantCommunity, found.Variant())
	assert.Equal(t, "422", found.Code())
	assert.Equal(t, "Roanne", found.Name())
	assert.Equal(t, "42", found.Parent().Code())
	assert.Equal(t, "Loire", found.Parent().Name())
	assert.Equal(t, "84", found.Ancestor(VariantRegion).Code())
	assert.Equal(t, "FR", found.Ancestor(VariantCountry).Code())
	assert.Equal(t, "EU", found.Ancestor(VariantContinent).Code())

	again, err := w.Locate(riorges)
	require.NoError(t, err)
	assert.Same(t, found, again)

	// any level can start the search
	fr, err := w.Country("FR")
	require.NoError(t, err)
	fromCountry, err := fr.Locate(riorges)
	require.NoError(t, err)
	assert.Same(t, found, fromCountry)

	savoie := walk(t, fr, "84", "74")
	in, err := savoie.Contains(riorges, false)
	require.NoError(t, err)
	assert.False(t, in)
	outside, err := savoie.Locate(riorges)
	require.NoError(t, err)
	assert.Nil(t, outside)

	code, err := w.LocateCountry(riorges)
	require.NoError(t, err)
	assert.Equal(t, "FR", code)

	// projected points are accepted too
	l93, err := riorges.To(crs.Lambert93)
	require.NoError(t, err)
	projected, err := w.Locate(l93)
	require.NoError(t, err)
	assert.Same(t, found, projected)
}

func TestLocateWideRegion(t *testing.T) {
	// a region spanning 8 degrees of longitude, far north of the fixture regions
	cfg := fixtureConfig()
	cfg.WithShapes = false
	provider := edited{
		Dir: dataset.Dir{Root: "testdata"},
		settlements: func(tbl *dataset.Table) *dataset.Table {
			tbl = withSettlement(tbl, "9000001", "Ouest", -0.5, 50.6, "76")
			return withSettlement(tbl, "9000002", "Est", 7.5, 50.6, "76")
		},
	}
	w, err := NewWorld(provider, cfg)
	require.NoError(t, err)
	fr, err := w.Country("FR")
	require.NoError(t, err)
	region := walk(t, fr, "76")

	box, err := region.BoundingRegion()
	require.NoError(t, err)
	require.Equal(t, crs.Lambert93, box.CRS)
	edges := box.Ring[:len(box.Ring)-1]
	var center orb.Point
	for _, v := range edges {
		center[0] += v[0] / float64(len(edges))
		center[1] += v[1] / float64(len(edges))
	}

	// just inside the middle of every box edge
	for i := range edges {
		a, b := box.Ring[i], box.Ring[i+1]
		mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
		d := planar.Distance(mid, center)
		p := crs.Point{
			X:   mid[0] + 300*(center[0]-mid[0])/d,
			Y:   mid[1] + 300*(center[1]-mid[1])/d,
			CRS: box.CRS,
		}
		in, err := region.Contains(p, true)
		require.NoError(t, err)
		require.True(t, in, "edge %d", i)

		candidates, err := fr.candidates(p)
		require.NoError(t, err)
		codes := make([]string, len(candidates))
		for j, c := range candidates {
			codes[j] = c.Code()
		}
		assert.Contains(t, codes, "76", "edge %d at %s", i, p)
	}

	found, err := fr.Locate(crs.Point{X: center[0], Y: center[1], CRS: box.CRS})
	require.NoError(t, err)
	assert.Same(t, region, found)
}

func TestLocateOcean(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	found, err := w.Locate(crs.Geographic(-30, 0))
	require.NoError(t, err)
	assert.Same(t, w.Node, found)

	code, err := w.LocateCountry(crs.Geographic(-30, 0))
	require.NoError(t, err)
	assert.Empty(t, code)

	_, err = w.Locate(crs.Point{X: 1, Y: 1, CRS: "EPSG:0"})
	assert.ErrorIs(t, err, crs.ErrUnknownCRS)
}

func TestLocateWithoutShapes(t *testing.T) {
	cfg := fixtureConfig()
	cfg.WithShapes = false
	w := newWorld(t, cfg)

	found, err := w.Locate(riorges)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "422", found.Code())

	fr := found.Ancestor(VariantCountry)
	bnd, err := fr.Boundary()
	require.NoError(t, err)
	assert.Equal(t, crs.Lambert93, bnd.CRS, "bounded by its settlements")
}

func TestSearchAroundLocated(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	found, err := w.Locate(riorges)
	require.NoError(t, err)
	require.NotNil(t, found)

	settlements, err := found.Settlements()
	require.NoError(t, err)
	hits, err := found.SearchSettlementsInRadius(riorges, 3000)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, []string{"Riorges", "Roanne"}, matchNames(t, settlements, hits))
	assert.Less(t, hits[0].Distance, 300.0)

	postals, err := found.Postals()
	require.NoError(t, err)
	hits, err = found.SearchPostalsInRadius(riorges, 3000)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Riorges", postals.Name(hits[0].Row))
	assert.Equal(t, "42153", postals.Get(hits[0].Row, "postal_code"))

	named, err := found.Geonames()
	require.NoError(t, err)
	hits, err = found.SearchGeonamesInRadius(riorges, 1000, search.Where("featureclass", "S"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Château de Beaulieu"}, matchNames(t, named, hits))
}

func TestSearchByName(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	region := walk(t, w.Node, "EU", "FR", "84")

	matches, err := region.SearchSettlementsByName("Riorges")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Similarity)
	assert.Equal(t, "Riorges", matches[0].Name)

	matches, err = region.SearchPostalsByName("Anecy")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Annecy", matches[0].Name)

	matches, err = region.SearchGeonamesByName("Mont Blanc")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Similarity)

	// Paris is not in the region
	matches, err = region.SearchSettlementsByName("Paris")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.NotEqual(t, "Paris", matches[0].Name)
}

func TestSearchPostalCode(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	county := walk(t, w.Node, "EU", "FR", "84", "42")

	got, err := county.SearchPostalCode("42300")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Mably", "Roanne"}, got.Distinct("place_name"))

	got, err = county.SearchPostalCode("42153", "74000")
	require.NoError(t, err)
	assert.Equal(t, []string{"Riorges"}, got.Distinct("place_name"), "Annecy is not in the Loire")

	// postal codes are not numbers
	got, err = county.SearchPostalCode("042153")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	noPostals := fixtureConfig()
	noPostals.WithPostals = false
	w = newWorld(t, noPostals)
	county = walk(t, w.Node, "EU", "FR", "84", "42")
	got, err = county.SearchPostalCode("42300")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "42", county.Name(), "no alias without postals")
}

func TestRegionNameJoin(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	fr, err := w.Country("FR")
	require.NoError(t, err)

	paca := walk(t, fr, "93")
	assert.Equal(t, "Provence-Alpes-Côte d'Azur", paca.Name())
	postals, err := paca.Postals()
	require.NoError(t, err)
	assert.Equal(t, 3, postals.Len())
	assert.Equal(t, []string{"B8"}, postals.Distinct("state_code"))
	assert.Empty(t, paca.SubsetWarnings())

	// counties below filter the joined rows
	bdr := walk(t, paca, "13")
	assert.Equal(t, "Bouches-du-Rhône", bdr.Name())
	postals, err = bdr.Postals()
	require.NoError(t, err)
	assert.Equal(t, 2, postals.Len())

	assert.Equal(t, "Auvergne-Rhône-Alpes", walk(t, fr, "84").Name())
}

func TestSubsetHierarchy(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	region := walk(t, w.Node, "EU", "FR", "84")
	loire := walk(t, region, "42")
	savoie := walk(t, region, "74")

	ids := func(n *Node) []int {
		tbl, err := n.Settlements()
		require.NoError(t, err)
		return tbl.IDs()
	}
	assert.Subset(t, ids(region), ids(loire))
	assert.Subset(t, ids(region), ids(savoie))
	for _, id := range ids(loire) {
		assert.NotContains(t, ids(savoie), id)
	}
	assert.Len(t, ids(loire), 10)

	named, err := loire.Geonames()
	require.NoError(t, err)
	assert.Equal(t, 5, named.Len())
	assert.Equal(t, crs.Lambert93, named.CRS)
}

func near(ring orb.Ring, p orb.Point) bool {
	return planar.RingContains(ring, p) || planar.DistanceFrom(ring, p) < 1e-6
}

func TestBoundingRegionCoversBoundary(t *testing.T) {
	w := newWorld(t, fixtureConfig())

	var check func(n *Node)
	check = func(n *Node) {
		if n.Variant() == VariantSettlement {
			return
		}
		bnd, err := n.Boundary()
		require.NoError(t, err)
		box, err := n.BoundingRegion()
		require.NoError(t, err)
		if bnd.Empty() {
			return
		}
		require.NotNil(t, box, n.String())
		require.Equal(t, bnd.CRS, box.CRS)
		for _, v := range bnd.Vertices() {
			assert.True(t, near(box.Ring, v), "%s: %v outside its box", n, v)
		}
		kids, err := n.Children()
		require.NoError(t, err)
		for _, c := range kids {
			check(c)
		}
	}
	check(w.Node)
}

func TestSettlementBounds(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	community := walk(t, w.Node, "EU", "FR", "84", "42", "422")
	s, err := community.Child(RiorgesID)
	require.NoError(t, err)

	assert.Equal(t, VariantSettlement, s.Variant())
	assert.Equal(t, "Riorges", s.Name())
	box, err := s.BoundingRegion()
	require.NoError(t, err)
	assert.Nil(t, box)
	in, err := s.Contains(riorges, false)
	require.NoError(t, err)
	assert.False(t, in)

	bbox, err := s.BBox()
	require.NoError(t, err)
	assert.NotEmpty(t, bbox)

	loc, ok := s.Location()
	require.True(t, ok)
	assert.Equal(t, crs.Lambert93, loc.CRS)
	geo, err := loc.To(crs.WGS84)
	require.NoError(t, err)
	assert.InDelta(t, 4.04, geo.X, 1e-6)
	assert.InDelta(t, 46.0433, geo.Y, 1e-6)
}

func TestCapital(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	fr, err := w.Country("FR")
	require.NoError(t, err)
	paris, err := fr.Capital()
	require.NoError(t, err)
	require.NotNil(t, paris)
	assert.Equal(t, "Paris", paris.Name())
	assert.Equal(t, "751", paris.Parent().Code())
	assert.Equal(t, "11", paris.Ancestor(VariantRegion).Code())

	// Moroccan settlements stop at the region level
	ma, err := w.Country("MA")
	require.NoError(t, err)
	rabat, err := ma.Capital()
	require.NoError(t, err)
	require.NotNil(t, rabat)
	assert.Equal(t, "Rabat", rabat.Name())
	assert.Equal(t, VariantRegion, rabat.Parent().Variant())
	assert.Equal(t, "04", rabat.Parent().Code())

	again, err := ma.Capital()
	require.NoError(t, err)
	assert.Same(t, rabat, again)

	ch, err := w.Country("CH")
	require.NoError(t, err)
	none, err := ch.Capital()
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestLocateSettlement(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	community := walk(t, w.Node, "EU", "FR", "84", "42", "422")
	own, err := community.Child(RiorgesID)
	require.NoError(t, err)

	found, err := community.LocateSettlement("", "42153")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Same(t, own, found[0])

	found, err = community.LocateSettlement("Riorges", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Same(t, own, found[0])

	// named places fill in what the settlement table lacks
	found, err = community.LocateSettlement("Les Canaux", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Les Canaux", found[0].Name())
	assert.Same(t, community, found[0].Parent())
	adopted, err := community.Child("6446815")
	require.NoError(t, err)
	assert.Same(t, found[0], adopted)

	// from the top the codes lead down to the community
	found, err = w.LocateSettlement("Roanne", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "422", found[0].Parent().Code())

	found, err = community.LocateSettlement("", "")
	assert.NoError(t, err)
	assert.Empty(t, found)
}

func TestLocateSettlementNumericCodes(t *testing.T) {
	// postal dumps of some vintages write the community code as a float
	provider := edited{
		Dir: dataset.Dir{Root: "testdata"},
		postals: func(tbl *dataset.Table) *dataset.Table {
			col := tbl.Schema.Col("community_code")
			rows := make([]dataset.Row, len(tbl.Rows))
			for i, r := range tbl.Rows {
				r.Values = append([]string(nil), r.Values...)
				if r.Values[col] != "" {
					r.Values[col] += ".0"
				}
				rows[i] = r
			}
			return dataset.NewTable(tbl.Kind, tbl.CRS, tbl.Schema, rows)
		},
	}
	w, err := NewWorld(provider, fixtureConfig())
	require.NoError(t, err)
	community := walk(t, w.Node, "EU", "FR", "84", "42", "422")

	postals, err := community.Postals()
	require.NoError(t, err)
	require.NotZero(t, postals.Len())

	found, err := community.LocateSettlement("", "42153")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Riorges", found[0].Name())
	assert.Same(t, community, found[0].Parent())
}

func TestLocateSettlementsAround(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	county := walk(t, w.Node, "EU", "FR", "84", "42")

	around, err := county.LocateSettlementsAround(riorges, 3000)
	require.NoError(t, err)
	require.Len(t, around, 2)
	assert.Equal(t, "Riorges", around[0].Node.Name())
	assert.Equal(t, "Roanne", around[1].Node.Name())
	assert.Less(t, around[0].Distance, around[1].Distance)
	assert.Equal(t, "422", around[0].Node.Parent().Code())

	km, err := around[0].Node.DistanceKm(around[1].Node)
	require.NoError(t, err)
	assert.InDelta(t, 2.34, km, 0.05)

	_, err = county.DistanceKm(around[0].Node)
	assert.Error(t, err, "territories have no location")
}

func TestInvalidate(t *testing.T) {
	w := newWorld(t, fixtureConfig())
	county := walk(t, w.Node, "EU", "FR", "84", "42")
	before, err := county.Settlements()
	require.NoError(t, err)
	box, err := county.BoundingRegion()
	require.NoError(t, err)

	county.Invalidate()
	after, err := county.Settlements()
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, before.IDs(), after.IDs())

	rebuilt, err := county.BoundingRegion()
	require.NoError(t, err)
	assert.NotSame(t, box, rebuilt)
	assert.Equal(t, box.Ring, rebuilt.Ring)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(dataset.Dir{Root: "testdata"})
	cfg := fixtureConfig()

	var wg sync.WaitGroup
	worlds := make([]*World, 8)
	for i := range worlds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := reg.World(cfg)
			assert.NoError(t, err)
			worlds[i] = w
		}(i)
	}
	wg.Wait()
	for _, w := range worlds[1:] {
		assert.Same(t, worlds[0], w)
	}

	other := cfg
	other.Radius = 5000
	w, err := reg.World(other)
	require.NoError(t, err)
	assert.NotSame(t, worlds[0], w)

	// defaults are part of the key
	zero := cfg
	zero.CRS = ""
	w, err = reg.World(zero)
	require.NoError(t, err)
	assert.Same(t, worlds[0], w)

	bad := cfg
	bad.CRS = "EPSG:0"
	_, err = reg.World(bad)
	assert.ErrorIs(t, err, crs.ErrUnknownCRS)
}

func TestMissingDatasets(t *testing.T) {
	w, err := NewWorld(dataset.Dir{Root: t.TempDir()}, fixtureConfig())
	require.NoError(t, err)
	continents, err := w.Continents()
	require.NoError(t, err)
	assert.Empty(t, continents)

	found, err := w.Locate(riorges)
	require.NoError(t, err)
	assert.Same(t, w.Node, found)
}
