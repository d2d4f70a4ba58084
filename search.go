package territories

import (
	"strings"

	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/search"
)

func searchName(s *dataset.Subset, name string, prefilters []search.Prefilter) ([]search.Match, error) {
	t, err := s.Materialize()
	if err != nil {
		return nil, err
	}
	return search.Name(t, name, prefilters...)
}

func searchRadius(s *dataset.Subset, p crs.Point, radius float64, prefilters []search.Prefilter) ([]search.Hit, error) {
	t, err := s.Materialize()
	if err != nil {
		return nil, err
	}
	return search.Radius(t, p, radius, prefilters...)
}

// SearchSettlementsByName returns the settlements carrying the name closest to name
func (n *Node) SearchSettlementsByName(name string, prefilters ...search.Prefilter) ([]search.Match, error) {
	return searchName(n.settlements, name, prefilters)
}

// SearchSettlementsInRadius returns the settlements within radius of p, nearest first.
// The radius is in units of the node CRS.
func (n *Node) SearchSettlementsInRadius(p crs.Point, radius float64, prefilters ...search.Prefilter) ([]search.Hit, error) {
	return searchRadius(n.settlements, p, radius, prefilters)
}

// SearchPostalsByName returns the postal rows whose place name is closest to name
func (n *Node) SearchPostalsByName(name string, prefilters ...search.Prefilter) ([]search.Match, error) {
	return searchName(n.postals, name, prefilters)
}

// SearchPostalsInRadius returns the postal rows within radius of p, nearest first
func (n *Node) SearchPostalsInRadius(p crs.Point, radius float64, prefilters ...search.Prefilter) ([]search.Hit, error) {
	return searchRadius(n.postals, p, radius, prefilters)
}

// SearchGeonamesByName returns the named places carrying the name closest to name
func (n *Node) SearchGeonamesByName(name string, prefilters ...search.Prefilter) ([]search.Match, error) {
	return searchName(n.geonames, name, prefilters)
}

// SearchGeonamesInRadius returns the named places within radius of p, nearest first
func (n *Node) SearchGeonamesInRadius(p crs.Point, radius float64, prefilters ...search.Prefilter) ([]search.Hit, error) {
	return searchRadius(n.geonames, p, radius, prefilters)
}

// SearchPostalCode returns the postal rows for the given codes, compared
// upper cased and verbatim: "042153" is not "42153"
func (n *Node) SearchPostalCode(codes ...string) (*dataset.Table, error) {
	t, err := n.postals.Materialize()
	if err != nil || t == nil {
		return t, err
	}
	f := dataset.Filter{Column: "postal_code", Values: make([]string, len(codes))}
	for i, c := range codes {
		f.Values[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	return f.Exact(t), nil
}
