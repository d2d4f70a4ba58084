package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	territories "github.com/paulstuart/go-territories"
	"github.com/paulstuart/go-territories/crs"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/iplocate"
	"github.com/paulstuart/go-territories/overpass"
	"github.com/paulstuart/go-territories/search"
)

type pointArgs struct {
	X float64 `positional-arg-name:"x" description:"longitude or easting"`
	Y float64 `positional-arg-name:"y" description:"latitude or northing"`
}

func path(n *territories.Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		parts = append([]string{fmt.Sprintf("%s (%s)", cur.Name(), cur.Code())}, parts...)
	}
	return strings.Join(parts, " > ")
}

// scope walks from the world down a path of codes, the first one being a country
func scope(w *territories.World, codes []string) (*territories.Node, error) {
	if len(codes) == 0 {
		return w.Node, nil
	}
	n, err := w.Country(codes[0])
	if err != nil {
		return nil, err
	}
	for _, code := range codes[1:] {
		if n, err = n.Child(code); err != nil {
			return nil, err
		}
	}
	return n, nil
}

type locateCmd struct {
	CRS  string    `long:"crs" description:"system of the coordinate" default:"EPSG:4326"`
	Args pointArgs `positional-args:"yes" required:"yes"`
}

func (c *locateCmd) Execute([]string) error {
	w, _, err := loadWorld()
	if err != nil {
		return err
	}
	p := crs.Point{X: c.Args.X, Y: c.Args.Y, CRS: c.CRS}
	found, err := w.Locate(p)
	if err != nil {
		return err
	}
	if found == nil {
		fmt.Println("not located")
		return nil
	}
	bbox, err := found.BBox()
	if err != nil {
		return err
	}
	fmt.Println(path(found))
	fmt.Println("bbox:", bbox)
	return nil
}

type searchCmd struct {
	Kind    string   `short:"k" long:"kind" choice:"settlements" choice:"postals" choice:"geonames" default:"settlements"`
	Scope   []string `short:"s" long:"scope" description:"country code then admin codes narrowing the search"`
	Filters []string `short:"f" long:"filter" description:"column=pattern prefilter"`
	Regex   bool     `short:"r" long:"regex" description:"prefilter patterns are regular expressions"`
	Args    struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func prefilters(specs []string, regex bool) ([]search.Prefilter, error) {
	out := make([]search.Prefilter, 0, len(specs))
	for _, s := range specs {
		col, pat, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("prefilter %q: want column=pattern", s)
		}
		out = append(out, search.Prefilter{Column: col, Pattern: pat, Regex: regex})
	}
	return out, nil
}

func (c *searchCmd) Execute([]string) error {
	w, _, err := loadWorld()
	if err != nil {
		return err
	}
	n, err := scope(w, c.Scope)
	if err != nil {
		return err
	}
	pre, err := prefilters(c.Filters, c.Regex)
	if err != nil {
		return err
	}

	var (
		matches []search.Match
		t       *dataset.Table
	)
	switch c.Kind {
	case "postals":
		if matches, err = n.SearchPostalsByName(c.Args.Name, pre...); err == nil {
			t, err = n.Postals()
		}
	case "geonames":
		if matches, err = n.SearchGeonamesByName(c.Args.Name, pre...); err == nil {
			t, err = n.Geonames()
		}
	default:
		if matches, err = n.SearchSettlementsByName(c.Args.Name, pre...); err == nil {
			t, err = n.Settlements()
		}
	}
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Printf("%.3f\t%s\t%s\n", m.Similarity, m.Name, strings.Join(m.Row.Values, " | "))
	}
	log.Debug().Str("scope", n.String()).Stringer("table", t).Int("matches", len(matches)).Msg("Search done")
	return nil
}

type aroundCmd struct {
	CRS    string    `long:"crs" description:"system of the coordinate" default:"EPSG:4326"`
	Radius float64   `short:"r" long:"radius" description:"radius in units of the territory system, the configured radius by default"`
	Args   pointArgs `positional-args:"yes" required:"yes"`
}

func (c *aroundCmd) Execute([]string) error {
	w, _, err := loadWorld()
	if err != nil {
		return err
	}
	p := crs.Point{X: c.Args.X, Y: c.Args.Y, CRS: c.CRS}
	found, err := w.Locate(p)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("%s is not located", p)
	}
	if c.Radius <= 0 {
		c.Radius = found.Config().Radius
	}
	around, err := found.LocateSettlementsAround(p, c.Radius)
	if err != nil {
		return err
	}
	for _, a := range around {
		fmt.Printf("%.0f\t%s\n", a.Distance, path(a.Node))
	}
	return nil
}

type bboxCmd struct {
	Element string   `short:"e" long:"element" choice:"node" choice:"way" choice:"relation" default:"node"`
	Tags    []string `short:"t" long:"tag" description:"key=value tag to query Overpass with, key alone matches any value"`
	Args    struct {
		Codes []string `positional-arg-name:"code" description:"country code then admin codes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *bboxCmd) Execute([]string) error {
	w, cfg, err := loadWorld()
	if err != nil {
		return err
	}
	n, err := scope(w, c.Args.Codes)
	if err != nil {
		return err
	}
	bbox, err := n.BBox()
	if err != nil {
		return err
	}
	fmt.Println(path(n))
	fmt.Println("bbox:", bbox)
	if len(c.Tags) == 0 {
		return nil
	}

	tags := make(map[string]string, len(c.Tags))
	for _, t := range c.Tags {
		k, v, _ := strings.Cut(t, "=")
		tags[k] = v
	}
	client := overpass.New(overpass.Config{
		URL:            cfg.Overpass.URL,
		RequestsPerSec: cfg.Overpass.Rate,
		Timeout:        cfg.Overpass.Timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	elements, err := client.Search(ctx, n, overpass.Kind(c.Element), tags)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(overpass.FeatureCollection(elements))
}

type ipCmd struct {
	Database string `long:"geoip" env:"GEOIP_DB" description:"GeoIP2 City database, the configured one by default"`
	Args     struct {
		Address string `positional-arg-name:"address"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ipCmd) Execute([]string) error {
	w, cfg, err := loadWorld()
	if err != nil {
		return err
	}
	if c.Database == "" {
		c.Database = cfg.GeoIPFile
	}
	r, err := iplocate.Open(c.Database, w)
	if err != nil {
		return err
	}
	defer r.Close()

	found, err := r.Settlement(net.ParseIP(c.Args.Address))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		country, err := r.Country(net.ParseIP(c.Args.Address))
		if err != nil {
			return err
		}
		fmt.Println(path(country))
		return nil
	}
	for _, s := range found {
		fmt.Println(path(s))
	}
	return nil
}
