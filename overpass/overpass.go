// Package overpass queries an Overpass API endpoint for the map features
// inside a territory's bounding box.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultURL is the public Overpass interpreter
const DefaultURL = "https://overpass-api.de/api/interpreter"

// ErrNoBBox is returned for a territory without a known extent
var ErrNoBBox = errors.New("territory has no bounding box")

// Kind of OSM element
type Kind string

const (
	Node     Kind = "node"
	Way      Kind = "way"
	Relation Kind = "relation"
	Area     Kind = "area"
)

// BBoxer is anything with a "south, west, north, east" box, such as a territory node
type BBoxer interface {
	BBox() (string, error)
}

// Config of the client
type Config struct {
	URL            string
	UserAgent      string
	RequestsPerSec float64
	Timeout        time.Duration
}

// Element is one OSM element of a response
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center,omitempty"`
	Tags map[string]string `json:"tags"`
}

// Point is the element location, the center for ways and relations
func (e Element) Point() (orb.Point, bool) {
	if e.Center != nil {
		return orb.Point{e.Center.Lon, e.Center.Lat}, true
	}
	if e.Type == string(Node) {
		return orb.Point{e.Lon, e.Lat}, true
	}
	return orb.Point{}, false
}

type response struct {
	Elements []Element `json:"elements"`
	Remark   string    `json:"remark"`
}

// Client is a rate limited Overpass client
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a client, one request per second by default
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "go-territories"
	}
	return &Client{
		baseURL:    cfg.URL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}
}

// Query builds the Overpass QL selecting elements with the given tags inside bbox
func Query(kind Kind, bbox string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json];%s", kind)
	for _, k := range keys {
		if v := tags[k]; v != "" {
			fmt.Fprintf(&b, "[%q=%q]", k, v)
		} else {
			fmt.Fprintf(&b, "[%q]", k)
		}
	}
	fmt.Fprintf(&b, "(%s);out center;", bbox)
	return b.String()
}

// Search returns the elements of a kind carrying the tags inside the box of t.
// An empty tag value matches any value.
func (c *Client) Search(ctx context.Context, t BBoxer, kind Kind, tags map[string]string) ([]Element, error) {
	bbox, err := t.BBox()
	if err != nil {
		return nil, err
	}
	if bbox == "" {
		return nil, ErrNoBBox
	}
	return c.Do(ctx, Query(kind, bbox, tags))
}

// Do runs a raw Overpass QL query
func (c *Client) Do(ctx context.Context, query string) ([]Element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("overpass: decode: %w", err)
	}
	if out.Remark != "" {
		log.Warn().Str("remark", out.Remark).Msg("Overpass remark")
	}
	log.Debug().
		Int("elements", len(out.Elements)).
		Dur("duration", time.Since(start)).
		Msg("Overpass query")
	return out.Elements, nil
}

// FeatureCollection turns located elements into GeoJSON points
func FeatureCollection(elements []Element) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range elements {
		p, ok := e.Point()
		if !ok {
			continue
		}
		f := geojson.NewFeature(p)
		f.ID = fmt.Sprintf("%s/%d", e.Type, e.ID)
		for k, v := range e.Tags {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	return fc
}
