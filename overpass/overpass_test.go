package overpass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type box string

func (b box) BBox() (string, error) { return string(b), nil }

const riorges = box("45.950, 3.900, 46.150, 4.200")

func TestQuery(t *testing.T) {
	q := Query(Node, string(riorges), map[string]string{"amenity": "cafe", "name": ""})
	assert.Equal(t, `[out:json];node["amenity"="cafe"]["name"](45.950, 3.900, 46.150, 4.200);out center;`, q)
}

func TestSearch(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm.Get("data")
		assert.Equal(t, "test-agent", r.UserAgent())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":46.04,"lon":4.04,"tags":{"amenity":"cafe","name":"Le Central"}},
			{"type":"way","id":2,"center":{"lat":46.03,"lon":4.07},"tags":{"amenity":"cafe"}},
			{"type":"relation","id":3,"tags":{"amenity":"cafe"}}
		]}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, UserAgent: "test-agent", RequestsPerSec: 100})
	elements, err := c.Search(context.Background(), riorges, Node, map[string]string{"amenity": "cafe"})
	require.NoError(t, err)
	assert.Contains(t, got, `(45.950, 3.900, 46.150, 4.200)`)
	require.Len(t, elements, 3)
	assert.Equal(t, "Le Central", elements[0].Tags["name"])

	p, ok := elements[1].Point()
	require.True(t, ok)
	assert.Equal(t, orb.Point{4.07, 46.03}, p)
	_, ok = elements[2].Point()
	assert.False(t, ok)

	fc := FeatureCollection(elements)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "node/1", fc.Features[0].ID)
	assert.Equal(t, "Le Central", fc.Features[0].Properties["name"])
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, RequestsPerSec: 100})
	_, err := c.Search(context.Background(), riorges, Way, nil)
	assert.ErrorContains(t, err, "HTTP 429")

	_, err = c.Search(context.Background(), box(""), Way, nil)
	assert.ErrorIs(t, err, ErrNoBBox)
}

func TestRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements":[]}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, RequestsPerSec: 0.01})
	_, err := c.Do(context.Background(), "[out:json];node(1,2,3,4);out;")
	require.NoError(t, err)

	// the burst is spent, the next call has to wait far longer than the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, "[out:json];node(1,2,3,4);out;")
	assert.Error(t, err)
}
