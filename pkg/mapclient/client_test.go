package mapclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(config.MapConfig{
		APIKey:         "test-ak",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
		RequestsPerSec: 1000,
		CacheTTLMin:    1,
	})
}

func TestGeocode(t *testing.T) {
	var calls int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, "/geocoding/v3/", r.URL.Path)
		assert.Equal(t, "天安门", r.URL.Query().Get("address"))
		assert.Equal(t, "test-ak", r.URL.Query().Get("ak"))
		fmt.Fprint(w, `{"status":0,"result":{"location":{"lat":39.9151,"lng":116.4039}}}`)
	})

	coords, err := client.Geocode(context.Background(), "天安门")
	require.NoError(t, err)
	assert.InDelta(t, 39.9151, coords.Lat, 1e-6)
	assert.InDelta(t, 116.4039, coords.Lng, 1e-6)

	// Second lookup is served from the cache.
	_, err = client.Geocode(context.Background(), "天安门")
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestGeocodeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":1,"message":"内部服务器错误"}`)
	})

	_, err := client.Geocode(context.Background(), "不存在的地方")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeocodeFailed)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Geocode(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchPOI(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/v2/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "景点", q.Get("query"))
		assert.Equal(t, "北京", q.Get("region"))
		assert.Equal(t, "旅游景点", q.Get("tag"))
		assert.Equal(t, "2", q.Get("scope"))
		fmt.Fprint(w, `{"status":0,"results":[
			{"uid":"abc","name":"故宫","address":"东城区","location":{"lat":39.916,"lng":116.397},
			 "detail_info":{"tag":"旅游景点","overall_rating":"4.8","price":"60"}}
		]}`)
	})

	pois, err := client.SearchPOI(context.Background(), SearchQuery{
		Keyword:  "景点",
		City:     "北京",
		Category: "attraction",
	})
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "故宫", pois[0].Name)
	assert.InDelta(t, 4.8, pois[0].Rating, 1e-6)
	assert.Equal(t, "60", pois[0].Price)
}

func TestSearchPOIWithLocation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.NotEmpty(t, q.Get("location"))
		assert.Equal(t, "5000", q.Get("radius"))
		fmt.Fprint(w, `{"status":0,"results":[]}`)
	})

	pois, err := client.SearchPOI(context.Background(), SearchQuery{
		Keyword:  "美食",
		Location: &domain.Coordinates{Lat: 39.9042, Lng: 116.4074},
		Radius:   5000,
	})
	require.NoError(t, err)
	assert.Empty(t, pois)
}

func TestCalculateRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/direction/v2/driving", r.URL.Path)
		fmt.Fprint(w, `{"status":0,"result":{"routes":[
			{"distance":5200,"duration":900,"steps":[
				{"path":"116.397,39.916;116.400,39.918"},
				{"path":"116.400,39.918;116.410,39.920"}
			]}
		]}}`)
	})

	route, err := client.CalculateRoute(context.Background(),
		domain.Coordinates{Lat: 39.916, Lng: 116.397},
		domain.Coordinates{Lat: 39.920, Lng: 116.410},
		"driving")
	require.NoError(t, err)

	assert.Equal(t, 5200, route.Distance)
	assert.Equal(t, 900, route.Duration)
	assert.Equal(t, "driving", route.Mode)
	// Longitude first in every polyline point.
	assert.Equal(t, "116.397,39.916;116.4,39.918;116.4,39.918;116.41,39.92", route.OverviewPolyline)
	assert.InDelta(t, 39.916, route.Bounds.Southwest.Lat, 1e-6)
	assert.InDelta(t, 116.397, route.Bounds.Southwest.Lng, 1e-6)
	assert.InDelta(t, 39.92, route.Bounds.Northeast.Lat, 1e-6)
	assert.InDelta(t, 116.41, route.Bounds.Northeast.Lng, 1e-6)
}

func TestCalculateRouteModeEndpoints(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"status":0,"result":{"routes":[{"distance":1,"duration":1,"steps":[]}]}}`)
	})

	origin := domain.Coordinates{Lat: 1, Lng: 2}
	dest := domain.Coordinates{Lat: 3, Lng: 4}

	for mode, wantPath := range map[string]string{
		"walking":   "/direction/v2/walking",
		"transit":   "/direction/v2/transit",
		"riding":    "/direction/v2/riding",
		"driving":   "/direction/v2/driving",
		"spaceship": "/direction/v2/driving",
	} {
		route, err := client.CalculateRoute(context.Background(), origin, dest, mode)
		require.NoError(t, err)
		assert.Equal(t, wantPath, gotPath, "mode %s", mode)
		if mode == "spaceship" {
			assert.Equal(t, "driving", route.Mode)
		}
	}
}

func TestCalculateRouteNoRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0,"result":{"routes":[]}}`)
	})

	_, err := client.CalculateRoute(context.Background(),
		domain.Coordinates{}, domain.Coordinates{}, "driving")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildPolylineSkipsMalformedPoints(t *testing.T) {
	polyline, bounds := buildPolyline([]map[string]interface{}{
		{"path": "116.397,39.916;bogus;116.400"},
		{"path": ""},
		{},
	})

	assert.Equal(t, "116.397,39.916", polyline)
	assert.InDelta(t, 39.916, bounds.Southwest.Lat, 1e-6)
	assert.InDelta(t, 39.916, bounds.Northeast.Lat, 1e-6)
}

func TestReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse_geocoding/v3/", r.URL.Path)
		fmt.Fprint(w, `{"status":0,"result":{"formatted_address":"北京市东城区","business":"天安门"}}`)
	})

	result, err := client.ReverseGeocode(context.Background(), 39.9151, 116.4039)
	require.NoError(t, err)
	assert.Equal(t, "北京市东城区", result.Address)
	assert.Equal(t, "天安门", result.Business)
}
