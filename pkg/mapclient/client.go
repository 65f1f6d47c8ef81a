package mapclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
)

// PathPointOrder documents the coordinate ordering of route step paths and
// overview polylines: "lng,lat;lng,lat;..." with longitude first. Every
// parser and formatter in this package follows it.
const PathPointOrder = "lng,lat"

// Client talks to the Baidu Map web service API. Geocode results are cached
// and all requests share a rate limiter so agent tool bursts stay inside the
// provider quota.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	geoCache   *gocache.Cache
}

// New creates a map client from the map section of the config.
func New(cfg config.MapConfig) *Client {
	ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.map.baidu.com"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		geoCache:   gocache.New(ttl, 2*ttl),
	}
}

// SearchQuery narrows a POI search.
type SearchQuery struct {
	Keyword  string
	City     string
	Category string
	Location *domain.Coordinates
	Radius   int
	Limit    int
}

// ReverseGeocodeResult is the address resolved for a coordinate.
type ReverseGeocodeResult struct {
	Address           string                 `json:"address"`
	Location          domain.Coordinates     `json:"location"`
	Business          string                 `json:"business"`
	AddressComponents map[string]interface{} `json:"address_components"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("output", "json")
	params.Set("ak", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: map API returned HTTP %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode map API response: %w", err)
	}

	return nil
}

// Geocode resolves an address into coordinates. Successful lookups are
// cached by address.
func (c *Client) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrInvalidInput)
	}

	if cached, found := c.geoCache.Get(address); found {
		coords := cached.(domain.Coordinates)
		return &coords, nil
	}

	var payload struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Result  *struct {
			Location domain.Coordinates `json:"location"`
		} `json:"result"`
	}

	params := url.Values{}
	params.Set("address", address)
	if err := c.get(ctx, "/geocoding/v3/", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status != 0 || payload.Result == nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrGeocodeFailed, address, payload.Message)
	}

	coords := payload.Result.Location
	c.geoCache.Set(address, coords, gocache.DefaultExpiration)
	return &coords, nil
}

// ReverseGeocode resolves coordinates into an address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error) {
	var payload struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Result  struct {
			FormattedAddress string                 `json:"formatted_address"`
			Business         string                 `json:"business"`
			AddressComponent map[string]interface{} `json:"addressComponent"`
		} `json:"result"`
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	if err := c.get(ctx, "/reverse_geocoding/v3/", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status != 0 {
		return nil, fmt.Errorf("%w: %f,%f: %s", domain.ErrGeocodeFailed, lat, lng, payload.Message)
	}

	return &ReverseGeocodeResult{
		Address:           payload.Result.FormattedAddress,
		Location:          domain.Coordinates{Lat: lat, Lng: lng},
		Business:          payload.Result.Business,
		AddressComponents: payload.Result.AddressComponent,
	}, nil
}

// SearchPOI searches points of interest by keyword within a city or around
// a center coordinate.
func (c *Client) SearchPOI(ctx context.Context, query SearchQuery) ([]domain.POI, error) {
	if query.Keyword == "" {
		return nil, fmt.Errorf("%w: empty keyword", domain.ErrInvalidInput)
	}

	city := query.City
	if city == "" {
		city = "北京"
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("query", query.Keyword)
	params.Set("region", city)
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("scope", "2")

	if query.Location != nil {
		params.Set("location", fmt.Sprintf("%f,%f", query.Location.Lat, query.Location.Lng))
		radius := query.Radius
		if radius <= 0 {
			radius = 10000
		}
		params.Set("radius", strconv.Itoa(radius))
	}

	if tag := categoryTag(query.Category); tag != "" {
		params.Set("tag", tag)
	}

	var payload struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Results []struct {
			UID        string             `json:"uid"`
			Name       string             `json:"name"`
			Address    string             `json:"address"`
			Location   domain.Coordinates `json:"location"`
			DetailInfo struct {
				Tag           string          `json:"tag"`
				OverallRating json.RawMessage `json:"overall_rating"`
				Price         json.RawMessage `json:"price"`
				Telephone     string          `json:"telephone"`
				DetailURL     string          `json:"detail_url"`
				OpeningHours  string          `json:"opening_hours"`
				Content       string          `json:"content"`
			} `json:"detail_info"`
		} `json:"results"`
	}

	if err := c.get(ctx, "/place/v2/search", params, &payload); err != nil {
		return nil, err
	}

	if payload.Status != 0 {
		return nil, fmt.Errorf("POI搜索失败: %s", payload.Message)
	}

	pois := make([]domain.POI, 0, len(payload.Results))
	for _, item := range payload.Results {
		pois = append(pois, domain.POI{
			ID:           item.UID,
			Name:         item.Name,
			Address:      item.Address,
			Location:     item.Location,
			Category:     item.DetailInfo.Tag,
			Rating:       flexibleFloat(item.DetailInfo.OverallRating),
			Price:        flexibleString(item.DetailInfo.Price),
			Phone:        item.DetailInfo.Telephone,
			Website:      item.DetailInfo.DetailURL,
			OpeningHours: item.DetailInfo.OpeningHours,
			Description:  item.DetailInfo.Content,
		})
	}

	return pois, nil
}

// CalculateRoute computes a route between two coordinates. Mode is one of
// driving, walking, transit, riding; anything else falls back to driving.
func (c *Client) CalculateRoute(ctx context.Context, origin, destination domain.Coordinates, mode string) (*domain.Route, error) {
	endpoint := "/direction/v2/driving"
	switch mode {
	case "walking":
		endpoint = "/direction/v2/walking"
	case "transit":
		endpoint = "/direction/v2/transit"
	case "riding":
		endpoint = "/direction/v2/riding"
	case "", "driving":
		mode = "driving"
	default:
		mode = "driving"
	}

	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	params.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lng))
	params.Set("tactics", "11")

	var payload struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Result  struct {
			Routes []struct {
				Distance int                      `json:"distance"`
				Duration int                      `json:"duration"`
				Steps    []map[string]interface{} `json:"steps"`
			} `json:"routes"`
		} `json:"result"`
	}

	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	if payload.Status != 0 {
		return nil, fmt.Errorf("路线计算失败: %s", payload.Message)
	}
	if len(payload.Result.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes returned", domain.ErrNotFound)
	}

	best := payload.Result.Routes[0]
	polyline, bounds := buildPolyline(best.Steps)

	return &domain.Route{
		Distance:         best.Distance,
		Duration:         best.Duration,
		OverviewPolyline: polyline,
		Bounds:           bounds,
		Steps:            best.Steps,
		Mode:             mode,
		Origin:           origin,
		Destination:      destination,
	}, nil
}

// buildPolyline joins all step paths into one overview polyline and computes
// the route bound from the visited points.
func buildPolyline(steps []map[string]interface{}) (string, domain.RouteBounds) {
	var points orb.MultiPoint
	var parts []string

	for _, step := range steps {
		path, _ := step["path"].(string)
		if path == "" {
			continue
		}
		for _, pointStr := range strings.Split(path, ";") {
			pointStr = strings.TrimSpace(pointStr)
			if pointStr == "" {
				continue
			}
			coords := strings.Split(pointStr, ",")
			if len(coords) != 2 {
				continue
			}
			lng, errLng := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
			lat, errLat := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
			if errLng != nil || errLat != nil {
				continue
			}
			points = append(points, orb.Point{lng, lat})
			parts = append(parts, fmt.Sprintf("%g,%g", lng, lat))
		}
	}

	if len(points) == 0 {
		return "", domain.RouteBounds{}
	}

	bound := points.Bound()
	return strings.Join(parts, ";"), domain.RouteBounds{
		Southwest: domain.Coordinates{Lat: bound.Min.Y(), Lng: bound.Min.X()},
		Northeast: domain.Coordinates{Lat: bound.Max.Y(), Lng: bound.Max.X()},
	}
}

// categoryTag maps the tool-facing category names onto Baidu POI tags.
func categoryTag(category string) string {
	switch category {
	case "":
		return ""
	case "attraction":
		return "旅游景点"
	case "restaurant":
		return "美食"
	case "hotel":
		return "酒店"
	default:
		return category
	}
}

func flexibleFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

func flexibleString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
