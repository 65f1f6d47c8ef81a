package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/mapclient"
)

// MapAPI is the slice of the map client the HTTP layer uses.
type MapAPI interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
	SearchPOI(ctx context.Context, query mapclient.SearchQuery) ([]domain.POI, error)
	CalculateRoute(ctx context.Context, origin, destination domain.Coordinates, mode string) (*domain.Route, error)
}

// MapHandler proxies geocoding, POI search, and routing to the map provider.
type MapHandler struct {
	client MapAPI
}

// NewMapHandler creates the map handler.
func NewMapHandler(client MapAPI) *MapHandler {
	return &MapHandler{client: client}
}

type poiSearchRequest struct {
	Keyword  string `json:"keyword" binding:"required"`
	City     string `json:"city" binding:"required"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

// SearchPOI looks up points of interest in a city.
func (h *MapHandler) SearchPOI(c *gin.Context) {
	var req poiSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	category := req.Category
	if category == "" {
		category = "attraction"
	}

	pois, err := h.client.SearchPOI(c.Request.Context(), mapclient.SearchQuery{
		Keyword:  req.Keyword,
		City:     req.City,
		Category: category,
		Limit:    req.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pois":  pois,
		"total": len(pois),
	})
}

type routeRequest struct {
	Origin      domain.Coordinates `json:"origin" binding:"required"`
	Destination domain.Coordinates `json:"destination" binding:"required"`
	Mode        string             `json:"mode"`
}

// CalculateRoute computes a route between two coordinates.
func (h *MapHandler) CalculateRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = "driving"
	}

	route, err := h.client.CalculateRoute(c.Request.Context(), req.Origin, req.Destination, mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

type geocodeRequest struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city"`
}

// Geocode resolves an address to coordinates. A city prefix narrows
// ambiguous addresses.
func (h *MapHandler) Geocode(c *gin.Context) {
	var req geocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	location, err := h.client.Geocode(c.Request.Context(), req.City+req.Address)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":  req.Address,
		"location": location,
	})
}

// Health reports the map proxy as alive.
func (h *MapHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "map",
		"version": "1.0.0",
	})
}
