package cluster

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"imagination/internal/corpus"
	"imagination/internal/query"
	"imagination/pkg/models"
)

type Handler struct {
	Facade *query.Facade
}

func NewHandler(f *query.Facade) *Handler {
	return &Handler{Facade: f}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/map/clusters", h.clusters)
}

func (h *Handler) clusters(c *gin.Context) {
	s := corpus.MustGetSession(c)
	if s == nil {
		return
	}

	opts := Options{
		RadiusKm:   parseFloat(c.Query("radius_km"), 0),
		WrapMinLon: parseFloat(c.Query("min_lon"), -180),
		WrapMaxLon: parseFloat(c.Query("max_lon"), 180),
	}
	if opts.RadiusKm <= 0 {
		zoom := parseInt(c.Query("zoom"), baseZoom)
		opts.RadiusKm = RadiusForZoom(zoom)
	}

	hits, err := h.Facade.PlacesForMap(c.Request.Context(), s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "places failed"})
		return
	}

	places := make([]models.Place, len(hits))
	for i, hit := range hits {
		places[i] = hit.Place
	}

	clusters := Build(places, opts)
	c.JSON(http.StatusOK, gin.H{
		"radius_km":     opts.RadiusKm,
		"place_count":   len(places),
		"cluster_count": len(clusters),
		"clusters":      clusters,
	})
}

func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
