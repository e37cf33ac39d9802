package query

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imagination/internal/corpus"
)

type Handler struct {
	Facade *Facade
}

func NewHandler(f *Facade) *Handler {
	return &Handler{Facade: f}
}

// RegisterMapRoutes wires the session-scoped read endpoints.
func (h *Handler) RegisterMapRoutes(rg *gin.RouterGroup) {
	rg.GET("/map/places", h.placesForMap)
	rg.GET("/map/places/:id", h.placeDetails)
}

// RegisterBookRoutes wires the global book detail endpoint.
func (h *Handler) RegisterBookRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.bookDetails)
}

func (h *Handler) placesForMap(c *gin.Context) {
	s := corpus.MustGetSession(c)
	if s == nil {
		return
	}

	hits, err := h.Facade.PlacesForMap(c.Request.Context(), s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "places failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"book_count":  s.Size(),
		"place_count": len(hits),
		"places":      hits,
	})
}

func (h *Handler) placeDetails(c *gin.Context) {
	s := corpus.MustGetSession(c)
	if s == nil {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid place id"})
		return
	}

	det, err := h.Facade.PlaceDetails(c.Request.Context(), s, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "details failed"})
		return
	}
	if det == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, det)
}

func (h *Handler) bookDetails(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	det, err := h.Facade.BookDetails(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if det == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, det)
}
