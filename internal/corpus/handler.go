package corpus

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"imagination/internal/events"
	"imagination/internal/gazetteer"
)

type Handler struct {
	Manager *Manager
	Hub     *events.Hub
}

func NewHandler(m *Manager, hub *events.Hub) *Handler {
	return &Handler{Manager: m, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/corpus", h.current)
	rg.PUT("/corpus", h.load)
	rg.POST("/corpus/reset", h.reset)
	rg.POST("/corpus/sample", h.sample)
}

type loadReq struct {
	BookIDs []int64 `json:"book_ids"`
}

type sampleReq struct {
	Author   string `json:"author"`
	Category string `json:"category"`
	YearFrom int    `json:"year_from"`
	YearTo   int    `json:"year_to"`
	Size     int    `json:"size"`
}

func (h *Handler) current(c *gin.Context) {
	s := MustGetSession(c)
	if s == nil {
		return
	}
	ids := s.Current()
	c.JSON(http.StatusOK, gin.H{
		"book_count": len(ids),
		"book_ids":   ids,
	})
}

func (h *Handler) reset(c *gin.Context) {
	s := MustGetSession(c)
	if s == nil {
		return
	}

	if err := h.Manager.Reset(c.Request.Context(), s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}

	h.broadcast(c, "corpus.reset", s, 0, 0)
	c.JSON(http.StatusOK, gin.H{"book_count": s.Size()})
}

func (h *Handler) load(c *gin.Context) {
	s := MustGetSession(c)
	if s == nil {
		return
	}

	var req loadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.BookIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book_ids required"})
		return
	}

	dropped, err := h.Manager.Load(c.Request.Context(), s, req.BookIDs)
	if err != nil {
		if errors.Is(err, ErrNoValidBooks) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no valid book ids"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}

	h.broadcast(c, "corpus.load", s, dropped, 0)
	c.JSON(http.StatusOK, gin.H{
		"book_count": s.Size(),
		"dropped":    dropped,
	})
}

func (h *Handler) sample(c *gin.Context) {
	s := MustGetSession(c)
	if s == nil {
		return
	}

	var req sampleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	f := gazetteer.Filter{
		Author:   req.Author,
		Category: req.Category,
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
	}

	shortfall, err := h.Manager.Sample(c.Request.Context(), s, f, req.Size)
	if err != nil {
		if errors.Is(err, ErrNoMatches) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filter matched no books"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sample failed"})
		return
	}

	h.broadcast(c, "corpus.sample", s, 0, shortfall)
	c.JSON(http.StatusOK, gin.H{
		"book_count": s.Size(),
		"shortfall":  shortfall,
	})
}

func (h *Handler) broadcast(c *gin.Context, typ string, s *Session, dropped, shortfall int) {
	if h.Hub == nil {
		return
	}
	ev := events.CorpusEvent{
		Type:      typ,
		SessionID: SessionID(c),
		BookCount: s.Size(),
		Dropped:   dropped,
		Shortfall: shortfall,
		At:        time.Now().UTC(),
	}
	go h.Hub.BroadcastJSON(ev)
}
