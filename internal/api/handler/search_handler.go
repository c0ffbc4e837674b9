package handler

import (
	"context"
	"net/http"
	"strconv"

	"mangako/internal/api/dto"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	svc LibraryService
}

func NewSearchHandler(svc LibraryService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Search)
	rg.DELETE("/cache", h.Invalidate)
}

// Search: GET /api/search?q=naruto&offset=6
func (h *SearchHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	items, cached, err := h.svc.Search(ctx, q, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SearchResponse{Query: q, Offset: offset, Cached: cached, Items: items})
}

// Invalidate drops cached pages for ?q=, or the whole cache without it
func (h *SearchHandler) Invalidate(c *gin.Context) {
	h.svc.InvalidateSearch(c.Request.Context(), c.Query("q"))
	c.Status(http.StatusNoContent)
}
