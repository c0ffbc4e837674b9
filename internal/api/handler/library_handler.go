package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"mangako/internal/api/dto"
	"mangako/internal/library"

	"github.com/gin-gonic/gin"
)

type LibraryHandler struct {
	svc LibraryService
}

func NewLibraryHandler(svc LibraryService) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

func (h *LibraryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Add)
	rg.GET("/:manga_id", h.Status)
	rg.DELETE("/:manga_id", h.Remove)
}

// List the collection: GET /api/library?q=&incomplete=true&special=true
func (h *LibraryHandler) List(c *gin.Context) {
	incomplete, _ := strconv.ParseBool(c.DefaultQuery("incomplete", "false"))
	special, _ := strconv.ParseBool(c.DefaultQuery("special", "false"))
	filter := library.Filter{
		Query:               c.Query("q"),
		IncompleteOnly:      incomplete,
		SpecialEditionsOnly: special,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.svc.Collection(ctx, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Add manga to the library, fetching it from the catalog when unknown
func (h *LibraryHandler) Add(c *gin.Context) {
	var req dto.AddToLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	manga, err := h.svc.AddToLibrary(ctx, req.MangaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, manga)
}

func (h *LibraryHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	mangaID := c.Param("manga_id")
	in, err := h.svc.IsInLibrary(ctx, mangaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LibraryStatusResponse{MangaID: mangaID, InLibrary: in})
}

func (h *LibraryHandler) Remove(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.RemoveFromLibrary(ctx, c.Param("manga_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "manga removed from library"})
}
