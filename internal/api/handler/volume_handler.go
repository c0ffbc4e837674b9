package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"mangako/internal/api/dto"

	"github.com/gin-gonic/gin"
)

// catalog calls behind these routes may retry, so allow more than a store round trip
const catalogTimeout = 30 * time.Second

type VolumeHandler struct {
	svc LibraryService
}

func NewVolumeHandler(svc LibraryService) *VolumeHandler {
	return &VolumeHandler{svc: svc}
}

func (h *VolumeHandler) RegisterRoutes(manga, volumes *gin.RouterGroup) {
	manga.GET("/:manga_id/volumes", h.List)
	manga.POST("/:manga_id/volumes/next", h.Next)
	manga.POST("/:manga_id/volumes/refresh", h.Refresh)
	manga.PUT("/:manga_id/volumes/owned", h.SetOwned)
	volumes.POST("/:volume_id/toggle", h.Toggle)
}

// List returns the loaded volumes, fetching the first page if needed
func (h *VolumeHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	page, err := h.svc.Volumes(ctx, c.Param("manga_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Next loads the following page
func (h *VolumeHandler) Next(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	page, err := h.svc.NextVolumes(ctx, c.Param("manga_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *VolumeHandler) Refresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	page, err := h.svc.RefreshVolumes(ctx, c.Param("manga_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SetOwned applies one owned value to a batch of volumes
func (h *VolumeHandler) SetOwned(c *gin.Context) {
	var req dto.SetOwnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	page, err := h.svc.SetOwned(ctx, c.Param("manga_id"), req.IDs, *req.Owned, req.Confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Toggle flips one volume: POST /api/volumes/:volume_id/toggle?manga_id=...&confirm=true
func (h *VolumeHandler) Toggle(c *gin.Context) {
	mangaID := c.Query("manga_id")
	if mangaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "manga_id is required"})
		return
	}
	confirm, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), catalogTimeout)
	defer cancel()

	page, err := h.svc.ToggleOwned(ctx, mangaID, c.Param("volume_id"), confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
