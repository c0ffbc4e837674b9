package handler

import (
	"context"
	"errors"
	"net/http"

	"mangako/internal/library"
	"mangako/pkg/models"

	"github.com/gin-gonic/gin"
)

// LibraryService is the part of the library engine the HTTP layer uses.
type LibraryService interface {
	Volumes(ctx context.Context, mangaID string) (*library.VolumePage, error)
	NextVolumes(ctx context.Context, mangaID string) (*library.VolumePage, error)
	RefreshVolumes(ctx context.Context, mangaID string) (*library.VolumePage, error)
	ToggleOwned(ctx context.Context, mangaID, volumeID string, confirm bool) (*library.VolumePage, error)
	SetOwned(ctx context.Context, mangaID string, ids []string, owned, confirm bool) (*library.VolumePage, error)

	AddToLibrary(ctx context.Context, mangaID string) (*models.Manga, error)
	RemoveFromLibrary(ctx context.Context, mangaID string) error
	IsInLibrary(ctx context.Context, mangaID string) (bool, error)
	Collection(ctx context.Context, f library.Filter) (*library.CollectionView, error)

	Search(ctx context.Context, q string, offset int) ([]models.Manga, bool, error)
	InvalidateSearch(ctx context.Context, q string)
}

var _ LibraryService = (*library.Engine)(nil)

// writeError maps engine errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, library.ErrConfirmationRequired):
		c.JSON(http.StatusConflict, gin.H{
			"error":                 err.Error(),
			"confirmation_required": true,
		})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, library.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
