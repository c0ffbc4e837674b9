package library

import (
	"context"

	"mangako/pkg/models"
)

// Catalog is the remote source of manga metadata and cover listings.
// Implementations should wrap transport failures in ErrNetwork.
type Catalog interface {
	SearchManga(ctx context.Context, title string, offset, limit int) ([]models.Manga, error)
	ListVolumes(ctx context.Context, manga models.Manga, offset, limit int) ([]models.Volume, error)
	GetManga(ctx context.Context, id string) (*models.Manga, error)
}
