package mangadex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mangako/internal/library"
	"mangako/pkg/models"
)

// Catalog adapts the MangaDex API to the library engine's catalog port.
type Catalog struct {
	client *MangaDexClient
	locale string
	logger *slog.Logger
}

var _ library.Catalog = (*Catalog)(nil)

// NewCatalog wraps client. locale filters cover listings (e.g. "ja").
func NewCatalog(client *MangaDexClient, locale string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{client: client, locale: locale, logger: logger}
}

// SearchManga returns one page of title matches. VolumeCount is filled from
// the cover total of each hit; a failed count leaves it at 0.
func (c *Catalog) SearchManga(ctx context.Context, title string, offset, limit int) ([]models.Manga, error) {
	resp, err := c.client.GetMangaList(ctx, BuildSearchParams(strings.TrimSpace(title), limit, offset))
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", library.ErrNetwork, title, err)
	}

	result := make([]models.Manga, 0, len(resp.Data))
	for _, d := range resp.Data {
		m := toManga(d)
		m.VolumeCount = c.coverTotal(ctx, d.ID)
		result = append(result, m)
	}

	c.logger.Debug("catalog_search",
		slog.String("title", title),
		slog.Int("offset", offset),
		slog.Int("results", len(result)),
	)
	return result, nil
}

// ListVolumes returns one page of the manga's covers as volume records.
func (c *Catalog) ListVolumes(ctx context.Context, manga models.Manga, offset, limit int) ([]models.Volume, error) {
	resp, err := c.client.GetCovers(ctx, BuildCoverParams(manga.ID, c.locale, limit, offset))
	if err != nil {
		return nil, fmt.Errorf("%w: list volumes of %s: %w", library.ErrNetwork, manga.ID, err)
	}

	volumes := make([]models.Volume, 0, len(resp.Data))
	for _, cover := range resp.Data {
		v := models.NewVolume(
			cover.ID,
			manga.ID,
			manga.Title,
			CoverURL(manga.ID, cover.Attributes.FileName),
			ParseVolumeNumber(cover.Attributes.Volume),
		)
		v.Locale = cover.Attributes.Locale
		if cover.Attributes.UpdatedAt != "" {
			updated := cover.Attributes.UpdatedAt
			v.SourceUpdatedAt = &updated
		}
		volumes = append(volumes, v)
	}
	return volumes, nil
}

// GetManga fetches fresh metadata for one manga.
func (c *Catalog) GetManga(ctx context.Context, id string) (*models.Manga, error) {
	resp, err := c.client.GetManga(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get manga %s: %w", library.ErrNetwork, id, err)
	}
	m := toManga(resp.Data)
	m.VolumeCount = c.coverTotal(ctx, id)
	return &m, nil
}

func (c *Catalog) coverTotal(ctx context.Context, mangaID string) int {
	resp, err := c.client.GetCovers(ctx, BuildCoverParams(mangaID, c.locale, 1, 0))
	if err != nil {
		c.logger.Warn("catalog_cover_total_failed",
			slog.String("manga_id", mangaID),
			slog.Any("error", err),
		)
		return 0
	}
	return resp.Total
}

func toManga(d MangaData) models.Manga {
	m := models.Manga{
		ID:          d.ID,
		Title:       PreferredTitle(d.Attributes),
		AltTitle:    RomanizedAltTitle(d.Attributes),
		Description: PreferredDescription(d.Attributes),
		CoverURL:    DefaultCoverURL(d.ID),
	}
	if d.Type != "" {
		t := d.Type
		m.Type = &t
	}
	if d.Attributes.Status != "" {
		s := d.Attributes.Status
		m.Status = &s
	}

	if rel, ok := relationship(d.Relationships, "author"); ok {
		id := rel.ID
		m.AuthorID = &id
		if name := stringAttr(rel, "name"); name != "" {
			m.Author = &name
		}
	}

	if rel, ok := relationship(d.Relationships, "cover_art"); ok {
		id := rel.ID
		m.CoverID = &id
		if fileName := stringAttr(rel, "fileName"); fileName != "" {
			m.CoverFileName = &fileName
			m.CoverURL = CoverURL(d.ID, fileName)
		}
	}
	return m
}
