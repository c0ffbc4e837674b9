package library

import (
	"context"
	"strings"

	"mangako/internal/repository"
	"mangako/pkg/models"
)

// Filter narrows the collection view. Zero value shows everything.
type Filter struct {
	Query               string
	IncompleteOnly      bool
	SpecialEditionsOnly bool
}

// CollectionView is one load of the library with its filter applied.
type CollectionView struct {
	Items           []models.MangaWithOwned `json:"items"`
	Total           int                     `json:"total"`
	SpecialEditions []string                `json:"special_editions"`
}

// Collection reads the user's library for the collection screen.
type Collection struct {
	mangas  repository.MangaRepository
	volumes repository.VolumeRepository
}

func NewCollection(mangas repository.MangaRepository, volumes repository.VolumeRepository) *Collection {
	return &Collection{mangas: mangas, volumes: volumes}
}

// Load lists library manga with owned counts and applies f.
func (c *Collection) Load(ctx context.Context, f Filter) (*CollectionView, error) {
	items, err := c.mangas.ListInLibrary(ctx)
	if err != nil {
		return nil, storageError("load collection", err)
	}
	special, err := c.volumes.MangaIDsWithSpecialEditions(ctx)
	if err != nil {
		return nil, storageError("load special editions", err)
	}

	specialSet := make(map[string]struct{}, len(special))
	for _, id := range special {
		specialSet[id] = struct{}{}
	}

	view := &CollectionView{
		Items:           ApplyFilter(items, specialSet, f),
		Total:           len(items),
		SpecialEditions: special,
	}
	return view, nil
}

// ApplyFilter keeps the items matching every condition of f, in input order.
func ApplyFilter(items []models.MangaWithOwned, special map[string]struct{}, f Filter) []models.MangaWithOwned {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.MangaWithOwned, 0, len(items))
	for _, m := range items {
		if q != "" && !matchesTitle(m.Manga, q) {
			continue
		}
		if f.IncompleteOnly && m.VolumeOwned >= m.VolumeCount {
			continue
		}
		if f.SpecialEditionsOnly {
			if _, ok := special[m.ID]; !ok {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func matchesTitle(m models.Manga, q string) bool {
	if strings.Contains(strings.ToLower(m.Title), q) {
		return true
	}
	return m.AltTitle != nil && strings.Contains(strings.ToLower(*m.AltTitle), q)
}
