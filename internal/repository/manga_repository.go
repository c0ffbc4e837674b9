package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mangako/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the requested manga or volume row does not exist.
var ErrNotFound = errors.New("record not found")

type MangaRepository interface {
	GetByID(ctx context.Context, id string) (*models.Manga, error)
	List(ctx context.Context) ([]models.Manga, error)
	ListInLibrary(ctx context.Context) ([]models.MangaWithOwned, error)
	SearchByTitle(ctx context.Context, title string) ([]models.Manga, error)
	Upsert(ctx context.Context, m *models.Manga) error
	Insert(ctx context.Context, m *models.Manga) (bool, error)
	UpdateMetadata(ctx context.Context, m *models.Manga) (*models.Manga, error)
	RemoveFromLibrary(ctx context.Context, id string, deleteVolumes bool) error
	Delete(ctx context.Context, id string) error
}

type mangaRepository struct {
	db *gorm.DB
}

func NewMangaRepository(db *gorm.DB) MangaRepository {
	return &mangaRepository{db: db}
}

func (r *mangaRepository) GetByID(ctx context.Context, id string) (*models.Manga, error) {
	var m models.Manga
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get manga: %w", err)
	}
	return &m, nil
}

func (r *mangaRepository) List(ctx context.Context) ([]models.Manga, error) {
	var list []models.Manga
	if err := r.db.WithContext(ctx).Order("title asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list manga: %w", err)
	}
	return list, nil
}

// ListInLibrary returns library manga with the number of owned volumes each.
func (r *mangaRepository) ListInLibrary(ctx context.Context) ([]models.MangaWithOwned, error) {
	var list []models.Manga
	if err := r.db.WithContext(ctx).
		Where("on_user_library = ?", true).
		Order("title asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	if len(list) == 0 {
		return []models.MangaWithOwned{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}

	type ownedCount struct {
		MangaID string
		Owned   int
	}
	var counts []ownedCount
	if err := r.db.WithContext(ctx).
		Model(&models.Volume{}).
		Select("manga_id, COUNT(*) AS owned").
		Where("manga_id IN ? AND owned = ?", ids, true).
		Group("manga_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count owned volumes: %w", err)
	}

	owned := make(map[string]int, len(counts))
	for _, c := range counts {
		owned[c.MangaID] = c.Owned
	}

	result := make([]models.MangaWithOwned, 0, len(list))
	for _, m := range list {
		result = append(result, models.MangaWithOwned{Manga: m, VolumeOwned: owned[m.ID]})
	}
	return result, nil
}

// SearchByTitle performs a case-insensitive partial match on title and alt title.
func (r *mangaRepository) SearchByTitle(ctx context.Context, title string) ([]models.Manga, error) {
	var list []models.Manga
	title = strings.TrimSpace(title)
	if title == "" {
		return list, nil
	}

	p := "%" + strings.ToLower(title) + "%"
	if err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(COALESCE(alt_title,'')) LIKE ?", p, p).
		Order("title asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("search manga by title: %w", err)
	}
	return list, nil
}

// Upsert inserts the manga or overwrites every column of the existing row.
func (r *mangaRepository) Upsert(ctx context.Context, m *models.Manga) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "alt_title", "type", "cover_id", "cover_file_name", "cover_url",
			"author_id", "author", "description", "status", "volume_count",
			"on_user_library", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("upsert manga: %w", err)
	}
	return nil
}

// Insert stores the manga only when no row exists yet. It reports whether a row was created.
func (r *mangaRepository) Insert(ctx context.Context, m *models.Manga) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if result.Error != nil {
		return false, fmt.Errorf("insert manga: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateMetadata refreshes catalog fields and keeps the library flag untouched.
func (r *mangaRepository) UpdateMetadata(ctx context.Context, m *models.Manga) (*models.Manga, error) {
	var updated *models.Manga
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Manga
		if err := tx.Where("id = ?", m.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		existing.Title = m.Title
		existing.AltTitle = m.AltTitle
		existing.Author = m.Author
		existing.AuthorID = m.AuthorID
		existing.CoverURL = m.CoverURL
		existing.CoverID = m.CoverID
		existing.CoverFileName = m.CoverFileName
		existing.Description = m.Description
		existing.Status = m.Status
		if m.VolumeCount > 0 {
			existing.VolumeCount = m.VolumeCount
		}

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		updated = &existing
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update manga metadata: %w", err)
	}
	return updated, nil
}

// RemoveFromLibrary clears the library flag and, in the same transaction,
// either resets ownership on every volume of the manga or deletes them.
func (r *mangaRepository) RemoveFromLibrary(ctx context.Context, id string, deleteVolumes bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Manga{}).
			Where("id = ?", id).
			Update("on_user_library", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if deleteVolumes {
			return tx.Where("manga_id = ?", id).Delete(&models.Volume{}).Error
		}
		return tx.Model(&models.Volume{}).
			Where("manga_id = ? AND owned = ?", id, true).
			Update("owned", false).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("remove from library: %w", err)
	}
	return nil
}

func (r *mangaRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("manga_id = ?", id).Delete(&models.Volume{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Manga{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete manga: %w", err)
	}
	return nil
}
