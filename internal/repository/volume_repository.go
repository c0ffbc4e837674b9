package repository

import (
	"context"
	"errors"
	"fmt"

	"mangako/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VolumeRepository interface {
	GetByID(ctx context.Context, id string) (*models.Volume, error)
	ListByManga(ctx context.Context, mangaID string) ([]models.Volume, error)
	CountByManga(ctx context.Context, mangaID string) (int64, error)
	Upsert(ctx context.Context, v *models.Volume) error
	UpsertBatch(ctx context.Context, volumes []models.Volume) error
	ReplaceSlots(ctx context.Context, mangaID string, volumes []models.Volume) error
	ResetOwnedForManga(ctx context.Context, mangaID string) (int64, error)
	DeleteByManga(ctx context.Context, mangaID string) (int64, error)
	MangaIDsWithSpecialEditions(ctx context.Context) ([]string, error)
}

type volumeRepository struct {
	db *gorm.DB
}

func NewVolumeRepository(db *gorm.DB) VolumeRepository {
	return &volumeRepository{db: db}
}

var volumeUpsertColumns = []string{
	"manga_id", "title", "cover_url", "volume", "locale", "owned",
	"source_updated_at", "is_special_edition",
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(volumeUpsertColumns),
	}
}

func (r *volumeRepository) GetByID(ctx context.Context, id string) (*models.Volume, error) {
	var v models.Volume
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get volume: %w", err)
	}
	return &v, nil
}

// ListByManga returns the manga's volumes by number, unnumbered ones last.
func (r *volumeRepository) ListByManga(ctx context.Context, mangaID string) ([]models.Volume, error) {
	var list []models.Volume
	if err := r.db.WithContext(ctx).
		Where("manga_id = ?", mangaID).
		Order("CASE WHEN volume IS NULL THEN 1 ELSE 0 END, volume asc, id asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	return list, nil
}

func (r *volumeRepository) CountByManga(ctx context.Context, mangaID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Volume{}).
		Where("manga_id = ?", mangaID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count volumes: %w", err)
	}
	return count, nil
}

func (r *volumeRepository) Upsert(ctx context.Context, v *models.Volume) error {
	v.Classify()
	// Select("*") keeps owned=false from being dropped as a zero value
	if err := r.db.WithContext(ctx).Clauses(upsertClause()).Select("*").Create(v).Error; err != nil {
		return fmt.Errorf("upsert volume: %w", err)
	}
	return nil
}

// UpsertBatch writes every volume in one transaction; either all rows land or none.
func (r *volumeRepository) UpsertBatch(ctx context.Context, volumes []models.Volume) error {
	if len(volumes) == 0 {
		return nil
	}
	for i := range volumes {
		volumes[i].Classify()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(upsertClause()).Select("*").Create(&volumes).Error
	})
	if err != nil {
		return fmt.Errorf("upsert volumes: %w", err)
	}
	return nil
}

// ReplaceSlots persists reconciled volumes of one manga. Any stored row that
// shares a volume number with an incoming record under a different id is
// removed first, so each numbered slot keeps a single row.
func (r *volumeRepository) ReplaceSlots(ctx context.Context, mangaID string, volumes []models.Volume) error {
	if len(volumes) == 0 {
		return nil
	}
	for i := range volumes {
		volumes[i].MangaID = mangaID
		volumes[i].Classify()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored []models.Volume
		if err := tx.Where("manga_id = ? AND volume IS NOT NULL", mangaID).Find(&stored).Error; err != nil {
			return err
		}

		keep := make(map[string]string, len(volumes))
		for _, v := range volumes {
			if k := v.Key(); k != "" {
				keep[k] = v.ID
			}
		}

		var stale []string
		for _, s := range stored {
			if id, ok := keep[s.Key()]; ok && id != s.ID {
				stale = append(stale, s.ID)
			}
		}
		if len(stale) > 0 {
			if err := tx.Where("id IN ?", stale).Delete(&models.Volume{}).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(upsertClause()).Select("*").Create(&volumes).Error
	})
	if err != nil {
		return fmt.Errorf("replace volume slots: %w", err)
	}
	return nil
}

func (r *volumeRepository) ResetOwnedForManga(ctx context.Context, mangaID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Volume{}).
		Where("manga_id = ? AND owned = ?", mangaID, true).
		Update("owned", false)
	if result.Error != nil {
		return 0, fmt.Errorf("reset owned volumes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *volumeRepository) DeleteByManga(ctx context.Context, mangaID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("manga_id = ?", mangaID).Delete(&models.Volume{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete volumes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *volumeRepository) MangaIDsWithSpecialEditions(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.Volume{}).
		Distinct("manga_id").
		Where("is_special_edition = ?", true).
		Pluck("manga_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list special edition manga: %w", err)
	}
	return ids, nil
}
