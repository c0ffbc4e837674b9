package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mangako/pkg/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncStateRepository interface {
	Get(ctx context.Context, syncType string) (*models.SyncState, error)
	Update(ctx context.Context, syncType, status, cursor string, syncErr error) error
	List(ctx context.Context) ([]models.SyncState, error)
}

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) Get(ctx context.Context, syncType string) (*models.SyncState, error) {
	var state models.SyncState
	if err := r.db.WithContext(ctx).Where("sync_type = ?", syncType).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return &state, nil
}

// Update records a run for syncType, creating the row on first use.
func (r *syncStateRepository) Update(ctx context.Context, syncType, status, cursor string, syncErr error) error {
	now := time.Now()
	state := models.SyncState{
		SyncType:   syncType,
		LastRunAt:  &now,
		LastCursor: cursor,
		Status:     status,
	}
	columns := []string{"last_run_at", "last_cursor", "status", "error_message", "updated_at"}

	if status == models.SyncStatusCompleted {
		state.LastSuccessAt = &now
		columns = append(columns, "last_success_at")
	}
	if syncErr != nil {
		state.ErrorMessage = syncErr.Error()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sync_type"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	return nil
}

func (r *syncStateRepository) List(ctx context.Context) ([]models.SyncState, error) {
	var states []models.SyncState
	if err := r.db.WithContext(ctx).Order("sync_type asc").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("list sync state: %w", err)
	}
	return states, nil
}
