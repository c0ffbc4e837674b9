package models

import "time"

// Sync status values stored in sync_state.status
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusError     = "error"
)

// SyncState records the last refresh run for one browsing context
// (for example "volumes:<mangaID>").
type SyncState struct {
	ID            int    `gorm:"primaryKey"`
	SyncType      string `gorm:"unique;not null"`
	LastRunAt     *time.Time
	LastSuccessAt *time.Time
	LastCursor    string
	Status        string
	ErrorMessage  string
	UpdatedAt     time.Time
}

// TableName specifies the table name for SyncState
func (SyncState) TableName() string {
	return "sync_state"
}

// VolumeSyncType is the sync_state key for a manga's volume list.
func VolumeSyncType(mangaID string) string {
	return "volumes:" + mangaID
}
