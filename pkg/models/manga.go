package models

import "time"

// Manga is a catalog title the user has browsed or added to the library.
// The ID is the catalog identifier, not a local sequence.
type Manga struct {
	ID              string    `json:"id" gorm:"primaryKey;size:64"`
	Title           string    `json:"title" gorm:"not null"`
	AltTitle        *string   `json:"alt_title,omitempty"`
	Type            *string   `json:"type,omitempty"`
	CoverID         *string   `json:"cover_id,omitempty"`
	CoverFileName   *string   `json:"cover_file_name,omitempty"`
	CoverURL        string    `json:"cover_url"`
	AuthorID        *string   `json:"author_id,omitempty"`
	Author          *string   `json:"author,omitempty"`
	Description     string    `json:"description"`
	Status          *string   `json:"status,omitempty"`
	VolumeCount     int       `json:"volume_count" gorm:"not null;default:0"`
	IsOnUserLibrary bool      `json:"is_on_user_library" gorm:"column:on_user_library;not null;default:false;index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Manga) TableName() string {
	return "manga"
}

// MangaWithOwned is a library row together with how many of its volumes are owned.
type MangaWithOwned struct {
	Manga
	VolumeOwned int `json:"volume_owned"`
}

// IsComplete reports whether every known volume is owned.
func (m MangaWithOwned) IsComplete() bool {
	return m.VolumeCount > 0 && m.VolumeOwned >= m.VolumeCount
}
