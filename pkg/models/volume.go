package models

import (
	"fmt"
	"math"
	"strconv"
)

// Volume is one catalog cover of a manga. Several covers may share the same
// logical volume number; reconciliation keeps one per number.
type Volume struct {
	ID       string   `json:"id" gorm:"primaryKey;size:64"`
	MangaID  string   `json:"manga_id" gorm:"not null;index;size:64"`
	Title    string   `json:"title"`
	CoverURL string   `json:"cover_url"`
	Volume   *float64 `json:"volume"` // nil when the catalog gives no usable number
	Locale   string   `json:"locale,omitempty"`
	Owned    bool     `json:"owned" gorm:"not null;default:false"`

	// SourceUpdatedAt is the catalog's last-modified timestamp (ISO 8601).
	SourceUpdatedAt  *string `json:"updated_at,omitempty" gorm:"column:source_updated_at"`
	IsSpecialEdition bool    `json:"is_special_edition" gorm:"not null;default:false;index"`
}

func (Volume) TableName() string {
	return "volume"
}

// NewVolume builds a classified volume record.
func NewVolume(id, mangaID, title, coverURL string, number *float64) Volume {
	v := Volume{
		ID:       id,
		MangaID:  mangaID,
		Title:    title,
		CoverURL: coverURL,
		Volume:   number,
	}
	v.Classify()
	return v
}

// Classify derives IsSpecialEdition from the volume number.
func (v *Volume) Classify() {
	v.IsSpecialEdition = IsSpecialEditionNumber(v.Volume)
}

// IsSpecialEditionNumber reports whether n is a non-integral edition number (e.g. 13.1).
func IsSpecialEditionNumber(n *float64) bool {
	if n == nil {
		return false
	}
	return *n != math.Trunc(*n)
}

// HasNumber reports whether the volume carries a usable number.
func (v Volume) HasNumber() bool {
	return v.Volume != nil
}

// Key identifies the logical slot (manga + number). Unnumbered volumes have no slot.
func (v Volume) Key() string {
	if v.Volume == nil {
		return ""
	}
	return v.MangaID + "#" + strconv.FormatFloat(*v.Volume, 'f', -1, 64)
}

// DisplayNumber renders the number without a trailing ".0".
func (v Volume) DisplayNumber() string {
	if v.Volume == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v.Volume, 'f', -1, 64)
}

func (v Volume) String() string {
	return fmt.Sprintf("%s vol.%s (%s)", v.Title, v.DisplayNumber(), v.ID)
}

// Float is a small helper for building volume numbers in literals.
func Float(f float64) *float64 {
	return &f
}
