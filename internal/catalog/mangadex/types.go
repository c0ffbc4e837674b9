package mangadex

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================
// API RESPONSE STRUCTURES
// ============================================

// MangaListResponse represents the response from GET /manga
type MangaListResponse struct {
	Result   string      `json:"result"`
	Response string      `json:"response"`
	Data     []MangaData `json:"data"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Total    int         `json:"total"`
}

// MangaResponse represents the response from GET /manga/{id}
type MangaResponse struct {
	Result   string    `json:"result"`
	Response string    `json:"response"`
	Data     MangaData `json:"data"`
}

// MangaData represents a single manga entry from the API
type MangaData struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Attributes    MangaAttributes `json:"attributes"`
	Relationships []Relationship  `json:"relationships"`
}

// MangaAttributes contains manga metadata
type MangaAttributes struct {
	Title       map[string]string   `json:"title"`
	AltTitles   []map[string]string `json:"altTitles"`
	Description map[string]string   `json:"description"`
	Status      string              `json:"status"` // "ongoing", "completed", "hiatus", "cancelled"
	Year        int                 `json:"year"`
	LastVolume  string              `json:"lastVolume"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
}

// Relationship represents related entities (author, artist, cover_art)
type Relationship struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"` // "author", "artist", "cover_art"
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// CoverListResponse represents the response from GET /cover
type CoverListResponse struct {
	Result   string      `json:"result"`
	Response string      `json:"response"`
	Data     []CoverData `json:"data"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Total    int         `json:"total"`
}

// CoverData represents one cover (edition) of a manga volume
type CoverData struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes CoverAttributes `json:"attributes"`
}

// CoverAttributes contains cover metadata
type CoverAttributes struct {
	Description string  `json:"description"`
	Volume      *string `json:"volume"`
	FileName    string  `json:"fileName"`
	Locale      string  `json:"locale"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	Version     int     `json:"version"`
}

// ============================================
// HELPER FUNCTIONS
// ============================================

const coverHost = "https://uploads.mangadex.org/covers"

// CoverURL builds the 512px thumbnail URL for a cover file
func CoverURL(mangaID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s.512.jpg", coverHost, mangaID, fileName)
}

// DefaultCoverURL is used when a manga has no cover_art relationship
func DefaultCoverURL(mangaID string) string {
	return fmt.Sprintf("%s/%s/default-cover.png", coverHost, mangaID)
}

// ParseVolumeNumber converts the catalog's volume designator into a number.
// Missing or non-numeric designators ("", "none", "1-2") yield nil.
func ParseVolumeNumber(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// PreferredTitle picks en, then an English alt title, then ja-ro, then pt-br
func PreferredTitle(attrs MangaAttributes) string {
	if t := attrs.Title["en"]; t != "" {
		return t
	}
	if t := altTitle(attrs.AltTitles, "en"); t != "" {
		return t
	}
	if t := attrs.Title["ja-ro"]; t != "" {
		return t
	}
	if t := attrs.Title["pt-br"]; t != "" {
		return t
	}
	if t := altTitle(attrs.AltTitles, "pt-br"); t != "" {
		return t
	}
	// Return first available
	for _, t := range attrs.Title {
		if t != "" {
			return t
		}
	}
	return "Untitled"
}

// RomanizedAltTitle returns the ja-ro alt title, if any
func RomanizedAltTitle(attrs MangaAttributes) *string {
	if t := altTitle(attrs.AltTitles, "ja-ro"); t != "" {
		return &t
	}
	return nil
}

// PreferredDescription picks pt-br, then en, then ja-ro
func PreferredDescription(attrs MangaAttributes) string {
	for _, lang := range []string{"pt-br", "en", "ja-ro"} {
		if d := attrs.Description[lang]; d != "" {
			return d
		}
	}
	return "No description available"
}

func altTitle(alts []map[string]string, lang string) string {
	for _, alt := range alts {
		if t, ok := alt[lang]; ok && t != "" {
			return t
		}
	}
	return ""
}

// relationship returns the first relationship of the given type
func relationship(rels []Relationship, relType string) (Relationship, bool) {
	for _, rel := range rels {
		if rel.Type == relType {
			return rel, true
		}
	}
	return Relationship{}, false
}

func stringAttr(rel Relationship, key string) string {
	if v, ok := rel.Attributes[key].(string); ok {
		return v
	}
	return ""
}
