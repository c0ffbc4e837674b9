package dto

import "mangako/pkg/models"

// AddToLibraryRequest: payload to add a manga to the library
type AddToLibraryRequest struct {
	MangaID string `json:"manga_id" binding:"required"`
}

// SetOwnedRequest: batch ownership change for visible volumes
type SetOwnedRequest struct {
	IDs     []string `json:"ids" binding:"required,min=1"`
	Owned   *bool    `json:"owned" binding:"required"`
	Confirm bool     `json:"confirm"`
}

// LibraryStatusResponse: membership of a single manga
type LibraryStatusResponse struct {
	MangaID   string `json:"manga_id"`
	InLibrary bool   `json:"in_library"`
}

// SearchResponse: one page of catalog search results
type SearchResponse struct {
	Query  string         `json:"query"`
	Offset int            `json:"offset"`
	Cached bool           `json:"cached"`
	Items  []models.Manga `json:"items"`
}
