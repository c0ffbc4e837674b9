package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mangako/internal/repository"
	"mangako/pkg/models"
)

// Membership adds and removes manga from the user's library. Each call
// commits on its own; the InLibrary observable of a manga changes only after
// the store write succeeded.
type Membership struct {
	mangas                repository.MangaRepository
	logger                *slog.Logger
	deleteVolumesOnRemove bool

	mu       sync.Mutex
	watchers map[string]*Observable[bool]
}

type MembershipConfig struct {
	// DeleteVolumesOnRemove deletes volume rows on removal instead of only
	// resetting their owned flag.
	DeleteVolumesOnRemove bool
	Logger                *slog.Logger
}

func NewMembership(mangas repository.MangaRepository, cfg MembershipConfig) *Membership {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Membership{
		mangas:                mangas,
		logger:                cfg.Logger,
		deleteVolumesOnRemove: cfg.DeleteVolumesOnRemove,
		watchers:              make(map[string]*Observable[bool]),
	}
}

// DeletesVolumesOnRemove reports the configured removal mode.
func (m *Membership) DeletesVolumesOnRemove() bool {
	return m.deleteVolumesOnRemove
}

// InLibrary returns the observable membership flag of a manga.
func (m *Membership) InLibrary(mangaID string) *Observable[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.watchers[mangaID]
	if !ok {
		o = NewObservable(false)
		m.watchers[mangaID] = o
	}
	return o
}

// AddToLibrary inserts or updates the manga with the library flag set.
func (m *Membership) AddToLibrary(ctx context.Context, manga models.Manga) error {
	if manga.ID == "" {
		return fmt.Errorf("add to library: %w: empty manga id", ErrInvalidState)
	}
	manga.IsOnUserLibrary = true
	if err := m.mangas.Upsert(ctx, &manga); err != nil {
		m.logger.Error("library_add_failed", "manga_id", manga.ID, "error", err)
		return storageError("add to library", err)
	}

	m.InLibrary(manga.ID).Set(true)
	m.logger.Info("library_added", "manga_id", manga.ID, "title", manga.Title)
	return nil
}

// RemoveFromLibrary clears the library flag and resets ownership of every
// volume of the manga in one transaction (or deletes the volumes when so
// configured). A manga that is not stored yields ErrNotFound.
func (m *Membership) RemoveFromLibrary(ctx context.Context, mangaID string) error {
	if err := m.mangas.RemoveFromLibrary(ctx, mangaID, m.deleteVolumesOnRemove); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Error("library_remove_failed", "manga_id", mangaID, "error", err)
		}
		return storageError("remove from library", err)
	}

	m.InLibrary(mangaID).Set(false)
	m.logger.Info("library_removed",
		"manga_id", mangaID,
		"volumes_deleted", m.deleteVolumesOnRemove,
	)
	return nil
}

// IsInLibrary checks the local store only. A manga that is not stored is not in the library.
func (m *Membership) IsInLibrary(ctx context.Context, mangaID string) (bool, error) {
	manga, err := m.mangas.GetByID(ctx, mangaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, storageError("check library", err)
	}
	return manga.IsOnUserLibrary, nil
}

// EnsureManga stores the manga when it has no row yet and leaves an existing
// row untouched. It publishes the stored library flag.
func (m *Membership) EnsureManga(ctx context.Context, manga models.Manga) (*models.Manga, error) {
	if _, err := m.mangas.Insert(ctx, &manga); err != nil {
		return nil, storageError("ensure manga", err)
	}
	stored, err := m.mangas.GetByID(ctx, manga.ID)
	if err != nil {
		return nil, storageError("ensure manga", err)
	}
	m.InLibrary(stored.ID).Set(stored.IsOnUserLibrary)
	return stored, nil
}

// UpdateMetadata refreshes catalog fields of a stored manga without touching
// its library flag.
func (m *Membership) UpdateMetadata(ctx context.Context, manga models.Manga) (*models.Manga, error) {
	updated, err := m.mangas.UpdateMetadata(ctx, &manga)
	if err != nil {
		return nil, storageError("update manga metadata", err)
	}
	return updated, nil
}

// Get returns the stored manga.
func (m *Membership) Get(ctx context.Context, mangaID string) (*models.Manga, error) {
	manga, err := m.mangas.GetByID(ctx, mangaID)
	if err != nil {
		return nil, storageError("get manga", err)
	}
	return manga, nil
}
