package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"mangako/internal/repository"
	"mangako/pkg/models"
)

// VolumePage is a snapshot of an open manga's volume list.
type VolumePage struct {
	MangaID   string          `json:"manga_id"`
	Volumes   []models.Volume `json:"volumes"`
	Offset    int             `json:"offset"`
	State     string          `json:"state"`
	Exhausted bool            `json:"exhausted"`
	InLibrary bool            `json:"in_library"`
}

type EngineConfig struct {
	VolumePageSize        int
	SearchPageSize        int
	DeleteVolumesOnRemove bool
	Logger                *slog.Logger
}

// Engine wires the catalog, the store and the search cache together and
// keeps one VolumeSession per open manga.
type Engine struct {
	catalog    Catalog
	mangas     repository.MangaRepository
	volumes    repository.VolumeRepository
	cache      SearchCache
	membership *Membership
	collection *Collection
	logger     *slog.Logger

	volumePageSize int
	searchPageSize int

	mu   sync.Mutex
	open map[string]*openManga
}

type openManga struct {
	session     *VolumeSession
	gate        *OwnershipGate
	unsubscribe func()
}

func NewEngine(catalog Catalog, mangas repository.MangaRepository, volumes repository.VolumeRepository, cache SearchCache, cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.VolumePageSize <= 0 {
		cfg.VolumePageSize = DefaultVolumePageSize
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = DefaultSearchPageSize
	}
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	return &Engine{
		catalog: catalog,
		mangas:  mangas,
		volumes: volumes,
		cache:   cache,
		membership: NewMembership(mangas, MembershipConfig{
			DeleteVolumesOnRemove: cfg.DeleteVolumesOnRemove,
			Logger:                cfg.Logger,
		}),
		collection:     NewCollection(mangas, volumes),
		logger:         cfg.Logger,
		volumePageSize: cfg.VolumePageSize,
		searchPageSize: cfg.SearchPageSize,
		open:           make(map[string]*openManga),
	}
}

func (e *Engine) Membership() *Membership {
	return e.membership
}

// NewSearchSession starts an independent search context sharing the engine's cache.
func (e *Engine) NewSearchSession() *SearchSession {
	return NewSearchSession(e.catalog, e.cache, SearchConfig{PageSize: e.searchPageSize, Logger: e.logger})
}

// OpenManga returns the session of mangaID, creating it on first use. A manga
// that is not stored yet is fetched from the catalog and stored outside the library.
func (e *Engine) OpenManga(ctx context.Context, mangaID string) (*VolumeSession, *OwnershipGate, error) {
	e.mu.Lock()
	if om, ok := e.open[mangaID]; ok {
		e.mu.Unlock()
		return om.session, om.gate, nil
	}
	e.mu.Unlock()

	manga, err := e.resolveManga(ctx, mangaID)
	if err != nil {
		return nil, nil, err
	}

	session := NewVolumeSession(*manga, e.catalog, e.volumes, SessionConfig{
		PageSize: e.volumePageSize,
		Logger:   e.logger.With("manga_id", manga.ID),
	})
	gate := NewOwnershipGate(session, e.membership)

	e.mu.Lock()
	defer e.mu.Unlock()
	if om, ok := e.open[mangaID]; ok {
		session.Close()
		return om.session, om.gate, nil
	}

	inLibrary := e.membership.InLibrary(manga.ID)
	inLibrary.Set(manga.IsOnUserLibrary)
	var was atomic.Bool
	was.Store(manga.IsOnUserLibrary)
	unsubscribe := inLibrary.Subscribe(func(in bool) {
		if was.Swap(in) && !in {
			session.libraryRemoved(e.membership.DeletesVolumesOnRemove())
		}
	})

	e.open[mangaID] = &openManga{session: session, gate: gate, unsubscribe: unsubscribe}
	return session, gate, nil
}

// CloseManga drops the session of mangaID. Results still in flight are discarded.
func (e *Engine) CloseManga(mangaID string) {
	e.mu.Lock()
	om, ok := e.open[mangaID]
	delete(e.open, mangaID)
	e.mu.Unlock()
	if ok {
		om.unsubscribe()
		om.session.Close()
	}
}

// Close drops every open session.
func (e *Engine) Close() {
	e.mu.Lock()
	open := e.open
	e.open = make(map[string]*openManga)
	e.mu.Unlock()
	for _, om := range open {
		om.unsubscribe()
		om.session.Close()
	}
}

// Volumes returns the volume list of mangaID, loading the first page when the
// session has not loaded anything yet.
func (e *Engine) Volumes(ctx context.Context, mangaID string) (*VolumePage, error) {
	session, _, err := e.OpenManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if err := e.ensureLoaded(ctx, session); err != nil {
		return nil, err
	}
	return e.snapshot(session), nil
}

func (e *Engine) NextVolumes(ctx context.Context, mangaID string) (*VolumePage, error) {
	session, _, err := e.OpenManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	// LoadNextPage loads page 0 first when nothing has been applied yet.
	if err := session.LoadNextPage(ctx); err != nil {
		return nil, err
	}
	return e.snapshot(session), nil
}

func (e *Engine) RefreshVolumes(ctx context.Context, mangaID string) (*VolumePage, error) {
	session, _, err := e.OpenManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if err := session.Refresh(ctx); err != nil {
		return nil, err
	}
	return e.snapshot(session), nil
}

// ToggleOwned flips one volume. Without confirm a manga outside the library
// yields ErrConfirmationRequired; with confirm the manga is added first.
func (e *Engine) ToggleOwned(ctx context.Context, mangaID, volumeID string, confirm bool) (*VolumePage, error) {
	session, gate, err := e.OpenManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if err := e.ensureLoaded(ctx, session); err != nil {
		return nil, err
	}
	if err := e.gated(ctx, gate, confirm, gate.RequestToggle(ctx, volumeID)); err != nil {
		return nil, err
	}
	return e.snapshot(session), nil
}

// SetOwned sets owned on the listed visible volumes of mangaID in one batch.
func (e *Engine) SetOwned(ctx context.Context, mangaID string, ids []string, owned, confirm bool) (*VolumePage, error) {
	session, gate, err := e.OpenManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if err := e.ensureLoaded(ctx, session); err != nil {
		return nil, err
	}
	if err := e.gated(ctx, gate, confirm, gate.RequestSetOwned(ctx, ids, owned)); err != nil {
		return nil, err
	}
	return e.snapshot(session), nil
}

// AddToLibrary stores mangaID with the library flag set, fetching its
// metadata from the catalog when it is not stored yet.
func (e *Engine) AddToLibrary(ctx context.Context, mangaID string) (*models.Manga, error) {
	manga, err := e.resolveManga(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if err := e.membership.AddToLibrary(ctx, *manga); err != nil {
		return nil, err
	}
	return e.membership.Get(ctx, mangaID)
}

func (e *Engine) RemoveFromLibrary(ctx context.Context, mangaID string) error {
	return e.membership.RemoveFromLibrary(ctx, mangaID)
}

func (e *Engine) IsInLibrary(ctx context.Context, mangaID string) (bool, error) {
	return e.membership.IsInLibrary(ctx, mangaID)
}

func (e *Engine) Collection(ctx context.Context, f Filter) (*CollectionView, error) {
	return e.collection.Load(ctx, f)
}

// Search returns one page of catalog results for q, served from the cache
// when present. The second result reports a cache hit.
func (e *Engine) Search(ctx context.Context, q string, offset int) ([]models.Manga, bool, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, false, fmt.Errorf("search: %w: empty query", ErrInvalidState)
	}
	if offset < 0 {
		offset = 0
	}

	if page, ok := e.cache.Get(ctx, q, offset); ok {
		return page, true, nil
	}

	page, err := e.catalog.SearchManga(ctx, q, offset, e.searchPageSize)
	if err != nil {
		return nil, false, networkError("search", err)
	}
	if len(page) > 0 {
		e.cache.Put(ctx, q, offset, page)
	}
	return page, false, nil
}

// InvalidateSearch drops the cached pages of q, or every page when q is empty.
func (e *Engine) InvalidateSearch(ctx context.Context, q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		e.cache.Clear(ctx)
		return
	}
	e.cache.Invalidate(ctx, q)
}

func (e *Engine) resolveManga(ctx context.Context, mangaID string) (*models.Manga, error) {
	if strings.TrimSpace(mangaID) == "" {
		return nil, fmt.Errorf("resolve manga: %w: empty manga id", ErrInvalidState)
	}

	stored, err := e.membership.Get(ctx, mangaID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fetched, err := e.catalog.GetManga(ctx, mangaID)
	if err != nil {
		return nil, networkError("fetch manga", err)
	}
	fetched.IsOnUserLibrary = false
	return e.membership.EnsureManga(ctx, *fetched)
}

func (e *Engine) ensureLoaded(ctx context.Context, session *VolumeSession) error {
	switch session.State() {
	case CursorIdle:
	case CursorFailed:
		if len(session.Volumes.Get()) > 0 {
			return nil
		}
	default:
		return nil
	}
	return session.LoadFirstPage(ctx)
}

func (e *Engine) gated(ctx context.Context, gate *OwnershipGate, confirm bool, err error) error {
	if !errors.Is(err, ErrConfirmationRequired) {
		return err
	}
	if !confirm {
		gate.Cancel()
		return err
	}
	return gate.Confirm(ctx)
}

func (e *Engine) snapshot(session *VolumeSession) *VolumePage {
	manga := session.Manga()
	return &VolumePage{
		MangaID:   manga.ID,
		Volumes:   session.Volumes.Get(),
		Offset:    session.Offset(),
		State:     session.State().String(),
		Exhausted: session.Exhausted.Get(),
		InLibrary: e.membership.InLibrary(manga.ID).Get(),
	}
}
