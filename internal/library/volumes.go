package library

import (
	"context"
	"log/slog"
	"sync"

	"mangako/internal/repository"
	"mangako/pkg/models"
)

const (
	DefaultVolumePageSize = 50
	DefaultNearEndWindow  = 3
)

// VolumeSession drives the volume list of one open manga. It pages covers in
// from the catalog, reconciles them against the local store and publishes the
// result. All list mutations are serialised on mu so a page merge never
// interleaves with an ownership change. Observers are notified while mu is
// held and must not call back into the session.
type VolumeSession struct {
	manga    models.Manga
	catalog  Catalog
	volumes  repository.VolumeRepository
	logger   *slog.Logger
	pageSize int
	cursor   *Cursor

	mu     sync.Mutex
	gen    uint64
	closed bool
	// loaded is set once page 0 has been applied.
	loaded bool

	Volumes   *Observable[[]models.Volume]
	Loading   *Observable[bool]
	Exhausted *Observable[bool]
	Selection *Selection
}

type SessionConfig struct {
	PageSize int
	Logger   *slog.Logger
}

func NewVolumeSession(manga models.Manga, catalog Catalog, volumes repository.VolumeRepository, cfg SessionConfig) *VolumeSession {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultVolumePageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VolumeSession{
		manga:     manga,
		catalog:   catalog,
		volumes:   volumes,
		logger:    cfg.Logger,
		pageSize:  cfg.PageSize,
		cursor:    NewCursor(),
		Volumes:   NewObservable([]models.Volume{}),
		Loading:   NewObservable(false),
		Exhausted: NewObservable(false),
		Selection: NewSelection(),
	}
}

func (s *VolumeSession) Manga() models.Manga {
	return s.manga
}

func (s *VolumeSession) State() CursorState {
	return s.cursor.State()
}

func (s *VolumeSession) Offset() int {
	return s.cursor.Offset()
}

// LoadFirstPage serves a complete stored copy when there is one, otherwise
// fetches offset 0, reconciles it against the store and persists it.
func (s *VolumeSession) LoadFirstPage(ctx context.Context) error {
	gen, ok := s.begin()
	if !ok {
		return nil
	}
	return s.loadFirst(ctx, gen)
}

func (s *VolumeSession) loadFirst(ctx context.Context, gen uint64) error {
	stored := s.stored(ctx)
	if len(stored) > 0 && len(stored) >= s.manga.VolumeCount {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stale(gen) {
			return nil
		}
		s.cursor.SetOffset(0)
		s.cursor.Finish(len(stored), nil)
		s.loaded = true
		s.Volumes.Set(stored)
		s.Loading.Set(false)
		s.logger.Debug("volumes_served_from_store", "manga_id", s.manga.ID, "count", len(stored))
		return nil
	}

	return s.fetchFirst(ctx, gen, stored)
}

// LoadNextPage advances one page. It is a no-op while a page is in flight or
// after the catalog has run out. When the store already holds more records
// than the new offset, the stored list is served without a network call.
// Until page 0 has been applied it loads page 0 instead.
func (s *VolumeSession) LoadNextPage(ctx context.Context) error {
	gen, ok := s.begin()
	if !ok {
		return nil
	}
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return s.loadFirst(ctx, gen)
	}

	next := s.cursor.Offset() + s.pageSize

	stored := s.stored(ctx)
	if len(stored) > next {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stale(gen) {
			return nil
		}
		s.cursor.SetOffset(next)
		s.cursor.Finish(len(stored)-next, nil)
		s.Volumes.Set(stored)
		s.Loading.Set(false)
		return nil
	}

	page, err := s.catalog.ListVolumes(ctx, s.manga, next, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		return nil
	}
	if err != nil {
		s.fail(err)
		return networkError("load next volume page", err)
	}
	if len(page) == 0 {
		s.exhaust()
		return nil
	}

	CarryOwnership(stored, page)
	merged := Merge(s.Volumes.Get(), page)
	s.persist(ctx, merged, next)

	s.cursor.SetOffset(next)
	s.cursor.Finish(len(page), nil)
	s.Volumes.Set(merged)
	s.Loading.Set(false)
	return nil
}

// Refresh drops the current paging state and reloads page 0 from the catalog.
// A page still in flight from before the refresh is discarded on arrival.
func (s *VolumeSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.cursor.Restart()
	s.mu.Unlock()

	s.Exhausted.Set(false)
	s.Loading.Set(true)

	return s.fetchFirst(ctx, gen, s.stored(ctx))
}

// NearEnd reports whether index is within window items of the end of the
// visible list while more pages may still exist.
func (s *VolumeSession) NearEnd(index, window int) bool {
	if window <= 0 {
		window = DefaultNearEndWindow
	}
	n := len(s.Volumes.Get())
	return index >= n-window && s.cursor.HasMore() && s.cursor.State() != CursorLoading
}

// Close invalidates the session; results arriving afterwards are dropped.
func (s *VolumeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
}

func (s *VolumeSession) fetchFirst(ctx context.Context, gen uint64, stored []models.Volume) error {
	page, err := s.catalog.ListVolumes(ctx, s.manga, 0, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		return nil
	}
	if err != nil {
		s.fail(err)
		return networkError("load first volume page", err)
	}
	if len(page) == 0 {
		s.loaded = true
		s.Volumes.Set(stored)
		s.exhaust()
		return nil
	}

	reconciled := Reconcile(stored, page)
	s.persist(ctx, reconciled, 0)

	s.cursor.SetOffset(0)
	s.cursor.Finish(len(page), nil)
	s.loaded = true
	s.Volumes.Set(reconciled)
	s.Loading.Set(false)
	return nil
}

func (s *VolumeSession) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.cursor.Begin() {
		return 0, false
	}
	s.Loading.Set(true)
	return s.gen, true
}

// stale must be called with mu held.
func (s *VolumeSession) stale(gen uint64) bool {
	return s.closed || gen != s.gen
}

func (s *VolumeSession) stored(ctx context.Context) []models.Volume {
	stored, err := s.volumes.ListByManga(ctx, s.manga.ID)
	if err != nil {
		s.logger.Warn("volume_store_read_failed", "manga_id", s.manga.ID, "error", err)
		return nil
	}
	return stored
}

// persist writes a reconciled list. A failure is logged and the in-memory
// result still stands.
func (s *VolumeSession) persist(ctx context.Context, list []models.Volume, offset int) {
	if err := s.volumes.ReplaceSlots(ctx, s.manga.ID, list); err != nil {
		s.logger.Error("volume_page_persist_failed",
			"manga_id", s.manga.ID,
			"offset", offset,
			"error", storageError("persist volume page", err),
		)
	}
}

func (s *VolumeSession) fail(err error) {
	s.cursor.Finish(0, err)
	s.Loading.Set(false)
	s.logger.Warn("volume_page_fetch_failed", "manga_id", s.manga.ID, "error", err)
}

func (s *VolumeSession) exhaust() {
	s.cursor.Finish(0, nil)
	s.Loading.Set(false)
	s.Exhausted.Set(true)
}

// libraryRemoved mirrors a library removal into the visible list.
func (s *VolumeSession) libraryRemoved(volumesDeleted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if volumesDeleted {
		s.gen++
		s.loaded = false
		s.cursor.Reset()
		s.Exhausted.Set(false)
		s.Loading.Set(false)
		s.Volumes.Set([]models.Volume{})
		return
	}

	list := s.Volumes.Get()
	next := make([]models.Volume, len(list))
	for i, v := range list {
		v.Owned = false
		next[i] = v
	}
	s.Volumes.Set(next)
}
