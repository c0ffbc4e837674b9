package library

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"mangako/pkg/models"

	"github.com/google/uuid"
)

const DefaultSearchPageSize = 6

// SearchSession pages catalog search results for one active query.
// Pages come from the cache when present. Changing the query discards any
// fetch still running for the previous one: each fetch carries the query and
// a request token, and its result is applied only if both still match.
type SearchSession struct {
	catalog  Catalog
	cache    SearchCache
	logger   *slog.Logger
	pageSize int

	mu      sync.Mutex
	query   string
	token   uuid.UUID
	offset  int
	loading bool
	started bool
	cancel  context.CancelFunc

	Results   *Observable[[]models.Manga]
	Loading   *Observable[bool]
	Exhausted *Observable[bool]
}

type SearchConfig struct {
	PageSize int
	Logger   *slog.Logger
}

func NewSearchSession(catalog Catalog, cache SearchCache, cfg SearchConfig) *SearchSession {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultSearchPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SearchSession{
		catalog:   catalog,
		cache:     cache,
		logger:    cfg.Logger,
		pageSize:  cfg.PageSize,
		Results:   NewObservable([]models.Manga{}),
		Loading:   NewObservable(false),
		Exhausted: NewObservable(false),
	}
}

// Query returns the active query.
func (s *SearchSession) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery makes q the active query and loads its first page. Setting the
// query that is already active does nothing.
func (s *SearchSession) SetQuery(ctx context.Context, q string) error {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if s.started && q == s.query {
		s.mu.Unlock()
		return nil
	}
	token := s.restartLocked(q)
	s.Results.Set([]models.Manga{})
	s.mu.Unlock()

	return s.load(ctx, q, token, 0)
}

// LoadMore loads the page after the last one shown. It is a no-op while a
// page is loading or after the catalog returned an empty page.
func (s *SearchSession) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.loading || s.Exhausted.Get() {
		s.mu.Unlock()
		return nil
	}
	q, token, offset := s.query, s.token, s.offset
	s.loading = true
	s.mu.Unlock()

	return s.load(ctx, q, token, offset)
}

// Refresh invalidates the cached pages of the active query and fetches page 0 again.
func (s *SearchSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	q := s.query
	token := s.restartLocked(q)
	s.mu.Unlock()

	s.cache.Invalidate(ctx, q)
	return s.load(ctx, q, token, 0)
}

// restartLocked resets paging for q and returns the new request token.
func (s *SearchSession) restartLocked(q string) uuid.UUID {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.query = q
	s.token = uuid.New()
	s.offset = 0
	s.loading = true
	s.started = true
	s.Exhausted.Set(false)
	return s.token
}

func (s *SearchSession) load(ctx context.Context, q string, token uuid.UUID, offset int) error {
	s.Loading.Set(true)

	if page, ok := s.cache.Get(ctx, q, offset); ok {
		s.apply(ctx, q, token, offset, page, false)
		return nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	page, err := s.catalog.SearchManga(fetchCtx, q, offset, s.pageSize)

	s.mu.Lock()
	if q != s.query || token != s.token {
		s.mu.Unlock()
		s.logger.Debug("search_result_discarded", "query", q, "offset", offset)
		return nil
	}
	s.cancel = nil
	if err != nil {
		s.loading = false
		s.mu.Unlock()
		s.Loading.Set(false)
		s.logger.Warn("search_fetch_failed", "query", q, "offset", offset, "error", err)
		return networkError("search", err)
	}
	s.mu.Unlock()

	s.apply(ctx, q, token, offset, page, true)
	return nil
}

func (s *SearchSession) apply(ctx context.Context, q string, token uuid.UUID, offset int, page []models.Manga, fetched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q != s.query || token != s.token {
		return
	}
	s.loading = false

	if len(page) == 0 {
		s.Exhausted.Set(true)
		s.Loading.Set(false)
		return
	}
	if fetched {
		s.cache.Put(ctx, q, offset, page)
	}

	results := page
	if offset > 0 {
		current := s.Results.Get()
		results = make([]models.Manga, 0, len(current)+len(page))
		results = append(results, current...)
		results = append(results, page...)
	}
	s.offset = offset + s.pageSize
	s.Results.Set(results)
	s.Loading.Set(false)
}
