package library

import (
	"context"
	"errors"
	"testing"

	"mangako/internal/repository"
	"mangako/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRefresher(store *testStore, catalog Catalog, metadata bool) *Refresher {
	return NewRefresher(catalog, store.mangas, store.volumes, store.syncs, RefreshConfig{
		Workers:         2,
		PageSize:        2,
		RefreshMetadata: metadata,
		Logger:          discardLogger(),
	})
}

func TestRefreshManga_AllPagesReconciled(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	manga := testManga("M", true)
	storeManga(t, store, manga)
	require.NoError(t, store.volumes.Upsert(ctx, ptrVol(owned(vol("old1", "M", n(1), "2023-01-01")))))

	catalog := new(MockCatalog)
	catalog.On("ListVolumes", mock.Anything, "M", 0, 2).Return([]models.Volume{
		vol("a", "M", n(1), "2024-01-01"),
		vol("b", "M", n(2), ""),
	}, nil).Once()
	catalog.On("ListVolumes", mock.Anything, "M", 2, 2).Return([]models.Volume{
		vol("a-late", "M", n(1), "2023-06-01"),
	}, nil).Once()

	kept, err := newRefresher(store, catalog, false).RefreshManga(ctx, manga)
	require.NoError(t, err)
	assert.Equal(t, 2, kept)

	list, err := store.volumes.ListByManga(ctx, "M")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(list))
	assert.True(t, list[0].Owned)

	state, err := store.syncs.Get(ctx, models.VolumeSyncType("M"))
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, state.Status)
	assert.Equal(t, "3", state.LastCursor)
	assert.NotNil(t, state.LastSuccessAt)
	catalog.AssertExpectations(t)
}

func TestRefreshManga_NetworkFailureRecorded(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	manga := testManga("M", true)
	storeManga(t, store, manga)
	require.NoError(t, store.volumes.Upsert(ctx, ptrVol(owned(vol("keep", "M", n(1), "")))))

	catalog := new(MockCatalog)
	catalog.On("ListVolumes", mock.Anything, "M", 0, 2).Return(nil, errors.New("timeout")).Once()

	_, err := newRefresher(store, catalog, false).RefreshManga(ctx, manga)
	require.ErrorIs(t, err, ErrNetwork)

	state, err := store.syncs.Get(ctx, models.VolumeSyncType("M"))
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, state.Status)
	assert.Contains(t, state.ErrorMessage, "timeout")

	stored, err := store.volumes.GetByID(ctx, "keep")
	require.NoError(t, err)
	assert.True(t, stored.Owned, "a failed refresh leaves the store alone")
}

func TestRefreshAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	storeManga(t, store, testManga("A", true))
	storeManga(t, store, testManga("B", true))
	storeManga(t, store, testManga("skip", false))

	updated := testManga("A", false)
	updated.Title = "Fresh title"
	updated.VolumeCount = 1

	catalog := new(MockCatalog)
	catalog.On("GetManga", mock.Anything, "A").Return(&updated, nil).Once()
	catalog.On("GetManga", mock.Anything, "B").Return(nil, errors.New("404")).Once()
	catalog.On("ListVolumes", mock.Anything, "A", 0, 2).Return([]models.Volume{vol("a1", "A", n(1), "")}, nil).Once()
	catalog.On("ListVolumes", mock.Anything, "B", 0, 2).Return(nil, errors.New("503")).Once()

	report, err := newRefresher(store, catalog, true).RefreshAll(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Manga)
	assert.Equal(t, 1, report.Refreshed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Volumes)

	a, err := store.mangas.GetByID(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Fresh title", a.Title)
	assert.True(t, a.IsOnUserLibrary, "metadata refresh keeps library membership")

	run, err := store.syncs.Get(ctx, LibraryRefreshSyncType)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, run.Status)
	assert.Equal(t, report.RunID, run.LastCursor)

	catalog.AssertNotCalled(t, "ListVolumes", mock.Anything, "skip", mock.Anything, mock.Anything)
	catalog.AssertExpectations(t)
}

// cancellingMangas cancels the run right after the library has been listed.
type cancellingMangas struct {
	repository.MangaRepository
	cancel context.CancelFunc
}

func (m *cancellingMangas) ListInLibrary(ctx context.Context) ([]models.MangaWithOwned, error) {
	list, err := m.MangaRepository.ListInLibrary(ctx)
	m.cancel()
	return list, err
}

func TestRefreshAll_CancelledRunCountsEveryManga(t *testing.T) {
	store := setupStore(t)
	storeManga(t, store, testManga("A", true))
	storeManga(t, store, testManga("B", true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := new(MockCatalog)
	mangas := &cancellingMangas{MangaRepository: store.mangas, cancel: cancel}
	r := NewRefresher(catalog, mangas, store.volumes, store.syncs, RefreshConfig{
		Workers:  2,
		PageSize: 2,
		Logger:   discardLogger(),
	})

	report, err := r.RefreshAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.Equal(t, 2, report.Manga)
	assert.Equal(t, 0, report.Refreshed)
	assert.Equal(t, report.Manga, report.Refreshed+report.Failed)
	catalog.AssertNotCalled(t, "ListVolumes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	run, err := store.syncs.Get(context.Background(), LibraryRefreshSyncType)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, run.Status)
}
