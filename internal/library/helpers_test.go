package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"mangako/database"
	"mangako/internal/repository"
	"mangako/pkg/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- MOCK CATALOG ---

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SearchManga(ctx context.Context, title string, offset, limit int) ([]models.Manga, error) {
	args := m.Called(ctx, title, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Manga), args.Error(1)
}

func (m *MockCatalog) ListVolumes(ctx context.Context, manga models.Manga, offset, limit int) ([]models.Volume, error) {
	args := m.Called(ctx, manga.ID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Volume), args.Error(1)
}

func (m *MockCatalog) GetManga(ctx context.Context, id string) (*models.Manga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Manga), args.Error(1)
}

// failingVolumes wraps a real repository and fails the writes it is told to.
type failingVolumes struct {
	repository.VolumeRepository
	failUpsert  bool
	failBatch   bool
	failReplace bool
}

var errDiskFull = errors.New("disk full")

func (f *failingVolumes) Upsert(ctx context.Context, v *models.Volume) error {
	if f.failUpsert {
		return errDiskFull
	}
	return f.VolumeRepository.Upsert(ctx, v)
}

func (f *failingVolumes) UpsertBatch(ctx context.Context, volumes []models.Volume) error {
	if f.failBatch {
		return errDiskFull
	}
	return f.VolumeRepository.UpsertBatch(ctx, volumes)
}

func (f *failingVolumes) ReplaceSlots(ctx context.Context, mangaID string, volumes []models.Volume) error {
	if f.failReplace {
		return errDiskFull
	}
	return f.VolumeRepository.ReplaceSlots(ctx, mangaID, volumes)
}

// --- SETUP ---

type testStore struct {
	db      *gorm.DB
	mangas  repository.MangaRepository
	volumes repository.VolumeRepository
	syncs   repository.SyncStateRepository
}

func setupStore(t *testing.T) *testStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "library_test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = database.Close(db)
	})

	return &testStore{
		db:      db,
		mangas:  repository.NewMangaRepository(db),
		volumes: repository.NewVolumeRepository(db),
		syncs:   repository.NewSyncStateRepository(db),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testManga(id string, inLibrary bool) models.Manga {
	return models.Manga{
		ID:              id,
		Title:           "Manga " + id,
		CoverURL:        "https://uploads.mangadex.org/covers/" + id + "/default-cover.png",
		IsOnUserLibrary: inLibrary,
	}
}

func storeManga(t *testing.T, s *testStore, m models.Manga) {
	t.Helper()
	require.NoError(t, s.mangas.Upsert(context.Background(), &m))
}

func vol(id, mangaID string, number *float64, updatedAt string) models.Volume {
	v := models.NewVolume(id, mangaID, "Volume "+id, "https://uploads.mangadex.org/covers/"+mangaID+"/"+id+".jpg.512.jpg", number)
	if updatedAt != "" {
		v.SourceUpdatedAt = &updatedAt
	}
	return v
}

func owned(v models.Volume) models.Volume {
	v.Owned = true
	return v
}

func ids(list []models.Volume) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.ID)
	}
	return out
}

func byID(list []models.Volume, id string) (models.Volume, bool) {
	for _, v := range list {
		if v.ID == id {
			return v, true
		}
	}
	return models.Volume{}, false
}

var n = models.Float
