package repository

import (
	"path/filepath"
	"testing"

	"mangako/pkg/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	dbPath := filepath.Join(t.TempDir(), "test_repository.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Manga{}, &models.Volume{}, &models.SyncState{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}

	return db, cleanup
}

func createTestManga(t *testing.T, db *gorm.DB, id, title string, inLibrary bool) *models.Manga {
	m := &models.Manga{
		ID:              id,
		Title:           title,
		CoverURL:        "https://uploads.mangadex.org/covers/" + id + "/cover.jpg.512.jpg",
		IsOnUserLibrary: inLibrary,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func createTestVolume(t *testing.T, db *gorm.DB, id, mangaID string, number *float64, owned bool) *models.Volume {
	v := models.NewVolume(id, mangaID, "Test", "https://example.com/"+id+".jpg", number)
	v.Owned = owned
	require.NoError(t, db.Select("*").Create(&v).Error)
	return &v
}

func ptr(s string) *string {
	return &s
}
