package repository

import (
	"context"
	"testing"

	"mangako/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeRepository_ListByMangaOrdering(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)

	createTestVolume(t, db, "c", "m1", nil, false)
	createTestVolume(t, db, "b", "m1", models.Float(2), false)
	createTestVolume(t, db, "a", "m1", models.Float(1), false)
	createTestVolume(t, db, "s", "m1", models.Float(1.5), false)
	createTestVolume(t, db, "x", "m2", models.Float(1), false)

	list, err := repo.ListByManga(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, list, 4)

	ids := []string{list[0].ID, list[1].ID, list[2].ID, list[3].ID}
	assert.Equal(t, []string{"a", "s", "b", "c"}, ids)
	assert.True(t, list[1].IsSpecialEdition)
}

func TestVolumeRepository_UpsertKeepsOwnedFalse(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)
	ctx := context.Background()

	createTestVolume(t, db, "v1", "m1", models.Float(1), true)

	v, err := repo.GetByID(ctx, "v1")
	require.NoError(t, err)
	v.Owned = false
	require.NoError(t, repo.Upsert(ctx, v))

	got, err := repo.GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, got.Owned)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVolumeRepository_UpsertBatch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)
	ctx := context.Background()

	createTestVolume(t, db, "v1", "m1", models.Float(1), false)

	batch := []models.Volume{
		models.NewVolume("v1", "m1", "T", "u1", models.Float(1)),
		models.NewVolume("v2", "m1", "T", "u2", models.Float(13.1)),
	}
	batch[0].Owned = true
	require.NoError(t, repo.UpsertBatch(ctx, batch))

	count, err := repo.CountByManga(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	v1, err := repo.GetByID(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v1.Owned)

	v2, err := repo.GetByID(ctx, "v2")
	require.NoError(t, err)
	assert.True(t, v2.IsSpecialEdition)
}

func TestVolumeRepository_ReplaceSlotsCollapsesDuplicates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)
	ctx := context.Background()

	createTestVolume(t, db, "a", "m1", models.Float(1), true)
	createTestVolume(t, db, "z", "m1", models.Float(9), false)
	createTestVolume(t, db, "n", "m1", nil, false)

	b := models.NewVolume("b", "m1", "T", "u", models.Float(1))
	b.Owned = true
	c := models.NewVolume("c", "m1", "T", "u", models.Float(2))
	require.NoError(t, repo.ReplaceSlots(ctx, "m1", []models.Volume{b, c}))

	list, err := repo.ListByManga(ctx, "m1")
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, v := range list {
		ids = append(ids, v.ID)
	}
	// "a" lost its slot to "b"; unrelated slot 9 and the unnumbered row stay
	assert.Equal(t, []string{"b", "c", "z", "n"}, ids)
	assert.True(t, list[0].Owned)
}

func TestVolumeRepository_ResetAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)
	ctx := context.Background()

	createTestVolume(t, db, "v1", "m1", models.Float(1), true)
	createTestVolume(t, db, "v2", "m1", models.Float(2), true)
	createTestVolume(t, db, "v3", "m2", models.Float(1), true)

	n, err := repo.ResetOwnedForManga(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	other, err := repo.GetByID(ctx, "v3")
	require.NoError(t, err)
	assert.True(t, other.Owned)

	n, err = repo.DeleteByManga(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.CountByManga(ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVolumeRepository_MangaIDsWithSpecialEditions(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVolumeRepository(db)

	createTestVolume(t, db, "v1", "m1", models.Float(13.1), false)
	createTestVolume(t, db, "v2", "m1", models.Float(13.2), false)
	createTestVolume(t, db, "v3", "m2", models.Float(1), false)

	ids, err := repo.MangaIDsWithSpecialEditions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}
