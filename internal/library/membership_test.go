package library

import (
	"context"
	"testing"

	"mangako/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_AddInsertsOrUpdates(t *testing.T) {
	store := setupStore(t)
	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})
	ctx := context.Background()

	var seen []bool
	m.InLibrary("M").Subscribe(func(in bool) { seen = append(seen, in) })

	require.NoError(t, m.AddToLibrary(ctx, testManga("M", false)))
	in, err := m.IsInLibrary(ctx, "M")
	require.NoError(t, err)
	assert.True(t, in)

	updated := testManga("M", false)
	updated.Title = "Renamed"
	require.NoError(t, m.AddToLibrary(ctx, updated))

	stored, err := m.Get(ctx, "M")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.True(t, stored.IsOnUserLibrary)
	assert.Equal(t, []bool{true, true}, seen)
}

func TestMembership_AddRejectsEmptyID(t *testing.T) {
	store := setupStore(t)
	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})

	err := m.AddToLibrary(context.Background(), models.Manga{Title: "No id"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMembership_RemoveResetsOwnership(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	storeManga(t, store, testManga("M", true))
	storeManga(t, store, testManga("other", true))
	require.NoError(t, store.volumes.UpsertBatch(ctx, fiveVolumes("M")))
	require.NoError(t, store.volumes.UpsertBatch(ctx, []models.Volume{owned(vol("o1", "other", n(1), ""))}))

	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})
	require.NoError(t, m.RemoveFromLibrary(ctx, "M"))

	in, err := m.IsInLibrary(ctx, "M")
	require.NoError(t, err)
	assert.False(t, in)
	assert.False(t, m.InLibrary("M").Get())

	list, err := store.volumes.ListByManga(ctx, "M")
	require.NoError(t, err)
	assert.Len(t, list, 5)
	for _, v := range list {
		assert.False(t, v.Owned, v.ID)
	}

	other, err := store.volumes.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, other.Owned, "other manga are untouched")
}

func TestMembership_RemoveDeletesVolumesWhenConfigured(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	storeManga(t, store, testManga("M", true))
	require.NoError(t, store.volumes.UpsertBatch(ctx, fiveVolumes("M")))

	m := NewMembership(store.mangas, MembershipConfig{DeleteVolumesOnRemove: true, Logger: discardLogger()})
	assert.True(t, m.DeletesVolumesOnRemove())
	require.NoError(t, m.RemoveFromLibrary(ctx, "M"))

	count, err := store.volumes.CountByManga(ctx, "M")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMembership_RemoveMissing(t *testing.T) {
	store := setupStore(t)
	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})

	var notified bool
	m.InLibrary("ghost").Subscribe(func(bool) { notified = true })

	err := m.RemoveFromLibrary(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, notified, "state is published only after a successful write")
}

func TestMembership_IsInLibraryUnknown(t *testing.T) {
	store := setupStore(t)
	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})

	in, err := m.IsInLibrary(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestMembership_EnsureMangaKeepsExistingRow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	storeManga(t, store, testManga("M", true))

	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})

	incoming := testManga("M", false)
	incoming.Title = "From catalog"
	stored, err := m.EnsureManga(ctx, incoming)
	require.NoError(t, err)
	assert.True(t, stored.IsOnUserLibrary)
	assert.Equal(t, "Manga M", stored.Title)
	assert.True(t, m.InLibrary("M").Get())

	fresh, err := m.EnsureManga(ctx, testManga("N", false))
	require.NoError(t, err)
	assert.False(t, fresh.IsOnUserLibrary)
}

func TestMembership_UpdateMetadataPreservesFlag(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	storeManga(t, store, testManga("M", true))

	m := NewMembership(store.mangas, MembershipConfig{Logger: discardLogger()})

	incoming := testManga("M", false)
	incoming.Title = "Updated"
	incoming.VolumeCount = 12
	updated, err := m.UpdateMetadata(ctx, incoming)
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, 12, updated.VolumeCount)
	assert.True(t, updated.IsOnUserLibrary)

	_, err = m.UpdateMetadata(ctx, testManga("missing", false))
	assert.ErrorIs(t, err, ErrNotFound)
}
