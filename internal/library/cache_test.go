package library

import (
	"context"
	"testing"
	"time"

	"mangako/pkg/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(ids ...string) []models.Manga {
	out := make([]models.Manga, 0, len(ids))
	for _, id := range ids {
		out = append(out, testManga(id, false))
	}
	return out
}

func mangaIDs(list []models.Manga) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.ID)
	}
	return out
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl, discardLogger()), mr
}

// cacheContract runs the behaviour every SearchCache must share.
func cacheContract(t *testing.T, newCache func(t *testing.T) SearchCache) {
	ctx := context.Background()

	t.Run("HitAndInvalidate", func(t *testing.T) {
		c := newCache(t)
		c.Put(ctx, "Naruto", 0, page("n1", "n2"))

		got, ok := c.Get(ctx, "Naruto", 0)
		require.True(t, ok)
		assert.Equal(t, []string{"n1", "n2"}, mangaIDs(got))

		c.Invalidate(ctx, "Naruto")
		_, ok = c.Get(ctx, "Naruto", 0)
		assert.False(t, ok)
	})

	t.Run("InvalidateIsExactMatch", func(t *testing.T) {
		c := newCache(t)
		c.Put(ctx, "Naruto", 0, page("n1"))
		c.Put(ctx, "Naruto", 6, page("n7"))
		c.Put(ctx, "Naruto Gaiden", 0, page("g1"))
		c.Put(ctx, "naruto", 0, page("lower"))

		c.Invalidate(ctx, "Naruto")

		_, ok := c.Get(ctx, "Naruto", 6)
		assert.False(t, ok)
		_, ok = c.Get(ctx, "Naruto Gaiden", 0)
		assert.True(t, ok)
		_, ok = c.Get(ctx, "naruto", 0)
		assert.True(t, ok)
	})

	t.Run("KeyedByOffset", func(t *testing.T) {
		c := newCache(t)
		c.Put(ctx, "One Piece", 0, page("a"))

		_, ok := c.Get(ctx, "One Piece", 6)
		assert.False(t, ok)
	})

	t.Run("Clear", func(t *testing.T) {
		c := newCache(t)
		c.Put(ctx, "a", 0, page("1"))
		c.Put(ctx, "b", 0, page("2"))
		c.Clear(ctx)

		_, ok := c.Get(ctx, "a", 0)
		assert.False(t, ok)
		_, ok = c.Get(ctx, "b", 0)
		assert.False(t, ok)
	})
}

func TestMemoryCache(t *testing.T) {
	cacheContract(t, func(t *testing.T) SearchCache { return NewMemoryCache(0) })
}

func TestRedisCache(t *testing.T) {
	cacheContract(t, func(t *testing.T) SearchCache {
		c, _ := newRedisCache(t, 0)
		return c
	})
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	c.Put(ctx, "a", 0, page("1"))
	c.Put(ctx, "b", 0, page("2"))
	c.Put(ctx, "a", 0, page("1b")) // overwrite keeps insertion position
	c.Put(ctx, "c", 0, page("3"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "a", 0)
	assert.False(t, ok, "oldest insertion is evicted first")
	_, ok = c.Get(ctx, "c", 0)
	assert.True(t, ok)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	p := page("1")
	c.Put(ctx, "q", 0, p)
	p[0].Title = "mutated"

	got, _ := c.Get(ctx, "q", 0)
	got[0].Title = "also mutated"

	again, _ := c.Get(ctx, "q", 0)
	assert.Equal(t, "Manga 1", again[0].Title)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, time.Minute)

	c.Put(ctx, "Berserk", 0, page("b1"))
	assert.True(t, mr.Exists("search:Berserk:0"))

	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "Berserk", 0)
	assert.False(t, ok)
}

func TestRedisCache_ErrorsReadAsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, 0)
	c.Put(ctx, "q", 0, page("1"))

	mr.Close()
	_, ok := c.Get(ctx, "q", 0)
	assert.False(t, ok)
}
