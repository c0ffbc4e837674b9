package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mangako/pkg/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisPagePrefix  = "search"
	redisIndexPrefix = "search-index"
	redisQueriesKey  = "search-queries"
)

// RedisCache is a SearchCache shared between processes. Pages are stored as
// JSON under search:{query}:{offset}; a set per query lists its page keys so
// Invalidate matches the query exactly. Redis errors are logged and read as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ SearchCache = (*RedisCache)(nil)

// NewRedisCache wraps client. A zero ttl keeps pages until invalidated.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func pageKey(query string, offset int) string {
	return fmt.Sprintf("%s:%s:%d", redisPagePrefix, query, offset)
}

func indexKey(query string) string {
	return redisIndexPrefix + ":" + query
}

func (c *RedisCache) Get(ctx context.Context, query string, offset int) ([]models.Manga, bool) {
	raw, err := c.client.Get(ctx, pageKey(query, offset)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("search_cache_get_failed", "query", query, "offset", offset, "error", err)
		}
		return nil, false
	}

	var page []models.Manga
	if err := json.Unmarshal(raw, &page); err != nil {
		c.logger.Warn("search_cache_decode_failed", "query", query, "offset", offset, "error", err)
		return nil, false
	}
	return page, true
}

func (c *RedisCache) Put(ctx context.Context, query string, offset int, page []models.Manga) {
	raw, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("search_cache_encode_failed", "query", query, "error", err)
		return
	}

	key := pageKey(query, offset)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, c.ttl)
		pipe.SAdd(ctx, indexKey(query), key)
		pipe.SAdd(ctx, redisQueriesKey, query)
		if c.ttl > 0 {
			pipe.Expire(ctx, indexKey(query), c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("search_cache_put_failed", "query", query, "offset", offset, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, query string) {
	keys, err := c.client.SMembers(ctx, indexKey(query)).Result()
	if err != nil {
		c.logger.Warn("search_cache_invalidate_failed", "query", query, "error", err)
		return
	}

	keys = append(keys, indexKey(query))
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, redisQueriesKey, query)
		return nil
	})
	if err != nil {
		c.logger.Warn("search_cache_invalidate_failed", "query", query, "error", err)
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	queries, err := c.client.SMembers(ctx, redisQueriesKey).Result()
	if err != nil {
		c.logger.Warn("search_cache_clear_failed", "error", err)
		return
	}
	for _, q := range queries {
		c.Invalidate(ctx, q)
	}
	if err := c.client.Del(ctx, redisQueriesKey).Err(); err != nil {
		c.logger.Warn("search_cache_clear_failed", "error", err)
	}
}
