// Package cache is the Redis-backed key-value layer sitting in front
// of the relational store: URL extraction results, paginated media
// listings, aggregate stats, and queue stats are all cached here with
// short, endpoint-appropriate TTLs. Every method is best-effort: a
// disconnected or erroring Redis flips the cache to a transparent
// no-op rather than surfacing an error to callers.
package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	urlTTL       = 3600 * time.Second
	mediaListTTL = 60 * time.Second
	statsTTL     = 30 * time.Second
	queueStatTTL = 5 * time.Second
)

// Cache wraps a go-redis client with the pipeline's cache-key scheme.
type Cache struct {
	rdb *redis.Client
}

// New builds a Cache around an already-configured *redis.Client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Client exposes the underlying client for callers that need raw
// Redis access beyond this cache's key scheme.
func (c *Cache) Client() *redis.Client {
	return c.rdb
}

// URLKey builds the cache key for an extracted media list, keyed by
// the scraped page URL.
func URLKey(url string) string {
	enc := base64.URLEncoding.EncodeToString([]byte(url))
	if len(enc) > 100 {
		enc = enc[:100]
	}
	return "url:" + enc
}

// MediaListKey builds the cache key for a paginated, filtered media
// listing page.
func MediaListKey(page, limit int, mediaType, search string) string {
	if mediaType == "" {
		mediaType = "all"
	}
	return fmt.Sprintf("media:list:%d:%d:%s:%s", page, limit, mediaType, search)
}

// MediaStatsKey is the single cache key for aggregate media counts.
const MediaStatsKey = "stats:media"

// QueueStatsKey is the single cache key for queue depth/stat snapshots.
const QueueStatsKey = "queue:stats"

// GetURL fetches a previously-cached extraction result for a page URL.
// A cache miss, a disconnected client, or a stale/corrupt payload all
// return (nil, false) rather than an error: per I6, cache reads never
// raise.
func (c *Cache) GetURL(ctx context.Context, url string) ([]CachedAsset, bool) {
	var assets []CachedAsset
	if !c.getJSON(ctx, URLKey(url), &assets) {
		return nil, false
	}
	return assets, true
}

// SetURL caches the extraction result for a page URL.
func (c *Cache) SetURL(ctx context.Context, url string, assets []CachedAsset) {
	c.setJSON(ctx, URLKey(url), assets, urlTTL)
}

// CachedAsset mirrors model.ExtractedAsset without importing the model
// package, keeping cache a leaf dependency.
type CachedAsset struct {
	MediaURL string `json:"media_url"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
}

// GetJSON fetches an arbitrary JSON-encoded value (media listing
// pages, stats snapshots) into dest, reporting whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	return c.getJSON(ctx, key, dest)
}

// SetMediaList caches a paginated media listing response.
func (c *Cache) SetMediaList(ctx context.Context, key string, value any) {
	c.setJSON(ctx, key, value, mediaListTTL)
}

// SetMediaStats caches the aggregate media-stats response.
func (c *Cache) SetMediaStats(ctx context.Context, value any) {
	c.setJSON(ctx, MediaStatsKey, value, statsTTL)
}

// SetQueueStats caches the queue-stats response.
func (c *Cache) SetQueueStats(ctx context.Context, value any) {
	c.setJSON(ctx, QueueStatsKey, value, queueStatTTL)
}

// InvalidateMedia deletes every media:* and stats:media key, called
// after a worker persists new media for a job.
func (c *Cache) InvalidateMedia(ctx context.Context) {
	c.deletePattern(ctx, "media:*")
	c.del(ctx, MediaStatsKey)
}

func (c *Cache) getJSON(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

func (c *Cache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *Cache) del(ctx context.Context, keys ...string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}

// deletePattern scans for keys matching pattern and deletes them in
// batches. Used instead of the blocking KEYS command so invalidation
// never stalls the Redis event loop under a large keyspace.
func (c *Cache) deletePattern(ctx context.Context, pattern string) {
	if c.rdb == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = c.rdb.Del(ctx, keys...).Err()
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
}

// Ping reports whether the cache is reachable, used by the health
// endpoints.
func (c *Cache) Ping(ctx context.Context) bool {
	if c.rdb == nil {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}
