package quotations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "quotations:version"

// ListCache caches quotation list responses in Redis behind a global version
// counter. Every write path bumps the version, which retires all cached pages
// at once without scanning keys. A nil cache degrades to loader-only.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache instantiates the cache helper.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

func (c *ListCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchJSON loads a cached value under the versioned key or populates it
// using the loader. Caching is best-effort: any Redis failure falls back to
// the loader so a dead cache never takes reads down with it.
func (c *ListCache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadDirect(ctx, dest, loader)
	}
	ver, err := c.version(ctx)
	if err != nil {
		return loadDirect(ctx, dest, loader)
	}
	versioned := fmt.Sprintf("%s:%d", key, ver)

	payload, err := c.client.Get(ctx, versioned).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	value, lerr := loader(ctx)
	if lerr != nil {
		return lerr
	}
	raw, merr := json.Marshal(value)
	if merr != nil {
		return merr
	}
	if err == redis.Nil {
		_ = c.client.Set(ctx, versioned, raw, c.ttl).Err()
	}
	return json.Unmarshal(raw, dest)
}

func loadDirect(ctx context.Context, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates all cached lists by incrementing the global version.
func (c *ListCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// listKey builds a deterministic cache key for the given filters. The cache
// version is appended separately by FetchJSON.
func listKey(req ListQuotationsRequest) string {
	parts := []string{"quotations", "list"}
	if req.Status != nil {
		parts = append(parts, "status="+string(*req.Status))
	}
	if req.CreatedBy != nil {
		parts = append(parts, "by="+strconv.FormatInt(*req.CreatedBy, 10))
	}
	if req.Search != "" {
		parts = append(parts, "q="+req.Search)
	}
	if req.DateFrom != nil {
		parts = append(parts, "from="+req.DateFrom.Format("20060102"))
	}
	if req.DateTo != nil {
		parts = append(parts, "to="+req.DateTo.Format("20060102"))
	}
	parts = append(parts, "limit="+strconv.Itoa(req.Limit), "offset="+strconv.Itoa(req.Offset))
	return strings.Join(parts, ":")
}
