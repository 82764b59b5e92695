package quotations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *ListCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewListCache(client, time.Minute)
}

func TestListCacheServesSecondReadFromRedis(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": 3}, nil
	}

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "quotations:list", &first, loader))
	assert.Equal(t, 1, loads)
	assert.Equal(t, 3, first["total"])

	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "quotations:list", &second, loader))
	assert.Equal(t, 1, loads, "second read must come from cache")
	assert.Equal(t, 3, second["total"])
}

func TestListCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": loads}, nil
	}

	var out map[string]int
	require.NoError(t, cache.FetchJSON(ctx, "quotations:list", &out, loader))
	require.NoError(t, cache.Bump(ctx))
	require.NoError(t, cache.FetchJSON(ctx, "quotations:list", &out, loader))

	assert.Equal(t, 2, loads, "bump must retire the cached entry")
	assert.Equal(t, 2, out["total"])
}

func TestListCacheFallsBackWhenRedisFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewListCache(client, time.Minute)

	mr.SetError("connection refused")

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": 5}, nil
	}

	var out map[string]int
	require.NoError(t, cache.FetchJSON(context.Background(), "quotations:list", &out, loader))
	assert.Equal(t, 1, loads, "a failing redis must not take reads down")
	assert.Equal(t, 5, out["total"])
}

func TestListCacheNilDegradesToLoader(t *testing.T) {
	var cache *ListCache

	loads := 0
	loader := func(context.Context) (interface{}, error) {
		loads++
		return map[string]int{"total": 7}, nil
	}

	var out map[string]int
	require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, loader))
	require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, loader))
	assert.Equal(t, 2, loads)
	assert.Equal(t, 7, out["total"])
	assert.NoError(t, cache.Bump(context.Background()))
}

func TestListKeyIsDeterministic(t *testing.T) {
	status := StatusDraft
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	req := ListQuotationsRequest{Status: &status, Search: "acme", DateFrom: &from, Limit: 20, Offset: 40}

	assert.Equal(t, listKey(req), listKey(req))
	assert.NotEqual(t, listKey(req), listKey(ListQuotationsRequest{Limit: 20, Offset: 40}))
}
