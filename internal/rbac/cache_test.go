package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*GrantCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewGrantCache(client, 5*time.Minute), mr
}

func TestGrantCacheFetchPopulates(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Role, []Permission, error) {
		loads++
		return []Role{{ID: 1, Name: "editor"}},
			[]Permission{{ID: 1, Resource: "user", Action: "read"}},
			nil
	}

	roles, perms, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Len(t, perms, 1)
	assert.Equal(t, 1, loads)

	// Second fetch is served from Redis.
	roles, perms, err = cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, "editor", roles[0].Name)
	assert.Equal(t, "user:read", perms[0].Code())
	assert.Equal(t, 1, loads)
}

func TestGrantCacheFetchLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("db down")
	_, _, err := cache.Fetch(ctx, 7, func(context.Context) ([]Role, []Permission, error) {
		return nil, nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// Failures are not cached.
	loads := 0
	_, _, err = cache.Fetch(ctx, 7, func(context.Context) ([]Role, []Permission, error) {
		loads++
		return nil, nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
}

func TestGrantCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Role, []Permission, error) {
		loads++
		return nil, []Permission{{ID: 1, Resource: "user", Action: "read"}}, nil
	}

	_, _, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	cache.Invalidate(ctx, 7)

	_, _, err = cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestGrantCacheInvalidateAll(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	loader := func(context.Context) ([]Role, []Permission, error) {
		return nil, nil, nil
	}
	for userID := int64(1); userID <= 3; userID++ {
		_, _, err := cache.Fetch(ctx, userID, loader)
		require.NoError(t, err)
	}
	// Unrelated keys survive the sweep.
	mr.Set("session:abc", "payload")

	cache.InvalidateAll(ctx)

	assert.False(t, mr.Exists("rbac:grants:1"))
	assert.False(t, mr.Exists("rbac:grants:2"))
	assert.False(t, mr.Exists("rbac:grants:3"))
	assert.True(t, mr.Exists("session:abc"))
}

func TestGrantCacheNilSafe(t *testing.T) {
	var cache *GrantCache
	ctx := context.Background()

	loads := 0
	roles, perms, err := cache.Fetch(ctx, 7, func(context.Context) ([]Role, []Permission, error) {
		loads++
		return []Role{{ID: 1}}, nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, roles, 1)
	assert.Nil(t, perms)
	assert.Equal(t, 1, loads)

	// No-ops, no panics.
	cache.Invalidate(ctx, 7)
	cache.InvalidateAll(ctx)
}

func TestGrantCacheExpiredEntryReloads(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Role, []Permission, error) {
		loads++
		return nil, []Permission{{ID: 1, Resource: "user", Action: "read"}}, nil
	}

	_, _, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)

	_, _, err = cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}
