package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const grantKeyPrefix = "rbac:grants:"

// GrantCache is a Redis read-through cache over a user's resolved roles and
// effective permissions. Writes to the graph invalidate affected entries;
// the TTL is only a backstop, not the consistency mechanism.
type GrantCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewGrantCache instantiates the cache helper.
func NewGrantCache(client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{client: client, ttl: ttl}
}

type cachedGrants struct {
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

// Fetch loads the user's grants from cache or populates them via the
// loader. Concurrent misses for the same user share one loader call.
func (c *GrantCache) Fetch(ctx context.Context, userID int64, loader func(context.Context) ([]Role, []Permission, error)) ([]Role, []Permission, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := grantKey(userID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var stored cachedGrants
		if err := json.Unmarshal(payload, &stored); err == nil {
			return stored.Roles, stored.Permissions, nil
		}
		// Unreadable entry: drop it and rebuild.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return nil, nil, err
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		roles, perms, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		grants := cachedGrants{Roles: roles, Permissions: perms}
		if raw, err := json.Marshal(grants); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return grants, nil
	})
	if err != nil {
		return nil, nil, err
	}
	grants := value.(cachedGrants)
	return grants.Roles, grants.Permissions, nil
}

// Invalidate drops the cached grants for one user.
func (c *GrantCache) Invalidate(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, grantKey(userID)).Err()
}

// InvalidateAll drops every cached grant entry.
func (c *GrantCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, grantKeyPrefix+"*", 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = c.client.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

func grantKey(userID int64) string {
	return grantKeyPrefix + strconv.FormatInt(userID, 10)
}
