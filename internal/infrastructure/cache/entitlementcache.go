package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	vo "lumina/internal/domain/subscription/valueobjects"
)

const (
	entitlementKeyPrefix = "entitlement:status:"
	entitlementTTL       = 5 * time.Minute
)

// EntitlementCache keeps the resolved subscription status per user so hot
// entitlement checks skip the database. Writes after a reconciliation pass
// replace the entry; anything that mutates state out of band invalidates it.
type EntitlementCache struct {
	client *redis.Client
}

// NewEntitlementCache creates a new EntitlementCache instance
func NewEntitlementCache(client *redis.Client) *EntitlementCache {
	return &EntitlementCache{client: client}
}

// GetStatus returns the cached status for the user. The second return value
// reports whether an entry was present.
func (c *EntitlementCache) GetStatus(ctx context.Context, userID uint) (vo.Status, bool, error) {
	key := entitlementKeyPrefix + strconv.FormatUint(uint64(userID), 10)

	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return vo.StatusNone, false, nil
	}
	if err != nil {
		return vo.StatusNone, false, fmt.Errorf("failed to read entitlement cache: %w", err)
	}

	status := vo.Status(value)
	if !vo.ValidStatuses[status] {
		return vo.StatusNone, false, nil
	}

	return status, true, nil
}

// SetStatus stores the resolved status for the user with the standard TTL.
func (c *EntitlementCache) SetStatus(ctx context.Context, userID uint, status vo.Status) error {
	key := entitlementKeyPrefix + strconv.FormatUint(uint64(userID), 10)

	if err := c.client.Set(ctx, key, status.String(), entitlementTTL).Err(); err != nil {
		return fmt.Errorf("failed to write entitlement cache: %w", err)
	}

	return nil
}

// Invalidate removes the cached entry for the user.
func (c *EntitlementCache) Invalidate(ctx context.Context, userID uint) error {
	key := entitlementKeyPrefix + strconv.FormatUint(uint64(userID), 10)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}

	return nil
}
