package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RevocationCache keeps signed-out token ids in redis until they expire.
type RevocationCache struct {
	client *redisv9.Client
	prefix string
}

func NewRevocationCache(client *redisv9.Client, prefix string) *RevocationCache {
	if prefix == "" {
		prefix = "ragdesk"
	}
	return &RevocationCache{client: client, prefix: prefix}
}

func (c *RevocationCache) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation failed: %w", err)
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revocation failed: %w", err)
	}
	return exists > 0, nil
}

func (c *RevocationCache) key(tokenID string) string {
	return fmt.Sprintf("%s:session:revoked:%s", c.prefix, tokenID)
}
