package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

const revokedPrefix = "wallet-session-revoked-"

// RedisRevocations shares the revocation list between instances.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (r *RedisRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if err := r.client.Set(revokedPrefix+sessionID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke: unable to save revocation of %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisRevocations) Revoked(_ context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(revokedPrefix + sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("revoked: unable to look up %s: %w", sessionID, err)
	}
	return n > 0, nil
}
