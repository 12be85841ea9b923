package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/ports"
)

// RedisDenylist is a Redis implementation of the Denylist interface
type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDenylist creates a new Redis denylist
func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{
		client: client,
		prefix: "walletauth:revoked:",
	}
}

var _ ports.Denylist = (*RedisDenylist)(nil)

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisDenylist) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisDenylist) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}
