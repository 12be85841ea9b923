package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// consumeScript performs the check-and-mark of a challenge hash in one step.
// Reply: {status, nonce, id, issued_at, expires_at}; status 1 is success.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'message', 'expires_at', 'consumed', 'nonce', 'id', 'issued_at')
if not rec[1] then
	return {0}
end
if rec[3] == '1' then
	return {-2}
end
if tonumber(rec[2]) <= tonumber(ARGV[2]) then
	return {-3}
end
if rec[1] ~= ARGV[1] then
	return {-1}
end
redis.call('HSET', KEYS[1], 'consumed', '1')
return {1, rec[4], rec[5], rec[6], rec[2]}
`)

// RedisNonceStore keeps one challenge hash per address in Redis
type RedisNonceStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisNonceStore creates a Redis nonce store.
// Keys live until the challenge expiry plus retention.
func NewRedisNonceStore(client redis.UniversalClient, retention time.Duration) *RedisNonceStore {
	return &RedisNonceStore{
		client:    client,
		prefix:    "walletauth:nonce:",
		retention: retention,
	}
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

// Issue replaces the challenge hash for the address
func (s *RedisNonceStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	key := s.prefix + challenge.Address
	ttl := time.Until(challenge.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", challenge.ID,
			"nonce", challenge.Nonce,
			"message", challenge.Message,
			"issued_at", strconv.FormatInt(challenge.IssuedAt.UnixMilli(), 10),
			"expires_at", strconv.FormatInt(challenge.ExpiresAt.UnixMilli(), 10),
			"consumed", "0",
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Consume runs the consume script against the address hash
func (s *RedisNonceStore) Consume(ctx context.Context, address, message string, now time.Time) (*core.Challenge, error) {
	key := s.prefix + address
	reply, err := consumeScript.Run(ctx, s.client, []string{key}, message, now.UnixMilli()).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	if len(reply) == 0 {
		return nil, errors.New("empty reply from consume script")
	}

	status, ok := reply[0].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected consume status %v", reply[0])
	}
	switch status {
	case 0:
		return nil, core.ErrNoSuchChallenge
	case -1:
		return nil, core.ErrChallengeMismatch
	case -2:
		return nil, core.ErrChallengeAlreadyUsed
	case -3:
		return nil, core.ErrChallengeExpired
	case 1:
	default:
		return nil, fmt.Errorf("unexpected consume status %d", status)
	}
	if len(reply) != 5 {
		return nil, fmt.Errorf("malformed consume reply of length %d", len(reply))
	}

	issuedAt, err := millis(reply[3])
	if err != nil {
		return nil, err
	}
	expiresAt, err := millis(reply[4])
	if err != nil {
		return nil, err
	}

	return &core.Challenge{
		ID:        fmt.Sprint(reply[2]),
		Address:   address,
		Nonce:     fmt.Sprint(reply[1]),
		Message:   message,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Consumed:  true,
	}, nil
}

func millis(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp %v", v)
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}
