package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/ports"
)

func TestDenylists(t *testing.T) {
	_, client := newRedisClient(t)

	for name, denylist := range map[string]ports.Denylist{
		"memory": NewMemoryDenylist(),
		"redis":  NewRedisDenylist(client),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := denylist.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, revoked)

			require.NoError(t, denylist.InvalidateToken(ctx, "jti-1", time.Hour))

			revoked, err = denylist.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			revoked, err = denylist.IsTokenInvalidated(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestMemoryDenylist_Expiry(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()
	start := time.Now()
	d.now = func() time.Time { return start }

	require.NoError(t, d.InvalidateToken(ctx, "jti", time.Minute))
	d.now = func() time.Time { return start.Add(2 * time.Minute) }

	revoked, err := d.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryDenylist_SweepsOncePerInterval(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()
	start := time.Now()
	d.now = func() time.Time { return start }

	require.NoError(t, d.InvalidateToken(ctx, "jti-1", time.Second))

	d.now = func() time.Time { return start.Add(30 * time.Second) }
	require.NoError(t, d.InvalidateToken(ctx, "jti-2", time.Hour))
	assert.Len(t, d.invalidatedTokens, 2)

	d.now = func() time.Time { return start.Add(2 * time.Minute) }
	require.NoError(t, d.InvalidateToken(ctx, "jti-3", time.Hour))
	assert.Len(t, d.invalidatedTokens, 2)
	assert.NotContains(t, d.invalidatedTokens, "jti-1")
}
