package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletauth/core"
)

// NonceStore keeps single-use login challenges keyed by wallet address
type NonceStore interface {
	// Issue stores the challenge, replacing any earlier one for the same address
	Issue(ctx context.Context, challenge *core.Challenge) error

	// Consume atomically checks the challenge for address against message and marks it consumed.
	// Exactly one concurrent caller can succeed for a given challenge.
	Consume(ctx context.Context, address, message string, now time.Time) (*core.Challenge, error)
}

// Denylist records revoked session token ids until their natural expiry
type Denylist interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
