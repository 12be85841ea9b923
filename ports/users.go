package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// UserRepository persists wallet users. Every method is atomic on its own;
// Transact groups several writes into one unit.
type UserRepository interface {
	FindByWalletAddress(ctx context.Context, address string) (*core.User, error)
	FindByID(ctx context.Context, id string) (*core.User, error)

	// Create inserts a user for address, returning core.ErrUserExists when one is already stored
	Create(ctx context.Context, address string) (*core.User, error)

	UpdateLoginStats(ctx context.Context, id string, stats core.LoginStats) error
	AppendConnectionHistory(ctx context.Context, id string, entry core.ConnectionEvent, maxEntries int) error

	// Transact runs fn against a transactional view of the repository
	Transact(ctx context.Context, fn func(tx UserRepository) error) error
}
