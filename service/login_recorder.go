package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// LoginRecorder applies the bookkeeping of a successful login to the user repository
type LoginRecorder struct {
	users      ports.UserRepository
	maxHistory int
	now        func() time.Time
}

// NewLoginRecorder creates a recorder keeping core.MaxConnectionHistory entries per user
func NewLoginRecorder(users ports.UserRepository) *LoginRecorder {
	return &LoginRecorder{
		users:      users,
		maxHistory: core.MaxConnectionHistory,
		now:        time.Now,
	}
}

// RecordLogin finds or creates the user for address, then bumps the login counter,
// stamps the login time and appends meta to the connection history in one transaction.
// A failed login leaves no user behind, including one created by it.
func (r *LoginRecorder) RecordLogin(ctx context.Context, address string, meta core.ConnectionMetadata) (*core.User, error) {
	now := r.now().UTC()
	user, err := r.record(ctx, address, meta, now)
	if errors.Is(err, core.ErrUserExists) {
		// lost the first-login race; the winner has committed, so a fresh transaction finds it
		user, err = r.record(ctx, address, meta, now)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRepositoryUnavailable, err)
	}
	return user, nil
}

func (r *LoginRecorder) record(ctx context.Context, address string, meta core.ConnectionMetadata, now time.Time) (*core.User, error) {
	var recorded *core.User
	err := r.users.Transact(ctx, func(tx ports.UserRepository) error {
		user, err := findOrCreate(ctx, tx, address)
		if err != nil {
			return err
		}

		if err := tx.UpdateLoginStats(ctx, user.ID, core.LoginStats{At: now, Increment: 1}); err != nil {
			return fmt.Errorf("update login stats: %w", err)
		}

		entry := core.ConnectionEvent{At: now, Attributes: meta}
		if err := tx.AppendConnectionHistory(ctx, user.ID, entry, r.maxHistory); err != nil {
			return fmt.Errorf("append connection history: %w", err)
		}

		recorded, err = tx.FindByID(ctx, user.ID)
		return err
	})
	return recorded, err
}

func findOrCreate(ctx context.Context, tx ports.UserRepository, address string) (*core.User, error) {
	user, err := tx.FindByWalletAddress(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user, err = tx.Create(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
