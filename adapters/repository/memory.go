package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// MemoryUserRepository keeps users in process memory.
// Writes run one transaction at a time and commit by swapping in staged copies.
type MemoryUserRepository struct {
	mu        sync.RWMutex
	byID      map[string]*core.User
	byAddress map[string]string
	now       func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:      make(map[string]*core.User),
		byAddress: make(map[string]string),
		now:       time.Now,
	}
}

var _ ports.UserRepository = (*MemoryUserRepository)(nil)

func (r *MemoryUserRepository) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAddress[address]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, address string) (*core.User, error) {
	var created *core.User
	err := r.Transact(ctx, func(tx ports.UserRepository) error {
		var err error
		created, err = tx.Create(ctx, address)
		return err
	})
	return created, err
}

func (r *MemoryUserRepository) UpdateLoginStats(ctx context.Context, id string, stats core.LoginStats) error {
	return r.Transact(ctx, func(tx ports.UserRepository) error {
		return tx.UpdateLoginStats(ctx, id, stats)
	})
}

func (r *MemoryUserRepository) AppendConnectionHistory(ctx context.Context, id string, entry core.ConnectionEvent, maxEntries int) error {
	return r.Transact(ctx, func(tx ports.UserRepository) error {
		return tx.AppendConnectionHistory(ctx, id, entry, maxEntries)
	})
}

// Transact holds the repository write lock for the duration of fn.
// Changes made through tx become visible only if fn returns nil.
func (r *MemoryUserRepository) Transact(ctx context.Context, fn func(tx ports.UserRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:      r,
		users:     make(map[string]*core.User),
		addresses: make(map[string]string),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, user := range tx.users {
		r.byID[id] = user
	}
	for address, id := range tx.addresses {
		r.byAddress[address] = id
	}
	return nil
}

// memoryTx is the staged view handed to Transact callbacks; the repository lock is already held
type memoryTx struct {
	repo      *MemoryUserRepository
	users     map[string]*core.User
	addresses map[string]string
}

func (tx *memoryTx) staged(id string) (*core.User, bool) {
	if user, ok := tx.users[id]; ok {
		return user, true
	}
	user, ok := tx.repo.byID[id]
	if !ok {
		return nil, false
	}
	copied := cloneUser(user)
	tx.users[id] = copied
	return copied, true
}

func (tx *memoryTx) addressID(address string) (string, bool) {
	if id, ok := tx.addresses[address]; ok {
		return id, true
	}
	id, ok := tx.repo.byAddress[address]
	return id, ok
}

func (tx *memoryTx) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	id, ok := tx.addressID(address)
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return tx.FindByID(ctx, id)
}

func (tx *memoryTx) FindByID(ctx context.Context, id string) (*core.User, error) {
	user, ok := tx.staged(id)
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (tx *memoryTx) Create(ctx context.Context, address string) (*core.User, error) {
	if _, exists := tx.addressID(address); exists {
		return nil, core.ErrUserExists
	}

	now := tx.repo.now().UTC()
	user := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx.users[user.ID] = user
	tx.addresses[address] = user.ID
	return cloneUser(user), nil
}

func (tx *memoryTx) UpdateLoginStats(ctx context.Context, id string, stats core.LoginStats) error {
	user, ok := tx.staged(id)
	if !ok {
		return core.ErrUserNotFound
	}
	at := stats.At
	user.LastLoginAt = &at
	user.LoginCount += stats.Increment
	user.UpdatedAt = tx.repo.now().UTC()
	return nil
}

func (tx *memoryTx) AppendConnectionHistory(ctx context.Context, id string, entry core.ConnectionEvent, maxEntries int) error {
	user, ok := tx.staged(id)
	if !ok {
		return core.ErrUserNotFound
	}
	user.ConnectionHistory = core.AppendConnectionHistory(user.ConnectionHistory, entry, maxEntries)
	user.UpdatedAt = tx.repo.now().UTC()
	return nil
}

func (tx *memoryTx) Transact(ctx context.Context, fn func(tx ports.UserRepository) error) error {
	return fn(tx)
}

func cloneUser(user *core.User) *core.User {
	copied := *user
	if user.LastLoginAt != nil {
		at := *user.LastLoginAt
		copied.LastLoginAt = &at
	}
	if user.ConnectionHistory != nil {
		copied.ConnectionHistory = make([]core.ConnectionEvent, len(user.ConnectionHistory))
		for i, event := range user.ConnectionHistory {
			copied.ConnectionHistory[i] = core.ConnectionEvent{At: event.At, Attributes: cloneMetadata(event.Attributes)}
		}
	}
	return &copied
}

func cloneMetadata(meta core.ConnectionMetadata) core.ConnectionMetadata {
	if meta == nil {
		return nil
	}
	copied := make(core.ConnectionMetadata, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}
