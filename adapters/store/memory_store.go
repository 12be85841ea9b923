package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/ports"
)

// MemoryDenylist is an in-memory implementation of the Denylist interface
type MemoryDenylist struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
	sweepEvery        time.Duration
	lastSweep         time.Time
	now               func() time.Time
}

// NewMemoryDenylist creates a new in-memory denylist
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		invalidatedTokens: make(map[string]time.Time),
		sweepEvery:        time.Minute,
		now:               time.Now,
	}
}

var _ ports.Denylist = (*MemoryDenylist)(nil)

// InvalidateToken marks a token as invalidated for the given duration
func (s *MemoryDenylist) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepEvery {
		for id, until := range s.invalidatedTokens {
			if !now.Before(until) {
				delete(s.invalidatedTokens, id)
			}
		}
		s.lastSweep = now
	}

	until := now.Add(expiry)
	if current, ok := s.invalidatedTokens[tokenID]; ok && current.After(until) {
		return nil
	}
	s.invalidatedTokens[tokenID] = until
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryDenylist) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}
	return s.now().Before(until), nil
}
