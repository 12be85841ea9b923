package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// MemoryNonceStore keeps challenges in a map guarded by a single mutex.
// Consumed and expired records are kept for the retention window so that
// replays are reported as already used.
type MemoryNonceStore struct {
	mu         sync.Mutex
	challenges map[string]*core.Challenge
	retention  time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

// NewMemoryNonceStore creates an in-memory nonce store.
// retention is how long a record outlives its expiry before it is pruned.
func NewMemoryNonceStore(retention time.Duration) *MemoryNonceStore {
	return &MemoryNonceStore{
		challenges: make(map[string]*core.Challenge),
		retention:  retention,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// Issue stores the challenge, replacing any earlier one for the address
func (s *MemoryNonceStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	stored := *challenge
	stored.Consumed = false

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	s.challenges[challenge.Address] = &stored
	return nil
}

// Consume checks and marks the challenge for address under the store lock
func (s *MemoryNonceStore) Consume(ctx context.Context, address, message string, now time.Time) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[address]
	if !ok {
		return nil, core.ErrNoSuchChallenge
	}
	if challenge.Consumed {
		return nil, core.ErrChallengeAlreadyUsed
	}
	if challenge.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	if challenge.Message != message {
		return nil, core.ErrChallengeMismatch
	}

	challenge.Consumed = true
	consumed := *challenge
	return &consumed, nil
}

// Len returns the number of records currently held
func (s *MemoryNonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// pruneLocked drops records past their retention, at most once per sweepEvery
func (s *MemoryNonceStore) pruneLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.sweepEvery {
		return
	}
	s.lastSweep = now
	for address, challenge := range s.challenges {
		if now.After(challenge.ExpiresAt.Add(s.retention)) {
			delete(s.challenges, address)
		}
	}
}
