package memory

import (
	"context"
	"sync"
	"time"

	"github.com/showsec/security-demo/internal/core/domain"
)

// ChallengeRegistry keeps pending second-factor challenges in a mutex-guarded
// map. Create/Resolve/Consume on one session id are linearizable because
// every operation holds the lock end to end.
type ChallengeRegistry struct {
	mu         sync.Mutex
	challenges map[string]*domain.PendingChallenge
}

func NewChallengeRegistry() *ChallengeRegistry {
	return &ChallengeRegistry{challenges: make(map[string]*domain.PendingChallenge)}
}

func (r *ChallengeRegistry) Create(_ context.Context, challenge *domain.PendingChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *challenge
	r.challenges[challenge.SessionID] = &clone
	return nil
}

func (r *ChallengeRegistry) Resolve(_ context.Context, sessionID string, now time.Time) (*domain.PendingChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	challenge, ok := r.challenges[sessionID]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	if challenge.Expired(now) {
		delete(r.challenges, sessionID)
		return nil, domain.ErrChallengeExpired
	}
	clone := *challenge
	return &clone, nil
}

func (r *ChallengeRegistry) Consume(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.challenges[sessionID]; !ok {
		return domain.ErrChallengeNotFound
	}
	delete(r.challenges, sessionID)
	return nil
}
