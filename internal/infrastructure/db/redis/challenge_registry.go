package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/showsec/security-demo/internal/core/domain"
)

// ChallengeRegistry stores pending second-factor challenges as TTL keys.
// Key format: 2fa:pending:<session_id>
//
// Redis executes commands serially, and Consume uses GETDEL, so a resolve
// racing a consume on the same session observes the challenge at most once.
type ChallengeRegistry struct {
	client *redis.Client
}

// NewChallengeRegistry creates a ChallengeRegistry wrapping the given client.
func NewChallengeRegistry(client *redis.Client) *ChallengeRegistry {
	return &ChallengeRegistry{client: client}
}

// Create stores the challenge under its session key, replacing any existing
// one. The key TTL matches the challenge deadline as a backstop; expiry is
// still checked against the injected clock on Resolve.
func (r *ChallengeRegistry) Create(ctx context.Context, challenge *domain.PendingChallenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, r.key(challenge.SessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Resolve returns the live challenge for the session, deleting and reporting
// it expired when past its deadline.
func (r *ChallengeRegistry) Resolve(ctx context.Context, sessionID string, now time.Time) (*domain.PendingChallenge, error) {
	payload, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	var challenge domain.PendingChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}

	if challenge.Expired(now) {
		_ = r.client.Del(ctx, r.key(sessionID)).Err()
		return nil, domain.ErrChallengeExpired
	}
	return &challenge, nil
}

// Consume removes the challenge after a successful verification.
func (r *ChallengeRegistry) Consume(ctx context.Context, sessionID string) error {
	if err := r.client.GetDel(ctx, r.key(sessionID)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrChallengeNotFound
		}
		return fmt.Errorf("consume challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRegistry) key(sessionID string) string {
	return "2fa:pending:" + sessionID
}
