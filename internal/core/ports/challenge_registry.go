package ports

import (
	"context"
	"time"

	"github.com/showsec/security-demo/internal/core/domain"
)

// ChallengeRegistry holds the short-lived pending challenges created between
// the two calls of a Level 3 attempt. Create/Resolve/Consume on one session id
// must be linearizable: a resolve racing a consume must not both observe a
// live challenge.
type ChallengeRegistry interface {
	// Create registers a pending challenge for the session, replacing any
	// existing one.
	Create(ctx context.Context, challenge *domain.PendingChallenge) error

	// Resolve returns the live challenge for the session. A challenge past
	// its deadline is deleted and reported as domain.ErrChallengeExpired;
	// an absent one as domain.ErrChallengeNotFound. A live challenge is
	// left in place until Consume.
	Resolve(ctx context.Context, sessionID string, now time.Time) (*domain.PendingChallenge, error)

	// Consume deletes the challenge after a successful TOTP verification.
	// Returns domain.ErrChallengeNotFound if it was already gone.
	Consume(ctx context.Context, sessionID string) error
}
