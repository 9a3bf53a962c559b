package ports

import (
	"context"
	"time"

	"github.com/showsec/security-demo/internal/core/domain"
)

// LockoutPolicy configures the failed-attempt counter.
type LockoutPolicy struct {
	// MaxAttempts is the failure count at which the lockout window starts.
	MaxAttempts int
	// LockoutFor is the length of the lockout window.
	LockoutFor time.Duration
}

// CredentialStore is the user directory contract. Implementations own
// persistence; the core only reads records and updates the security fields
// through the two Record methods.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// RecordFailure increments the failed-attempt counter and, when the
	// post-increment count reaches policy.MaxAttempts, sets the lockout
	// deadline to now+policy.LockoutFor. The increment and the conditional
	// lockout must land as one atomic update: N racing failures yield a
	// counter of exactly N and at most one lockout transition. Returns the
	// record as persisted.
	RecordFailure(ctx context.Context, username string, policy LockoutPolicy, now time.Time) (*domain.User, error)

	// RecordSuccess zeroes the counter and clears any lockout in a single
	// write.
	RecordSuccess(ctx context.Context, username string) error

	// RecordTOTPStep stores the last consumed TOTP time step, used to
	// reject replays of an already-accepted code.
	RecordTOTPStep(ctx context.Context, username string, step int64) error
}
