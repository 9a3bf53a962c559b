package ports

import (
	"context"
	"time"

	"github.com/showsec/security-demo/internal/core/domain"
)

// AuthResult is what every authentication call returns to the transport
// layer. Token is set only on OutcomeAuthenticated; Challenge only on
// OutcomeAwaitingSecondFactor.
type AuthResult struct {
	Outcome   domain.Outcome
	Message   string
	Token     string
	User      *domain.User
	Challenge *domain.PendingChallenge
	// LockedFor is the remaining lockout window on OutcomeLockedOut.
	LockedFor time.Duration
}

// RegisterInput carries everything needed to provision an account.
type RegisterInput struct {
	Username      string
	Password      string
	Email         string
	ProvisionTOTP bool
}

// RegisterResult returns the created account and, when a TOTP secret was
// provisioned, the otpauth enrollment URL for the user's authenticator app.
type RegisterResult struct {
	User       *domain.User
	OTPAuthURL string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)

	// LoginLevel1 checks the plaintext shadow. No lockout, distinct
	// not-found message: both are the demonstrated weaknesses.
	LoginLevel1(ctx context.Context, username, password string) (*AuthResult, error)

	// LoginLevel2 checks the salted hash under the lockout policy.
	LoginLevel2(ctx context.Context, username, password string) (*AuthResult, error)

	// LoginLevel3 runs the Level2 check but, on success, registers a
	// pending challenge instead of issuing a session.
	LoginLevel3(ctx context.Context, username, password string) (*AuthResult, error)

	// VerifyTOTP completes a Level3 attempt with the continuation session
	// id handed out by LoginLevel3.
	VerifyTOTP(ctx context.Context, sessionID, code string) (*AuthResult, error)
}

// TOTPVerifier generates and checks time-based one-time codes.
type TOTPVerifier interface {
	// GenerateSecret returns a fresh base32 shared secret and the otpauth
	// URL describing it.
	GenerateSecret(account string) (secret, url string, err error)

	// Verify checks code against secret at the given instant, tolerating
	// the configured clock skew. It also returns the matched time step so
	// the caller can implement replay rejection. Fails closed on an empty
	// or malformed secret.
	Verify(secret, code string, now time.Time) (ok bool, step int64, err error)
}
