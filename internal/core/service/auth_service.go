package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/showsec/security-demo/internal/api/metrics"
	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
	"github.com/showsec/security-demo/internal/pkg/clientip"
)

// AuthConfig holds the tunable policy knobs of the authentication flows.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	Lockout      ports.LockoutPolicy
	ChallengeTTL time.Duration
}

// AuthService drives the three demo authentication strategies against one
// user directory. All collaborators are injected; no state is kept on the
// service itself beyond configuration.
type AuthService struct {
	store      ports.CredentialStore
	challenges ports.ChallengeRegistry
	totp       ports.TOTPVerifier
	audit      ports.AuditRecorder
	clock      ports.Clock
	cfg        AuthConfig
	logger     zerolog.Logger
}

func NewAuthService(
	store ports.CredentialStore,
	challenges ports.ChallengeRegistry,
	totp ports.TOTPVerifier,
	audit ports.AuditRecorder,
	clock ports.Clock,
	cfg AuthConfig,
	logger zerolog.Logger,
) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Lockout.MaxAttempts <= 0 {
		cfg.Lockout.MaxAttempts = 5
	}
	if cfg.Lockout.LockoutFor <= 0 {
		cfg.Lockout.LockoutFor = 5 * time.Minute
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	return &AuthService{
		store:      store,
		challenges: challenges,
		totp:       totp,
		audit:      audit,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Register provisions a new account: bcrypt hash for the Level 2/3 paths, the
// plaintext shadow the Level 1 demo reads, and optionally a TOTP secret.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.RegisterResult, error) {
	if input.Username == "" || input.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		Username:          input.Username,
		Email:             input.Email,
		PasswordHash:      string(hash),
		PlaintextPassword: input.Password,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var otpURL string
	if input.ProvisionTOTP {
		secret, url, err := s.totp.GenerateSecret(input.Username)
		if err != nil {
			return nil, fmt.Errorf("generate totp secret: %w", err)
		}
		user.TOTPSecret = secret
		otpURL = url
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", created.Username).Bool("totp", input.ProvisionTOTP).Msg("user registered")
	return &ports.RegisterResult{User: created, OTPAuthURL: otpURL}, nil
}

// LoginLevel1 compares the submitted password against the plaintext shadow
// with a plain string equality. No attempt counting, no uniform messages:
// both omissions are the weaknesses this level demonstrates.
func (s *AuthService) LoginLevel1(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// leaks account existence, intentionally
			return s.finish(ctx, username, domain.Level1, &ports.AuthResult{
				Outcome: domain.OutcomeRejected,
				Message: "unknown username",
			}), nil
		}
		return nil, err
	}

	if password != user.PlaintextPassword {
		return s.finish(ctx, username, domain.Level1, &ports.AuthResult{
			Outcome: domain.OutcomeRejected,
			Message: "wrong password, try again",
		}), nil
	}

	return s.authenticated(ctx, user, domain.Level1)
}

// LoginLevel2 verifies the bcrypt hash under the lockout policy. Unknown
// users and wrong passwords produce the same message.
func (s *AuthService) LoginLevel2(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	user, result, err := s.checkFirstFactor(ctx, username, password, domain.Level2)
	if result != nil || err != nil {
		return result, err
	}
	return s.authenticated(ctx, user, domain.Level2)
}

// LoginLevel3 runs the Level 2 check, but a correct password only opens a
// pending second-factor challenge; the session is issued by VerifyTOTP.
func (s *AuthService) LoginLevel3(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	user, result, err := s.checkFirstFactor(ctx, username, password, domain.Level3)
	if result != nil || err != nil {
		return result, err
	}

	if !user.TOTPProvisioned() {
		return nil, domain.ErrSecretNotProvisioned
	}

	now := s.clock.Now()
	challenge := &domain.PendingChallenge{
		SessionID: uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ChallengeTTL),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("register challenge: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Str("session_id", challenge.SessionID).Msg("first factor accepted, awaiting totp")
	return s.finish(ctx, username, domain.Level3, &ports.AuthResult{
		Outcome:   domain.OutcomeAwaitingSecondFactor,
		Message:   "first factor accepted, submit your one-time code",
		User:      user,
		Challenge: challenge,
	}), nil
}

// VerifyTOTP completes a Level 3 attempt. A wrong code leaves the challenge
// in place but counts against the lockout policy; an expired or missing
// challenge forces a restart from the first factor.
func (s *AuthService) VerifyTOTP(ctx context.Context, sessionID, code string) (*ports.AuthResult, error) {
	now := s.clock.Now()

	challenge, err := s.challenges.Resolve(ctx, sessionID, now)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChallengeExpired):
			return s.finish(ctx, "", domain.Level3, &ports.AuthResult{
				Outcome: domain.OutcomeExpired,
				Message: "challenge expired, restart login",
			}), nil
		case errors.Is(err, domain.ErrChallengeNotFound):
			return s.finish(ctx, "", domain.Level3, &ports.AuthResult{
				Outcome: domain.OutcomeRejected,
				Message: "no pending challenge, restart login",
			}), nil
		}
		return nil, err
	}

	user, err := s.store.FindByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}

	if locked, remaining := user.Locked(now); locked {
		return s.finish(ctx, user.Username, domain.Level3, &ports.AuthResult{
			Outcome:   domain.OutcomeLockedOut,
			Message:   lockedMessage(remaining),
			LockedFor: remaining,
		}), nil
	}

	ok, step, err := s.totp.Verify(user.TOTPSecret, code, now)
	if err != nil {
		return nil, err
	}
	if ok && step <= user.LastTOTPStep && user.LastTOTPStep > 0 {
		// valid code, but its time step was already consumed: replay
		ok = false
	}

	if !ok {
		metrics.TOTPVerificationsTotal.WithLabelValues("fail").Inc()
		return s.totpFailure(ctx, user, now)
	}
	metrics.TOTPVerificationsTotal.WithLabelValues("ok").Inc()

	if err := s.challenges.Consume(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			// lost the race against a concurrent consume
			return s.finish(ctx, user.Username, domain.Level3, &ports.AuthResult{
				Outcome: domain.OutcomeRejected,
				Message: "no pending challenge, restart login",
			}), nil
		}
		return nil, err
	}
	if err := s.store.RecordTOTPStep(ctx, user.Username, step); err != nil {
		return nil, err
	}

	return s.authenticated(ctx, user, domain.Level3)
}

// checkFirstFactor is the shared Level 2/3 password check: uniform rejection
// for unknown users, lockout gate, bcrypt verify, atomic failure recording.
// A nil result with a nil error means the password was correct.
func (s *AuthService) checkFirstFactor(ctx context.Context, username, password string, level domain.Level) (*domain.User, *ports.AuthResult, error) {
	if username == "" || password == "" {
		return nil, s.finish(ctx, username, level, &ports.AuthResult{
			Outcome: domain.OutcomeRejected,
			Message: "invalid credentials",
		}), nil
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// same message as a wrong password: no username enumeration
			return nil, s.finish(ctx, username, level, &ports.AuthResult{
				Outcome: domain.OutcomeRejected,
				Message: "invalid credentials",
			}), nil
		}
		return nil, nil, err
	}

	now := s.clock.Now()
	if locked, remaining := user.Locked(now); locked {
		return nil, s.finish(ctx, username, level, &ports.AuthResult{
			Outcome:   domain.OutcomeLockedOut,
			Message:   lockedMessage(remaining),
			LockedFor: remaining,
		}), nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		updated, err := s.store.RecordFailure(ctx, username, s.cfg.Lockout, now)
		if err != nil {
			return nil, nil, err
		}
		return nil, s.finish(ctx, username, level, s.failureResult(updated)), nil
	}

	return user, nil, nil
}

// totpFailure records a wrong one-time code against the lockout policy. The
// challenge is kept so the user may retry until the counter locks the
// account.
func (s *AuthService) totpFailure(ctx context.Context, user *domain.User, now time.Time) (*ports.AuthResult, error) {
	updated, err := s.store.RecordFailure(ctx, user.Username, s.cfg.Lockout, now)
	if err != nil {
		return nil, err
	}
	if locked, remaining := updated.Locked(now); locked {
		return s.finish(ctx, user.Username, domain.Level3, &ports.AuthResult{
			Outcome:   domain.OutcomeLockedOut,
			Message:   lockedMessage(remaining),
			LockedFor: remaining,
		}), nil
	}
	return s.finish(ctx, user.Username, domain.Level3, &ports.AuthResult{
		Outcome: domain.OutcomeAwaitingSecondFactor,
		Message: "invalid one-time code, try again",
	}), nil
}

// failureResult renders a failed password check: either the lockout just
// engaged, or the user learns how many attempts remain.
func (s *AuthService) failureResult(user *domain.User) *ports.AuthResult {
	if user.LockoutUntil != nil && user.FailedAttempts >= s.cfg.Lockout.MaxAttempts {
		metrics.LockoutsTotal.Inc()
		return &ports.AuthResult{
			Outcome: domain.OutcomeRejected,
			Message: fmt.Sprintf("too many attempts, account locked for %d minutes", int(s.cfg.Lockout.LockoutFor.Minutes())),
		}
	}
	remaining := s.cfg.Lockout.MaxAttempts - user.FailedAttempts
	return &ports.AuthResult{
		Outcome: domain.OutcomeRejected,
		Message: fmt.Sprintf("invalid credentials, %d attempts remaining", remaining),
	}
}

// authenticated resets counters, issues the session token and closes the
// attempt.
func (s *AuthService) authenticated(ctx context.Context, user *domain.User, level domain.Level) (*ports.AuthResult, error) {
	if level != domain.Level1 {
		if err := s.store.RecordSuccess(ctx, user.Username); err != nil {
			return nil, err
		}
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", user.Username).Int("level", int(level)).Msg("authenticated")
	return s.finish(ctx, user.Username, level, &ports.AuthResult{
		Outcome: domain.OutcomeAuthenticated,
		Message: fmt.Sprintf("level %d login successful", level),
		Token:   token,
		User:    user,
	}), nil
}

// finish stamps metrics and the audit trail for a decided attempt and returns
// the result unchanged.
func (s *AuthService) finish(ctx context.Context, username string, level domain.Level, result *ports.AuthResult) *ports.AuthResult {
	metrics.LoginAttemptsTotal.WithLabelValues(level.String(), string(result.Outcome)).Inc()
	if s.audit != nil {
		s.audit.Record(domain.AuthEvent{
			Username:  username,
			Level:     level,
			Outcome:   result.Outcome,
			ClientIP:  clientip.FromContext(ctx),
			Timestamp: s.clock.Now(),
		})
	}
	return result
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

func lockedMessage(remaining time.Duration) string {
	return (&domain.AccountLockedError{Remaining: remaining}).Error()
}
