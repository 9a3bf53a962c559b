package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrChallengeNotFound = errors.New("challenge not found")
var ErrChallengeExpired = errors.New("challenge expired")
var ErrInvalidToken = errors.New("invalid one-time code")
var ErrSecretNotProvisioned = errors.New("two-factor secret not provisioned")

// AccountLockedError carries the time left on an active lockout window so the
// caller can render a "try again in N seconds" message.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %d seconds", int(e.Remaining.Seconds()))
}

// IsAccountLocked unwraps err into an AccountLockedError if it is one.
func IsAccountLocked(err error) (*AccountLockedError, bool) {
	var le *AccountLockedError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
