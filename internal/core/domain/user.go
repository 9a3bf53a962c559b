package domain

import "time"

// User models an account in the demo directory.
//
// PlaintextPassword is the deliberately insecure shadow copy read only by the
// Level 1 flow; the Level 2/3 paths must never touch it. TOTPSecret is empty
// until a second factor has been provisioned for the account.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email,omitempty"`
	PasswordHash      string     `json:"-"`
	PlaintextPassword string     `json:"-"`
	TOTPSecret        string     `json:"-"`
	FailedAttempts    int        `json:"-"`
	LockoutUntil      *time.Time `json:"-"`
	LastTOTPStep      int64      `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Locked reports whether the account is locked at the given instant and how
// long the lockout still has to run. An absent or elapsed LockoutUntil means
// not locked.
func (u *User) Locked(now time.Time) (bool, time.Duration) {
	if u.LockoutUntil == nil || !now.Before(*u.LockoutUntil) {
		return false, 0
	}
	return true, u.LockoutUntil.Sub(now)
}

// TOTPProvisioned reports whether the account can complete a second-factor
// challenge.
func (u *User) TOTPProvisioned() bool {
	return u.TOTPSecret != ""
}
