package domain

import "time"

// PendingChallenge marks that a session passed the first factor of a Level 3
// attempt and is awaiting TOTP completion. At most one live challenge exists
// per session; registering a new one replaces the old.
type PendingChallenge struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the challenge can no longer be completed.
func (p *PendingChallenge) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
