package domain

import "time"

// AuthEvent is one entry in the login audit trail: who tried to authenticate,
// at which level, and how it ended.
type AuthEvent struct {
	ID        string    `json:"id,omitempty"`
	Username  string    `json:"username"`
	Level     Level     `json:"level"`
	Outcome   Outcome   `json:"outcome"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
