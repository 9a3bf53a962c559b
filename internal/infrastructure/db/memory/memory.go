// Package memory provides mutex-guarded in-memory implementations of the
// credential store, challenge registry, and audit repository. The server
// falls back to it when no MongoDB/Redis is configured; tests use it for the
// concurrency properties of the lockout counter.
package memory

import (
	"sync"

	"github.com/showsec/security-demo/internal/core/domain"
)

// Store holds the user directory and audit trail behind one mutex, which
// makes every counter update trivially atomic.
type Store struct {
	mu     sync.Mutex
	users  map[string]*domain.User // keyed by username
	byID   map[string]string       // id -> username
	events []domain.AuthEvent
	nextID int
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]*domain.User),
		byID:  make(map[string]string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	if u.LockoutUntil != nil {
		until := *u.LockoutUntil
		clone.LockoutUntil = &until
	}
	return &clone
}
