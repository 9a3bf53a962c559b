package memory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
)

func (s *Store) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.TrimSpace(user.Username)
	if username == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if _, exists := s.users[username]; exists {
		return nil, domain.ErrUserExists
	}

	s.nextID++
	stored := cloneUser(user)
	stored.ID = strconv.Itoa(s.nextID)
	stored.Username = username
	s.users[username] = stored
	s.byID[stored.ID] = username
	return cloneUser(stored), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(s.users[username]), nil
}

// RecordFailure applies the increment and the conditional lockout under one
// lock acquisition, so racing failures count exactly once each and the
// lockout engages on the attempt that crosses the threshold.
func (s *Store) RecordFailure(_ context.Context, username string, policy ports.LockoutPolicy, now time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	u.FailedAttempts++
	if u.FailedAttempts >= policy.MaxAttempts {
		until := now.Add(policy.LockoutFor)
		u.LockoutUntil = &until
	}
	u.UpdatedAt = now
	return cloneUser(u), nil
}

func (s *Store) RecordSuccess(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.FailedAttempts = 0
	u.LockoutUntil = nil
	return nil
}

func (s *Store) RecordTOTPStep(_ context.Context, username string, step int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	if step > u.LastTOTPStep {
		u.LastTOTPStep = step
	}
	return nil
}
