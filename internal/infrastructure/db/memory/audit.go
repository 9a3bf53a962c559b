package memory

import (
	"context"
	"strconv"

	"github.com/showsec/security-demo/internal/core/domain"
)

func (s *Store) Insert(_ context.Context, event *domain.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	stored.ID = strconv.Itoa(len(s.events) + 1)
	s.events = append(s.events, stored)
	return nil
}

func (s *Store) ListByUsername(_ context.Context, username string, limit int) ([]domain.AuthEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	// newest first
	var out []domain.AuthEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].Username == username {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}
