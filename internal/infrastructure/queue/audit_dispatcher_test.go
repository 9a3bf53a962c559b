package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/showsec/security-demo/internal/core/domain"
)

type collectingRepo struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	done   chan struct{}
	want   int
}

func (r *collectingRepo) Insert(_ context.Context, event *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	if len(r.events) == r.want {
		close(r.done)
	}
	return nil
}

func (r *collectingRepo) ListByUsername(context.Context, string, int) ([]domain.AuthEvent, error) {
	return nil, nil
}

func TestAuditDispatcher_DeliversInOrderPerUser(t *testing.T) {
	const n = 20
	repo := &collectingRepo{done: make(chan struct{}), want: n}
	d := NewAuditDispatcher(3, repo, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		d.Record(domain.AuthEvent{
			Username:  "alice",
			Level:     domain.Level2,
			Outcome:   domain.OutcomeRejected,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	select {
	case <-repo.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %d events, got %d", n, len(repo.events))
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	for i := 1; i < len(repo.events); i++ {
		if repo.events[i].Timestamp.Before(repo.events[i-1].Timestamp) {
			t.Fatalf("events for one user arrived out of order at %d", i)
		}
	}
}

func TestAuditDispatcher_ShardIsStable(t *testing.T) {
	d := NewAuditDispatcher(4, &collectingRepo{done: make(chan struct{}), want: 1}, zerolog.Nop())
	first := d.shardIndex("alice")
	for i := 0; i < 10; i++ {
		if d.shardIndex("alice") != first {
			t.Fatalf("shard index must be deterministic")
		}
	}
}
