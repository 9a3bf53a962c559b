package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
)

var testPolicy = ports.LockoutPolicy{MaxAttempts: 5, LockoutFor: 5 * time.Minute}

func seedUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u, err := s.Create(context.Background(), &domain.User{Username: username, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func TestStore_CreateAndFind(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	created := seedUser(t, s, "alice")
	assert.NotEmpty(t, created.ID)

	byName, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.Create(ctx, &domain.User{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = s.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_FindReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "alice")

	u, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	u.FailedAttempts = 99

	again, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, again.FailedAttempts, "mutating a returned record must not leak into the store")
}

func TestStore_RecordFailureLockout(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedUser(t, s, "bob")

	for i := 1; i <= 4; i++ {
		u, err := s.RecordFailure(ctx, "bob", testPolicy, now)
		require.NoError(t, err)
		assert.Equal(t, i, u.FailedAttempts)
		assert.Nil(t, u.LockoutUntil)
	}

	u, err := s.RecordFailure(ctx, "bob", testPolicy, now)
	require.NoError(t, err)
	assert.Equal(t, 5, u.FailedAttempts)
	require.NotNil(t, u.LockoutUntil)
	assert.Equal(t, now.Add(5*time.Minute), *u.LockoutUntil)

	require.NoError(t, s.RecordSuccess(ctx, "bob"))
	u, err = s.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, u.FailedAttempts)
	assert.Nil(t, u.LockoutUntil)
}

// Racing failures must neither lose increments nor fire the lockout more than
// once for the threshold crossing.
func TestStore_RecordFailureConcurrent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedUser(t, s, "bob")

	const k = 4 // below the threshold
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordFailure(ctx, "bob", testPolicy, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	u, err := s.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, k, u.FailedAttempts, "exactly one increment per failure")
	assert.Nil(t, u.LockoutUntil, "no lockout below the threshold")

	// push past the threshold concurrently; the deadline must be set once
	var wg2 sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			_, err := s.RecordFailure(ctx, "bob", testPolicy, now)
			assert.NoError(t, err)
		}()
	}
	wg2.Wait()

	u, err = s.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, k+3, u.FailedAttempts)
	require.NotNil(t, u.LockoutUntil)
	assert.Equal(t, now.Add(testPolicy.LockoutFor), *u.LockoutUntil)
}

func TestStore_RecordTOTPStepKeepsNewest(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "carol")

	require.NoError(t, s.RecordTOTPStep(ctx, "carol", 100))
	require.NoError(t, s.RecordTOTPStep(ctx, "carol", 99))

	u, err := s.FindByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.LastTOTPStep)
}

func TestChallengeRegistry_Lifecycle(t *testing.T) {
	r := NewChallengeRegistry()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	challenge := &domain.PendingChallenge{
		SessionID: "sess-1",
		UserID:    "u-1",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, r.Create(ctx, challenge))

	resolved, err := r.Resolve(ctx, "sess-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "u-1", resolved.UserID)

	// resolve does not consume
	_, err = r.Resolve(ctx, "sess-1", now.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, r.Consume(ctx, "sess-1"))
	_, err = r.Resolve(ctx, "sess-1", now.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
	assert.ErrorIs(t, r.Consume(ctx, "sess-1"), domain.ErrChallengeNotFound)
}

func TestChallengeRegistry_ExpiryDiscards(t *testing.T) {
	r := NewChallengeRegistry()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, &domain.PendingChallenge{
		SessionID: "sess-1",
		UserID:    "u-1",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}))

	_, err := r.Resolve(ctx, "sess-1", now.Add(6*time.Minute))
	assert.ErrorIs(t, err, domain.ErrChallengeExpired)

	// discarded on first expired resolve
	_, err = r.Resolve(ctx, "sess-1", now.Add(6*time.Minute))
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestChallengeRegistry_CreateReplaces(t *testing.T) {
	r := NewChallengeRegistry()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, &domain.PendingChallenge{SessionID: "sess-1", UserID: "u-1", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, r.Create(ctx, &domain.PendingChallenge{SessionID: "sess-1", UserID: "u-2", ExpiresAt: now.Add(time.Minute)}))

	resolved, err := r.Resolve(ctx, "sess-1", now)
	require.NoError(t, err)
	assert.Equal(t, "u-2", resolved.UserID)
}

// A resolve racing a consume must never both observe the live challenge.
func TestChallengeRegistry_ResolveConsumeRace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		r := NewChallengeRegistry()
		require.NoError(t, r.Create(ctx, &domain.PendingChallenge{SessionID: "sess", UserID: "u", ExpiresAt: now.Add(time.Minute)}))

		var wg sync.WaitGroup
		results := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); results[0] = r.Consume(ctx, "sess") }()
		go func() { defer wg.Done(); results[1] = r.Consume(ctx, "sess") }()
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
			}
		}
		assert.Equal(t, 1, succeeded, "exactly one consume may win")
	}
}

func TestStore_AuditTrail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []domain.Outcome{domain.OutcomeRejected, domain.OutcomeRejected, domain.OutcomeAuthenticated} {
		require.NoError(t, s.Insert(ctx, &domain.AuthEvent{
			Username:  "alice",
			Level:     domain.Level2,
			Outcome:   outcome,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.Insert(ctx, &domain.AuthEvent{Username: "bob", Level: domain.Level1, Outcome: domain.OutcomeRejected, Timestamp: now}))

	events, err := s.ListByUsername(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.OutcomeAuthenticated, events[0].Outcome, "newest first")
	assert.Equal(t, "alice", events[1].Username)
}
