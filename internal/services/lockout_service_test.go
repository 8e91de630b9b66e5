package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/models"
)

func newLockout(repo CredentialLockRepository, now *time.Time) *LockoutService {
	s := NewLockoutService(repo, LockoutConfig{MaxFailedAttempts: 3, Duration: 30 * time.Minute}, testLogger())
	s.now = func() time.Time { return *now }
	return s
}

func TestLockoutService_RecordFailure(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMockCredentialLockRepository()
	s := newLockout(repo, &now)
	ctx := context.Background()

	o, err := s.RecordFailure(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, &FailureOutcome{Attempts: 1}, o)

	_, _ = s.RecordFailure(ctx, "ana@example.com")
	o, err = s.RecordFailure(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, o.Locked)
	assert.True(t, o.LockedNow)
	assert.Equal(t, 30, o.RetryAfterMinutes)

	o, err = s.RecordFailure(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, o.Locked)
	assert.False(t, o.LockedNow)
	assert.Equal(t, 3, o.Attempts)
}

func TestLockoutService_Check(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMockCredentialLockRepository()
	until := now.Add(90 * time.Second)
	repo.Set(models.CredentialLock{Identifier: "ana@example.com", FailedAttempts: 3, LockedUntil: &until})
	s := newLockout(repo, &now)

	status, err := s.Check(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 2, status.RetryAfterMinutes)

	now = now.Add(2 * time.Minute)
	status, err = s.Check(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Zero(t, status.RetryAfterMinutes)
}

func TestLockoutService_Reset(t *testing.T) {
	now := time.Now()
	repo := NewMockCredentialLockRepository()
	s := newLockout(repo, &now)
	ctx := context.Background()

	_, _ = s.RecordFailure(ctx, "ana@example.com")
	require.NoError(t, s.Reset(ctx, "ana@example.com"))

	status, err := s.Check(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Zero(t, status.FailedAttempts)
}

func TestLockoutService_ResetKeepsHistory(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMockCredentialLockRepository()
	s := newLockout(repo, &now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.RecordFailure(ctx, "ana@example.com")
	}
	now = now.Add(31 * time.Minute)
	require.NoError(t, s.Reset(ctx, "ana@example.com"))

	lock, ok := repo.Stored("ana@example.com")
	require.True(t, ok, "lock row must survive a reset")
	assert.Zero(t, lock.FailedAttempts)
	assert.Nil(t, lock.LockedUntil)
	require.NotNil(t, lock.LastFailureAt)
	assert.Equal(t, now.Add(-31*time.Minute), *lock.LastFailureAt)
}

func TestLockoutService_StoreErrors(t *testing.T) {
	now := time.Now()
	repo := NewMockCredentialLockRepository()
	repo.GetErr = errors.New("down")
	repo.MutateErr = errors.New("down")
	s := newLockout(repo, &now)
	ctx := context.Background()

	_, err := s.Check(ctx, "x")
	assert.ErrorIs(t, err, models.ErrInternalServer)
	_, err = s.RecordFailure(ctx, "x")
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.ErrorIs(t, s.Reset(ctx, "x"), models.ErrInternalServer)
}
