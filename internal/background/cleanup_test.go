package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeCleaner) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, retentionDays)
	return 3, f.err
}

func (f *fakeCleaner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuditRetentionManager_RunsImmediatelyAndStops(t *testing.T) {
	cleaner := &fakeCleaner{}
	m := NewAuditRetentionManager(cleaner, discard(), time.Hour, 90)

	done := make(chan struct{})
	go func() {
		m.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.count() == 1 }, time.Second, 5*time.Millisecond)
	m.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []int{90}, cleaner.calls)
}

func TestAuditRetentionManager_StopsOnContextCancel(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	m := NewAuditRetentionManager(cleaner, discard(), 10*time.Millisecond, 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestAuditRetentionManager_DisabledWithoutRetention(t *testing.T) {
	cleaner := &fakeCleaner{}
	m := NewAuditRetentionManager(cleaner, discard(), time.Millisecond, 0)

	m.Start(context.Background())
	assert.Zero(t, cleaner.count())
}
