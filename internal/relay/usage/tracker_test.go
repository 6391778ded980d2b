package usage

import (
	"context"
	"testing"
	"time"

	"github.com/kora-labs/relayer/internal/errors"
)

func TestTracker_AllowsUnderCap(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, time.Hour, 3)

	for i := 0; i < 3; i++ {
		if err := tracker.Check(context.Background(), ModeCheckUsage, "user-1", "payer-1"); err != nil {
			t.Fatalf("Check() attempt %d: unexpected error: %v", i, err)
		}
	}
}

func TestTracker_RejectsOverCap(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, time.Hour, 2)

	for i := 0; i < 2; i++ {
		if err := tracker.Check(context.Background(), ModeCheckUsage, "user-1", "payer-1"); err != nil {
			t.Fatalf("Check() attempt %d: unexpected error: %v", i, err)
		}
	}

	err := tracker.Check(context.Background(), ModeCheckUsage, "user-1", "payer-1")
	if err == nil {
		t.Fatal("Check() expected error on third attempt, got nil")
	}
	if !errors.Is(err, errors.CodeUsageLimitExceeded) {
		t.Errorf("Check() error code = %v, want %v", errors.CodeOf(err), errors.CodeUsageLimitExceeded)
	}
}

func TestTracker_SkipUsageBypassesCap(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, time.Hour, 1)

	for i := 0; i < 5; i++ {
		if err := tracker.Check(context.Background(), ModeSkipUsage, "user-1", "payer-1"); err != nil {
			t.Fatalf("Check() under ModeSkipUsage: unexpected error: %v", err)
		}
	}
}

func TestTracker_SeparateUsersIndependent(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, time.Hour, 1)

	if err := tracker.Check(context.Background(), ModeCheckUsage, "user-1", "payer-1"); err != nil {
		t.Fatalf("user-1 first request: unexpected error: %v", err)
	}
	if err := tracker.Check(context.Background(), ModeCheckUsage, "user-2", "payer-1"); err != nil {
		t.Fatalf("user-2 first request: unexpected error: %v", err)
	}
}

func TestTracker_UnlimitedWhenCapIsZero(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, time.Hour, 0)

	for i := 0; i < 100; i++ {
		if err := tracker.Check(context.Background(), ModeCheckUsage, "user-1", "payer-1"); err != nil {
			t.Fatalf("Check() attempt %d: unexpected error with unlimited cap: %v", i, err)
		}
	}
}

func TestMemoryStore_WindowResets(t *testing.T) {
	store := NewMemoryStore()
	key := Key{UserID: "user-1", FeePayer: "payer-1"}

	count, err := store.IncrementAndGet(context.Background(), key, time.Millisecond)
	if err != nil {
		t.Fatalf("IncrementAndGet() unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("IncrementAndGet() count = %d, want 1", count)
	}

	time.Sleep(5 * time.Millisecond)

	count, err = store.IncrementAndGet(context.Background(), key, time.Millisecond)
	if err != nil {
		t.Fatalf("IncrementAndGet() after window expiry: unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("IncrementAndGet() after window expiry: count = %d, want 1 (reset)", count)
	}
}
