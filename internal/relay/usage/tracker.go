package usage

import (
	"context"
	"time"

	"github.com/kora-labs/relayer/internal/errors"
)

// Mode selects whether the tracker participates in a given request.
type Mode int

const (
	// ModeCheckUsage increments and enforces the per-user cap.
	ModeCheckUsage Mode = iota
	// ModeSkipUsage bypasses tracking entirely — fee estimation and
	// bundle simulation calls never consume a user's quota.
	ModeSkipUsage
)

// Tracker enforces a per-(user_id, fee_payer) transaction cap over a
// rolling window, backed by a pluggable Store.
type Tracker struct {
	store        Store
	window       time.Duration
	maxPerWindow uint64
}

// NewTracker builds a Tracker. A maxPerWindow of 0 means unlimited:
// the store is still incremented (for observability) but never rejects.
func NewTracker(store Store, window time.Duration, maxPerWindow uint64) *Tracker {
	return &Tracker{store: store, window: window, maxPerWindow: maxPerWindow}
}

// Check increments the counter for (userID, feePayer) and returns a
// UsageLimitExceeded error if the configured cap was just exceeded.
// Under ModeSkipUsage it does nothing and always succeeds.
func (t *Tracker) Check(ctx context.Context, mode Mode, userID, feePayer string) error {
	if mode == ModeSkipUsage {
		return nil
	}

	count, err := t.store.IncrementAndGet(ctx, Key{UserID: userID, FeePayer: feePayer}, t.window)
	if err != nil {
		return errors.Cache(err, "usage tracker: increment counter for %s: %v", userID, err)
	}

	if t.maxPerWindow > 0 && count > t.maxPerWindow {
		return errors.UsageLimitExceeded(userID, t.maxPerWindow)
	}
	return nil
}

// Close releases the underlying store's resources.
func (t *Tracker) Close() error {
	return t.store.Close()
}
