// Package usage tracks per-user transaction counts against a
// configured window and cap, mirroring the teacher's dual-backend
// repository pattern (an in-memory map plus Postgres and MongoDB
// implementations of a single Store interface) applied to the much
// narrower shape this relayer needs: a rolling counter keyed by
// (user_id, fee_payer) rather than cart/refund/payment records.
package usage

import (
	"context"
	"errors"
	"time"
)

// ErrWindowExpired is not returned by any Store in this package: when a
// counter's window has elapsed, IncrementAndGet starts a fresh window
// transparently.
var ErrWindowExpired = errors.New("usage: window expired")

// Key identifies a counter: one per user per fee-payer, since a usage
// cap is scoped to the wallet that's paying for the user's transactions.
type Key struct {
	UserID    string
	FeePayer  string
}

// Counter is a single window's state for a Key.
type Counter struct {
	Count       uint64
	WindowStart time.Time
}

// Store persists usage counters. Implementations must make
// IncrementAndGet atomic per key: two concurrent requests racing
// against the same key must not both observe a count below the cap
// when, combined, they exceed it.
type Store interface {
	// IncrementAndGet increments the counter for key within the given
	// window and returns its value after incrementing. If the existing
	// window has expired, the counter resets to 1 in a fresh window.
	IncrementAndGet(ctx context.Context, key Key, window time.Duration) (uint64, error)

	// Close releases any resources (connections) the store holds.
	Close() error
}
