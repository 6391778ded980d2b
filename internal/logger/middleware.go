package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog"
)

// NewRequestContext generates a request ID and returns a context
// carrying both the ID and a logger scoped with it, so every log line
// a single relay call (or one transaction within a bundle) emits can
// be correlated across components. This replaces an HTTP middleware's
// request-ID-plus-scoped-logger pattern applied to a handler chain
// with the same idea applied at the entry point of a relay call,
// since this service has no HTTP surface of its own.
func NewRequestContext(ctx context.Context, base zerolog.Logger) (context.Context, string) {
	requestID := generateRequestID()
	scoped := base.With().Str("request_id", requestID).Logger()

	ctx = WithContext(ctx, scoped)
	ctx = WithRequestID(ctx, requestID)
	return ctx, requestID
}

// generateRequestID creates a cryptographically random request identifier.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "req_fallback"
	}
	return "req_" + hex.EncodeToString(b)
}
