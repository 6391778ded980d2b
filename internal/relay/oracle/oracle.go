// Package oracle implements the oracle client (C8): a pluggable
// mint-to-lamport price source consumed by the fee engine and the
// payment detector. Three backends share one Source contract — a
// fixed mock rate for tests/development, a fixed pass-through for the
// Fixed price model (the amount is already denominated in lamports),
// and an HTTPS quote endpoint for production — selected once at
// startup from the operator's configured price source, mirroring the
// way the signer pool dispatches across its own backend variants.
package oracle

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// Source converts between a mint's smallest unit and lamports. Every
// backend (Mock, Fixed, External) implements this, satisfying both
// payment.Oracle (ToLamports alone) and fee's display-conversion
// interface (ToMintUnits alone).
type Source interface {
	ToLamports(ctx context.Context, mint solana.PublicKey, amount uint64) (uint64, error)
	ToMintUnits(ctx context.Context, mint solana.PublicKey, lamports uint64) (float64, error)
}

// New builds the Source named by priceSource, the way a caller wires
// up the single backend indicated by the operator's configuration
// rather than holding all three live at once. breakers is only
// consulted by the External backend.
func New(priceSource relayconfig.PriceSource, cfg relayconfig.OracleConfig, breakers *circuitbreaker.Manager) (Source, error) {
	switch priceSource {
	case relayconfig.PriceSourceMock:
		return NewMock(cfg.MockLamports), nil
	case relayconfig.PriceSourceFixed:
		return NewFixed(), nil
	case relayconfig.PriceSourceExternal:
		return NewExternal(cfg, breakers)
	default:
		return nil, errors.InvalidConfig("oracle: unknown price source %q", priceSource)
	}
}
