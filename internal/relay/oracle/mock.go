package oracle

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Mock is a constant-rate price source: every mint converts at the
// same operator-configured lamports-per-unit rate, for tests and
// local development where no real quote endpoint is reachable.
type Mock struct {
	lamportsPerUnit uint64
}

// NewMock builds a Mock charging lamportsPerUnit lamports for each
// unit of any mint's smallest denomination.
func NewMock(lamportsPerUnit uint64) *Mock {
	return &Mock{lamportsPerUnit: lamportsPerUnit}
}

func (m *Mock) ToLamports(_ context.Context, _ solana.PublicKey, amount uint64) (uint64, error) {
	return amount * m.lamportsPerUnit, nil
}

func (m *Mock) ToMintUnits(_ context.Context, _ solana.PublicKey, lamports uint64) (float64, error) {
	if m.lamportsPerUnit == 0 {
		return 0, nil
	}
	return float64(lamports) / float64(m.lamportsPerUnit), nil
}
