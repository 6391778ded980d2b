package oracle

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Fixed bypasses price conversion entirely: the amount a caller hands
// it is already denominated in lamports, matching PriceModel::Fixed's
// semantics where the operator names a literal lamport price rather
// than a token amount to be converted.
type Fixed struct{}

// NewFixed builds a Fixed source.
func NewFixed() *Fixed {
	return &Fixed{}
}

func (Fixed) ToLamports(_ context.Context, _ solana.PublicKey, amount uint64) (uint64, error) {
	return amount, nil
}

func (Fixed) ToMintUnits(_ context.Context, _ solana.PublicKey, lamports uint64) (float64, error) {
	return float64(lamports), nil
}
