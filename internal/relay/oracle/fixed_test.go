package oracle

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestFixed_ToLamportsPassesThroughUnchanged(t *testing.T) {
	f := NewFixed()
	mint := solana.NewWallet().PublicKey()

	lamports, err := f.ToLamports(context.Background(), mint, 42)
	if err != nil {
		t.Fatalf("ToLamports() error: %v", err)
	}
	if lamports != 42 {
		t.Errorf("ToLamports() = %d, want 42 (fixed source bypasses conversion)", lamports)
	}
}

func TestFixed_ToMintUnitsPassesThroughUnchanged(t *testing.T) {
	f := NewFixed()
	mint := solana.NewWallet().PublicKey()

	units, err := f.ToMintUnits(context.Background(), mint, 42)
	if err != nil {
		t.Fatalf("ToMintUnits() error: %v", err)
	}
	if units != 42 {
		t.Errorf("ToMintUnits() = %v, want 42", units)
	}
}
