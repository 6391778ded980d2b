package oracle

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestMock_ToLamportsScalesByRate(t *testing.T) {
	m := NewMock(500)
	mint := solana.NewWallet().PublicKey()

	lamports, err := m.ToLamports(context.Background(), mint, 10)
	if err != nil {
		t.Fatalf("ToLamports() error: %v", err)
	}
	if lamports != 5000 {
		t.Errorf("ToLamports() = %d, want 5000", lamports)
	}
}

func TestMock_ToMintUnitsInvertsRate(t *testing.T) {
	m := NewMock(500)
	mint := solana.NewWallet().PublicKey()

	units, err := m.ToMintUnits(context.Background(), mint, 5000)
	if err != nil {
		t.Fatalf("ToMintUnits() error: %v", err)
	}
	if units != 10 {
		t.Errorf("ToMintUnits() = %v, want 10", units)
	}
}

func TestMock_ToMintUnitsZeroRateReturnsZero(t *testing.T) {
	m := NewMock(0)
	mint := solana.NewWallet().PublicKey()

	units, err := m.ToMintUnits(context.Background(), mint, 5000)
	if err != nil {
		t.Fatalf("ToMintUnits() error: %v", err)
	}
	if units != 0 {
		t.Errorf("ToMintUnits() = %v, want 0 when rate is 0", units)
	}
}
