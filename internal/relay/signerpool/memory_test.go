package signerpool

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestMemorySigner_PublicKeyMatchesKeypair(t *testing.T) {
	wallet := solana.NewWallet()
	signer := NewMemorySigner(wallet.PrivateKey, nil)

	if !signer.PublicKey().Equals(wallet.PublicKey()) {
		t.Errorf("PublicKey() = %s, want %s", signer.PublicKey(), wallet.PublicKey())
	}
}

func TestMemorySigner_SignProducesVerifiableSignature(t *testing.T) {
	wallet := solana.NewWallet()
	signer := NewMemorySigner(wallet.PrivateKey, nil)

	message := []byte("message to sign")
	sig, err := signer.Sign(context.Background(), message)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !sig.Verify(signer.PublicKey(), message) {
		t.Error("Sign() produced a signature that doesn't verify against the signer's public key")
	}
}
