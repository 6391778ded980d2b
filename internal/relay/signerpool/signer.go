// Package signerpool builds and selects among fee-payer signing
// backends: an in-process memory signer and three HSM-backed signers
// (Turnkey, Privy, Vault) that never hold the raw private key inside
// this process. All four implement the same narrow Signer contract so
// the bundle processor and balance monitor can treat them uniformly.
package signerpool

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Signer can report its own public key, sign an arbitrary message, and
// report its own lamport balance. LamportBalance satisfies
// monitoring.BalanceSource without importing that package.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, message []byte) (solana.Signature, error)
	LamportBalance(ctx context.Context) (uint64, error)
}

// Entry pairs a named, weighted Signer for pool bookkeeping.
type Entry struct {
	Name   string
	Weight uint32
	Signer Signer
}
