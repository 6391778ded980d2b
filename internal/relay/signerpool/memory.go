package signerpool

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	relerrors "github.com/kora-labs/relayer/internal/errors"
)

// MemorySigner holds a private key in process memory and signs
// directly with it. Intended for development and low-value
// deployments; production fee-payers should use one of the HSM
// backends.
type MemorySigner struct {
	key       solana.PrivateKey
	rpcClient *rpc.Client
}

// NewMemorySigner builds a MemorySigner from an already-parsed key.
func NewMemorySigner(key solana.PrivateKey, rpcClient *rpc.Client) *MemorySigner {
	return &MemorySigner{key: key, rpcClient: rpcClient}
}

func (s *MemorySigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *MemorySigner) Sign(_ context.Context, message []byte) (solana.Signature, error) {
	sig, err := s.key.Sign(message)
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "memory signer sign")
	}
	return sig, nil
}

func (s *MemorySigner) LamportBalance(ctx context.Context) (uint64, error) {
	result, err := s.rpcClient.GetBalance(ctx, s.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return 0, relerrors.RPC(err, "get balance for %s", s.PublicKey())
	}
	return result.Value, nil
}
