package fee

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/metrics"
)

// RPCBaseFeeSource implements BaseFeeSource against the chain's
// getFeeForMessage RPC.
type RPCBaseFeeSource struct {
	rpcClient *rpc.Client
	metrics   *metrics.Metrics
}

// NewRPCBaseFeeSource builds a BaseFeeSource backed by rpcClient.
func NewRPCBaseFeeSource(rpcClient *rpc.Client, m *metrics.Metrics) *RPCBaseFeeSource {
	return &RPCBaseFeeSource{rpcClient: rpcClient, metrics: m}
}

// GetFeeForMessage implements BaseFeeSource.
func (s *RPCBaseFeeSource) GetFeeForMessage(ctx context.Context, msg *solana.Message) (uint64, error) {
	start := time.Now()
	result, err := s.rpcClient.GetFeeForMessage(ctx, *msg)
	if s.metrics != nil {
		s.metrics.ObserveRPCCall("getFeeForMessage", time.Since(start), err)
	}
	if err != nil {
		return 0, err
	}
	if result == nil || result.Value == nil {
		return 0, errors.RPC(nil, "getFeeForMessage returned no value")
	}
	return *result.Value, nil
}
