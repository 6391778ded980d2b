package txresolve

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/cacheutil"
	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/metrics"
)

// CachedLookupTableResolver resolves address lookup tables against
// the chain RPC, caching results since the same table is referenced
// by many transactions and its contents only grow over time.
type CachedLookupTableResolver struct {
	rpcClient *rpc.Client
	cache     *cacheutil.Keyed[solana.PublicKey, []solana.PublicKey]
	metrics   *metrics.Metrics
}

// NewCachedLookupTableResolver builds a resolver caching up to size
// distinct lookup tables for ttl.
func NewCachedLookupTableResolver(rpcClient *rpc.Client, m *metrics.Metrics, size int, ttl time.Duration) (*CachedLookupTableResolver, error) {
	cache, err := cacheutil.NewKeyed[solana.PublicKey, []solana.PublicKey](size, ttl)
	if err != nil {
		return nil, err
	}
	return &CachedLookupTableResolver{rpcClient: rpcClient, cache: cache, metrics: m}, nil
}

// Resolve implements LookupTableResolver.
func (c *CachedLookupTableResolver) Resolve(ctx context.Context, table solana.PublicKey) ([]solana.PublicKey, error) {
	return c.cache.Get(table, func() ([]solana.PublicKey, error) {
		start := time.Now()
		info, err := c.rpcClient.GetAccountInfo(ctx, table)
		if c.metrics != nil {
			c.metrics.ObserveRPCCall("getAccountInfo", time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}
		if info == nil || info.Value == nil {
			return nil, errors.RPC(nil, "address lookup table %s not found", table)
		}

		state, err := addresslookuptable.DecodeAddressLookupTableState(info.Value.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		return state.Addresses, nil
	})
}

// RPCSimulator submits transactions to the chain's simulate RPC with
// inner-instruction capture enabled.
type RPCSimulator struct {
	rpcClient *rpc.Client
	metrics   *metrics.Metrics
}

// NewRPCSimulator builds a Simulator backed by rpcClient.
func NewRPCSimulator(rpcClient *rpc.Client, m *metrics.Metrics) *RPCSimulator {
	return &RPCSimulator{rpcClient: rpcClient, metrics: m}
}

// Simulate implements Simulator.
func (s *RPCSimulator) Simulate(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	start := time.Now()
	result, err := s.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		InnerInstructions:      true,
		ReplaceRecentBlockhash: true,
	})
	if s.metrics != nil {
		s.metrics.ObserveRPCCall("simulateTransaction", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, errors.RPC(nil, "empty simulation result")
	}

	out := &SimulationResult{Err: result.Value.Err, Logs: result.Value.Logs}
	for _, group := range result.Value.InnerInstructions {
		ig := InnerInstructionGroup{Index: uint16(group.Index)}
		for _, inst := range group.Instructions {
			raw, err := inst.MarshalJSON()
			if err != nil {
				continue
			}
			ig.InstructionsJSON = append(ig.InstructionsJSON, raw)
		}
		out.InnerInstructions = append(out.InnerInstructions, ig)
	}
	return out, nil
}
