package txresolve

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
)

// LookupTableResolver fetches and decodes an address lookup table
// account's address list, typically behind a cache since the same
// table is referenced by many transactions.
type LookupTableResolver interface {
	Resolve(ctx context.Context, table solana.PublicKey) (addresses []solana.PublicKey, err error)
}

// SimulationResult is the subset of a simulate-transaction RPC
// response the resolver needs.
type SimulationResult struct {
	Err  any
	Logs []string

	// InnerInstructions groups captured inner instructions by the
	// index of the top-level instruction that produced them via CPI.
	InnerInstructions []InnerInstructionGroup
}

// InnerInstructionGroup is one top-level instruction's captured CPI
// calls, each still in the chain RPC's "parsed" JSON shape.
type InnerInstructionGroup struct {
	Index        uint16
	InstructionsJSON [][]byte
}

// Simulator submits a transaction to the chain's simulate RPC with
// inner-instruction capture enabled.
type Simulator interface {
	Simulate(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
}

// Resolver builds Resolved Transactions.
type Resolver struct {
	lookupTables LookupTableResolver
	simulator    Simulator
}

// New builds a Resolver.
func New(lookupTables LookupTableResolver, simulator Simulator) *Resolver {
	return &Resolver{lookupTables: lookupTables, simulator: simulator}
}

// Construct builds a full Resolved Transaction: it expands any address
// lookup tables referenced by tx, uncompiles every top-level
// instruction against the resulting flat key list, simulates the
// transaction to capture inner instructions, and merges those in too.
func (r *Resolver) Construct(ctx context.Context, tx *solana.Transaction) (*ResolvedTransaction, error) {
	allKeys, err := r.resolveAccountKeys(ctx, tx)
	if err != nil {
		return nil, err
	}

	top, err := uncompileInstructions(tx.Message.Instructions, allKeys, false)
	if err != nil {
		return nil, err
	}

	sim, err := r.simulator.Simulate(ctx, tx)
	if err != nil {
		return nil, errors.RPC(err, "simulate transaction")
	}
	if sim.Err != nil {
		return nil, errors.SimulationFailed(formatSimError(sim.Err), sim.Logs)
	}

	all := top
	for _, group := range sim.InnerInstructions {
		for _, raw := range group.InstructionsJSON {
			inner, err := decodeInnerInstructionJSON(raw, allKeys)
			if err != nil {
				return nil, err
			}
			if inner != nil {
				all = append(all, *inner)
			}
		}
	}

	return &ResolvedTransaction{Tx: tx, AllAccountKeys: allKeys, Instructions: all}, nil
}

// FastPath builds a Resolved Transaction for a locally built
// transaction known to reference no address lookup tables and to
// produce no inner instructions, skipping both RPC round-trips. The
// bundle processor uses this to perform structural validation before
// a transaction is ever signed or submitted.
func FastPath(tx *solana.Transaction) (*ResolvedTransaction, error) {
	if len(tx.Message.AddressTableLookups) > 0 {
		return nil, errors.Validation("fast path resolution does not support address lookup tables")
	}

	allKeys := append([]solana.PublicKey{}, tx.Message.AccountKeys...)
	top, err := uncompileInstructions(tx.Message.Instructions, allKeys, false)
	if err != nil {
		return nil, err
	}
	return &ResolvedTransaction{Tx: tx, AllAccountKeys: allKeys, Instructions: top}, nil
}

func (r *Resolver) resolveAccountKeys(ctx context.Context, tx *solana.Transaction) ([]solana.PublicKey, error) {
	allKeys := append([]solana.PublicKey{}, tx.Message.AccountKeys...)

	for _, lookup := range tx.Message.AddressTableLookups {
		addresses, err := r.lookupTables.Resolve(ctx, lookup.AccountKey)
		if err != nil {
			return nil, errors.RPC(err, "resolve address lookup table %s", lookup.AccountKey)
		}

		for _, idx := range lookup.WritableIndexes {
			if int(idx) >= len(addresses) {
				return nil, errors.Validation("address lookup table %s: writable index %d out of range", lookup.AccountKey, idx)
			}
			allKeys = append(allKeys, addresses[idx])
		}
		for _, idx := range lookup.ReadonlyIndexes {
			if int(idx) >= len(addresses) {
				return nil, errors.Validation("address lookup table %s: readonly index %d out of range", lookup.AccountKey, idx)
			}
			allKeys = append(allKeys, addresses[idx])
		}
	}

	return allKeys, nil
}

func uncompileInstructions(compiled []solana.CompiledInstruction, allKeys []solana.PublicKey, inner bool) ([]UncompiledInstruction, error) {
	out := make([]UncompiledInstruction, 0, len(compiled))
	for _, ci := range compiled {
		if int(ci.ProgramIDIndex) >= len(allKeys) {
			return nil, errors.Validation("instruction program-id index %d out of range", ci.ProgramIDIndex)
		}
		accounts := make([]*solana.AccountMeta, 0, len(ci.Accounts))
		for _, idx := range ci.Accounts {
			if int(idx) >= len(allKeys) {
				return nil, errors.Validation("instruction account index %d out of range", idx)
			}
			accounts = append(accounts, &solana.AccountMeta{PublicKey: allKeys[idx]})
		}
		out = append(out, UncompiledInstruction{
			ProgramID: allKeys[ci.ProgramIDIndex],
			Accounts:  accounts,
			Data:      ci.Data,
			Inner:     inner,
		})
	}
	return out, nil
}

func formatSimError(err any) string {
	if err == nil {
		return ""
	}
	if s, ok := err.(string); ok {
		return s
	}
	if stringer, ok := err.(interface{ String() string }); ok {
		return stringer.String()
	}
	return "transaction execution error"
}
