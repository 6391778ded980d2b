// Package txresolve turns a wire Solana transaction into a Resolved
// Transaction: address lookup tables expanded into a single flat
// account-key list, every top-level instruction uncompiled against
// it, and (when simulated) inner instructions captured and merged in,
// so the rest of the pipeline never has to special-case versioned
// transactions or CPI-only instructions.
package txresolve

import (
	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/instruction"
)

// UncompiledInstruction is a top-level or inner instruction once its
// program ID and accounts have been resolved against AllAccountKeys.
type UncompiledInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte

	// Inner is true for instructions captured via simulation rather
	// than compiled directly into the transaction message.
	Inner bool
}

// ResolvedTransaction is the pipeline-wide view of a transaction: its
// original message, the flattened account-key list (static keys plus
// every address-lookup-table extension), every instruction uncompiled
// against that list, and lazily-populated parsed-instruction caches.
type ResolvedTransaction struct {
	Tx             *solana.Transaction
	AllAccountKeys []solana.PublicKey
	Instructions   []UncompiledInstruction

	systemParsed map[int]*instruction.Parsed
	tokenParsed  map[int]*instruction.Parsed
}

// GetOrParseSystem lazily decodes every instruction in idx against the
// system program on first call and returns the cached result on
// subsequent calls.
func (r *ResolvedTransaction) GetOrParseSystem(idx int) (*instruction.Parsed, error) {
	if r.systemParsed == nil {
		r.systemParsed = make(map[int]*instruction.Parsed)
	}
	if p, ok := r.systemParsed[idx]; ok {
		return p, nil
	}
	if idx < 0 || idx >= len(r.Instructions) {
		return nil, errors.Validation("instruction index %d out of range", idx)
	}
	inst := r.Instructions[idx]
	if !inst.ProgramID.Equals(solana.SystemProgramID) {
		return nil, nil
	}
	p, err := instruction.DecodeWire(inst.ProgramID, inst.Accounts, inst.Data)
	if err != nil {
		return nil, err
	}
	r.systemParsed[idx] = p
	return p, nil
}

// GetOrParseToken lazily decodes every instruction in idx against
// either token program on first call and returns the cached result on
// subsequent calls.
func (r *ResolvedTransaction) GetOrParseToken(idx int) (*instruction.Parsed, error) {
	if r.tokenParsed == nil {
		r.tokenParsed = make(map[int]*instruction.Parsed)
	}
	if p, ok := r.tokenParsed[idx]; ok {
		return p, nil
	}
	if idx < 0 || idx >= len(r.Instructions) {
		return nil, errors.Validation("instruction index %d out of range", idx)
	}
	inst := r.Instructions[idx]
	if !inst.ProgramID.Equals(solana.TokenProgramID) && !inst.ProgramID.Equals(solana.Token2022ProgramID) {
		return nil, nil
	}
	p, err := instruction.DecodeWire(inst.ProgramID, inst.Accounts, inst.Data)
	if err != nil {
		return nil, err
	}
	r.tokenParsed[idx] = p
	return p, nil
}

// AllParsedSystem returns every instruction that parses as a system
// instruction, in instruction order.
func (r *ResolvedTransaction) AllParsedSystem() ([]*instruction.Parsed, error) {
	out := make([]*instruction.Parsed, 0, len(r.Instructions))
	for i := range r.Instructions {
		p, err := r.GetOrParseSystem(i)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// AllParsedTokenTransfers returns every instruction that parses as a
// token transfer or transferChecked, in instruction order.
func (r *ResolvedTransaction) AllParsedTokenTransfers() ([]*instruction.Parsed, error) {
	out := make([]*instruction.Parsed, 0, len(r.Instructions))
	for i := range r.Instructions {
		p, err := r.GetOrParseToken(i)
		if err != nil {
			return nil, err
		}
		if p != nil && (p.Kind == instruction.KindTokenTransfer || p.Kind == instruction.KindTokenTransferChecked) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindFeePayerSlot locates feePayer within AllAccountKeys; the fee
// payer is not assumed to occupy the first signer slot.
func (r *ResolvedTransaction) FindFeePayerSlot(feePayer solana.PublicKey) (int, error) {
	for i, key := range r.AllAccountKeys {
		if key.Equals(feePayer) {
			return i, nil
		}
	}
	return -1, errors.Validation("fee payer %s not present in transaction account keys", feePayer)
}
