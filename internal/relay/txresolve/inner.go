package txresolve

import (
	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/relay/instruction"
)

// decodeInnerInstructionJSON turns one inner instruction, captured by
// simulation in the chain RPC's parsed-JSON shape, into the same
// UncompiledInstruction shape a top-level compiled instruction
// produces, via C1's parse-then-reconstruct round trip. A nil, nil
// return means the instruction's program/tag wasn't recognised; it is
// dropped rather than failing the whole simulation capture, matching
// the top-level decoder's same tolerance for unknown programs.
func decodeInnerInstructionJSON(raw []byte, allKeys []solana.PublicKey) (*UncompiledInstruction, error) {
	parsed, err := instruction.FromJSON(raw)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, nil
	}

	built, err := instruction.Reconstruct(parsed)
	if err != nil {
		return nil, err
	}

	accounts, err := built.Accounts()
	if err != nil {
		return nil, err
	}

	return &UncompiledInstruction{
		ProgramID: built.ProgramID(),
		Accounts:  accounts,
		Data:      mustData(built),
		Inner:     true,
	}, nil
}

func mustData(ix solana.Instruction) []byte {
	data, err := ix.Data()
	if err != nil {
		return nil
	}
	return data
}
