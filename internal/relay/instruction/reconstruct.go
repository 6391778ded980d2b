package instruction

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/kora-labs/relayer/internal/errors"
)

// Reconstruct builds a compiled instruction from a Parsed record using
// the originating program's own instruction builder, so the result is
// byte-identical to what the program's encoder would emit. This is
// how an inner instruction, which the chain RPC only ever hands back
// in parsed JSON form, gets turned back into something the rest of
// the pipeline can treat the same as an outer, already-compiled
// instruction.
//
// Multisig source/owner accounts are out of scope: every builder call
// below passes an empty signer list, matching the single-signer
// authority model the rest of the relayer assumes.
func Reconstruct(p *Parsed) (solana.Instruction, error) {
	switch p.Program {
	case "system":
		return reconstructSystem(p)
	case "token":
		return reconstructToken(p)
	default:
		return nil, errors.Validation("cannot reconstruct instruction for unknown program %q", p.Program)
	}
}

func reconstructSystem(p *Parsed) (solana.Instruction, error) {
	switch p.Kind {
	case KindSystemTransfer:
		return system.NewTransferInstruction(p.Lamports, p.Source, p.Destination).Build(), nil
	case KindSystemTransferWithSeed:
		return system.NewTransferWithSeedInstruction(
			p.Lamports, p.Seed, p.Owner,
			p.Source, p.Base, p.Destination,
		).Build(), nil
	case KindSystemCreateAccount:
		return system.NewCreateAccountInstruction(
			p.Lamports, p.Space, p.Owner,
			p.Source, p.NewAccount,
		).Build(), nil
	case KindSystemCreateAccountWithSeed:
		return system.NewCreateAccountWithSeedInstruction(
			p.Base, p.Seed, p.Lamports, p.Space, p.Owner,
			p.Source, p.NewAccount, p.Base,
		).Build(), nil
	case KindSystemAssign:
		return system.NewAssignInstruction(p.Owner, p.Source).Build(), nil
	case KindSystemAssignWithSeed:
		return system.NewAssignWithSeedInstruction(p.Base, p.Seed, p.Owner, p.Source).Build(), nil
	case KindSystemWithdrawFromNonce:
		return system.NewWithdrawNonceAccountInstruction(
			p.Lamports, p.Source, p.Authority, p.Destination,
		).Build(), nil
	default:
		return nil, errors.Validation("cannot reconstruct unsupported system instruction %q", p.Kind)
	}
}

func reconstructToken(p *Parsed) (solana.Instruction, error) {
	var noSigners []solana.PublicKey

	switch p.Kind {
	case KindTokenTransfer:
		return token.NewTransferInstruction(
			p.Amount, p.Source, p.Destination, p.Authority, noSigners,
		).Build(), nil
	case KindTokenTransferChecked:
		return token.NewTransferCheckedInstruction(
			p.Amount, p.Decimals, p.Source, p.Mint, p.Destination, p.Authority, noSigners,
		).Build(), nil
	case KindTokenBurn:
		return token.NewBurnInstruction(
			p.Amount, p.Source, p.Mint, p.Authority, noSigners,
		).Build(), nil
	case KindTokenBurnChecked:
		// burnChecked takes the same source, mint, authority accounts
		// as burn, plus the mint's decimals.
		return token.NewBurnCheckedInstruction(
			p.Amount, p.Decimals, p.Source, p.Mint, p.Authority, noSigners,
		).Build(), nil
	case KindTokenCloseAccount:
		return token.NewCloseAccountInstruction(
			p.Source, p.Destination, p.Authority, noSigners,
		).Build(), nil
	case KindTokenApprove:
		return token.NewApproveInstruction(
			p.Amount, p.Source, p.Delegate, p.Authority, noSigners,
		).Build(), nil
	case KindTokenApproveChecked:
		return token.NewApproveCheckedInstruction(
			p.Amount, p.Decimals, p.Source, p.Mint, p.Delegate, p.Authority, noSigners,
		).Build(), nil
	default:
		return nil, errors.Validation("cannot reconstruct unsupported token instruction %q", p.Kind)
	}
}
