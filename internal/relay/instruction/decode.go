package instruction

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// DecodeWire decodes a compiled instruction against the given program
// ID and resolved account list. It returns (nil, nil) for a program or
// tag it does not recognise; the caller (the validator) still sees the
// instruction at the program-id level even when this returns nothing.
func DecodeWire(programID solana.PublicKey, accounts []*solana.AccountMeta, data []byte) (*Parsed, error) {
	switch {
	case programID.Equals(solana.SystemProgramID):
		return decodeSystemWire(accounts, data)
	case programID.Equals(solana.TokenProgramID), programID.Equals(solana.Token2022ProgramID):
		return decodeTokenWire(accounts, data)
	default:
		return nil, nil
	}
}

func decodeSystemWire(accounts []*solana.AccountMeta, data []byte) (*Parsed, error) {
	decoded, err := system.DecodeInstruction(accounts, data)
	if err != nil {
		return nil, nil // not a recognised system instruction tag
	}

	switch ins := decoded.Impl.(type) {
	case *system.Transfer:
		if err := accountCountGuard("system", KindSystemTransfer, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "system",
			Kind:        KindSystemTransfer,
			Source:      ins.GetFundingAccount().PublicKey,
			Destination: ins.GetRecipientAccount().PublicKey,
			Lamports:    derefU64(ins.Lamports),
		}, nil
	case *system.TransferWithSeed:
		if err := accountCountGuard("system", KindSystemTransferWithSeed, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "system",
			Kind:        KindSystemTransferWithSeed,
			Source:      ins.GetFundingAccount().PublicKey,
			Base:        ins.GetBaseForFundingAccount().PublicKey,
			Destination: ins.GetRecipientAccount().PublicKey,
			Lamports:    derefU64(ins.Lamports),
			Seed:        derefString(ins.Seed),
		}, nil
	case *system.CreateAccount:
		if err := accountCountGuard("system", KindSystemCreateAccount, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:    "system",
			Kind:       KindSystemCreateAccount,
			Source:     ins.GetFundingAccount().PublicKey,
			NewAccount: ins.GetNewAccount().PublicKey,
			Lamports:   derefU64(ins.Lamports),
			Space:      derefU64(ins.Space),
		}, nil
	case *system.CreateAccountWithSeed:
		if err := accountCountGuard("system", KindSystemCreateAccountWithSeed, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:    "system",
			Kind:       KindSystemCreateAccountWithSeed,
			Source:     ins.GetFundingAccount().PublicKey,
			NewAccount: ins.GetCreatedAccount().PublicKey,
			Base:       ins.GetBaseAccount().PublicKey,
			Lamports:   derefU64(ins.Lamports),
			Space:      derefU64(ins.Space),
			Seed:       derefString(ins.Seed),
		}, nil
	case *system.Assign:
		if err := accountCountGuard("system", KindSystemAssign, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program: "system",
			Kind:    KindSystemAssign,
			Source:  ins.GetAssignedAccount().PublicKey,
			Owner:   derefPubkey(ins.Owner),
		}, nil
	case *system.AssignWithSeed:
		if err := accountCountGuard("system", KindSystemAssignWithSeed, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program: "system",
			Kind:    KindSystemAssignWithSeed,
			Source:  ins.GetAssignedAccount().PublicKey,
			Base:    ins.GetBaseAccount().PublicKey,
			Owner:   derefPubkey(ins.Owner),
			Seed:    derefString(ins.Seed),
		}, nil
	case *system.WithdrawNonceAccount:
		if err := accountCountGuard("system", KindSystemWithdrawFromNonce, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "system",
			Kind:        KindSystemWithdrawFromNonce,
			Source:      ins.GetNonceAccount().PublicKey,
			Destination: ins.GetRecipientAccount().PublicKey,
			Authority:   ins.GetNonceAuthorityAccount().PublicKey,
			Lamports:    derefU64(ins.Lamports),
		}, nil
	default:
		return nil, nil
	}
}

func decodeTokenWire(accounts []*solana.AccountMeta, data []byte) (*Parsed, error) {
	decoded, err := token.DecodeInstruction(accounts, data)
	if err != nil {
		return nil, nil
	}

	switch ins := decoded.Impl.(type) {
	case *token.Transfer:
		if err := accountCountGuard("token", KindTokenTransfer, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "token",
			Kind:        KindTokenTransfer,
			Source:      ins.GetSourceAccount().PublicKey,
			Destination: ins.GetDestinationAccount().PublicKey,
			Authority:   ins.GetOwnerAccount().PublicKey,
			Amount:      derefU64(ins.Amount),
		}, nil
	case *token.TransferChecked:
		if err := accountCountGuard("token", KindTokenTransferChecked, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "token",
			Kind:        KindTokenTransferChecked,
			Source:      ins.GetSourceAccount().PublicKey,
			Mint:        ins.GetMintAccount().PublicKey,
			Destination: ins.GetDestinationAccount().PublicKey,
			Authority:   ins.GetOwnerAccount().PublicKey,
			Amount:      derefU64(ins.Amount),
			Decimals:    derefU8(ins.Decimals),
		}, nil
	case *token.Burn:
		if err := accountCountGuard("token", KindTokenBurn, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:   "token",
			Kind:      KindTokenBurn,
			Source:    ins.GetSourceAccount().PublicKey,
			Mint:      ins.GetMintAccount().PublicKey,
			Authority: ins.GetOwnerAccount().PublicKey,
			Amount:    derefU64(ins.Amount),
		}, nil
	case *token.BurnChecked:
		if err := accountCountGuard("token", KindTokenBurnChecked, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:   "token",
			Kind:      KindTokenBurnChecked,
			Source:    ins.GetSourceAccount().PublicKey,
			Mint:      ins.GetMintAccount().PublicKey,
			Authority: ins.GetOwnerAccount().PublicKey,
			Amount:    derefU64(ins.Amount),
			Decimals:  derefU8(ins.Decimals),
		}, nil
	case *token.CloseAccount:
		if err := accountCountGuard("token", KindTokenCloseAccount, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:     "token",
			Kind:        KindTokenCloseAccount,
			Source:      ins.GetAccount().PublicKey,
			Destination: ins.GetDestinationAccount().PublicKey,
			Authority:   ins.GetOwnerAccount().PublicKey,
		}, nil
	case *token.Approve:
		if err := accountCountGuard("token", KindTokenApprove, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:   "token",
			Kind:      KindTokenApprove,
			Source:    ins.GetSourceAccount().PublicKey,
			Delegate:  ins.GetDelegateAccount().PublicKey,
			Authority: ins.GetOwnerAccount().PublicKey,
			Amount:    derefU64(ins.Amount),
		}, nil
	case *token.ApproveChecked:
		if err := accountCountGuard("token", KindTokenApproveChecked, accountKeys(accounts)); err != nil {
			return nil, err
		}
		return &Parsed{
			Program:   "token",
			Kind:      KindTokenApproveChecked,
			Source:    ins.GetSourceAccount().PublicKey,
			Mint:      ins.GetMintAccount().PublicKey,
			Delegate:  ins.GetDelegateAccount().PublicKey,
			Authority: ins.GetOwnerAccount().PublicKey,
			Amount:    derefU64(ins.Amount),
			Decimals:  derefU8(ins.Decimals),
		}, nil
	default:
		return nil, nil
	}
}

func accountKeys(accounts []*solana.AccountMeta) []solana.PublicKey {
	keys := make([]solana.PublicKey, len(accounts))
	for i, a := range accounts {
		keys[i] = a.PublicKey
	}
	return keys
}

func derefU64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefU8(p *uint8) uint8 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefPubkey(p *solana.PublicKey) solana.PublicKey {
	if p == nil {
		return solana.PublicKey{}
	}
	return *p
}
