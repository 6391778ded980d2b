// Package validate implements the relayer's request-path and
// startup-time policy checks: structural soundness of a resolved
// transaction, program and account allow/deny lists, the fee-payer's
// lamport outflow bound, the fee-payer usage policy, and the
// Token-2022 extension checks that gate a mint or token account from
// being used at all.
package validate

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/fee"
	"github.com/kora-labs/relayer/internal/relay/instruction"
	"github.com/kora-labs/relayer/internal/relay/txresolve"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// TokenAccountView is the subset of token-account state the validator
// needs to decide whether it may be used as a payment source.
type TokenAccountView struct {
	Owner          solana.PublicKey
	Mint           solana.PublicKey
	Program        string // "token" or "token-2022"
	CPIGuardLocked bool
}

// MintView is the subset of mint state the validator needs.
type MintView struct {
	Program         string
	NonTransferable bool
}

// TokenAccountInspector loads token account state for transfer-blocker checks.
type TokenAccountInspector interface {
	Inspect(ctx context.Context, account solana.PublicKey) (*TokenAccountView, error)
}

// MintInspector loads mint state for mint validation.
type MintInspector interface {
	Inspect(ctx context.Context, mint solana.PublicKey) (*MintView, error)
}

// Validator runs every request-path policy check.
type Validator struct {
	cfg      relayconfig.ValidationConfig
	accounts TokenAccountInspector
	mints    MintInspector
}

// New builds a Validator against cfg.
func New(cfg relayconfig.ValidationConfig, accounts TokenAccountInspector, mints MintInspector) *Validator {
	return &Validator{cfg: cfg, accounts: accounts, mints: mints}
}

// Validate runs every structural and policy check against resolved,
// charged to feePayer.
func (v *Validator) Validate(ctx context.Context, resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) error {
	if err := v.validateStructural(resolved); err != nil {
		return err
	}
	if err := v.validateProgramAllowlist(resolved); err != nil {
		return err
	}
	if err := v.validateDisallowedAccounts(resolved); err != nil {
		return err
	}
	if err := v.validateOutflowBound(resolved, feePayer); err != nil {
		return err
	}
	if err := v.validateFeePayerPolicy(resolved, feePayer); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateStructural(resolved *txresolve.ResolvedTransaction) error {
	if len(resolved.Instructions) == 0 {
		return errors.Validation("transaction has no instructions")
	}
	if len(resolved.AllAccountKeys) == 0 {
		return errors.Validation("transaction has no account keys")
	}
	if len(resolved.Tx.Signatures) == 0 {
		return errors.Validation("transaction has no signatures")
	}
	if v.cfg.MaxSignatures > 0 && uint64(len(resolved.Tx.Signatures)) > v.cfg.MaxSignatures {
		return errors.Validation("transaction has %d signatures, exceeding the maximum of %d", len(resolved.Tx.Signatures), v.cfg.MaxSignatures)
	}
	return nil
}

func (v *Validator) validateProgramAllowlist(resolved *txresolve.ResolvedTransaction) error {
	if len(v.cfg.AllowedPrograms) == 0 {
		return nil
	}
	allowed := toPubkeySet(v.cfg.AllowedPrograms)
	for _, inst := range resolved.Instructions {
		if !allowed[inst.ProgramID] {
			return errors.Validation("program %s is not in the allowed-programs list", inst.ProgramID)
		}
	}
	return nil
}

func (v *Validator) validateDisallowedAccounts(resolved *txresolve.ResolvedTransaction) error {
	if len(v.cfg.DisallowedAccounts) == 0 {
		return nil
	}
	disallowed := toPubkeySet(v.cfg.DisallowedAccounts)

	// AllAccountKeys already has every address lookup table's
	// addresses expanded into it, so this single pass also covers
	// the lookup-table-contents pre-flight the validator requires.
	for _, key := range resolved.AllAccountKeys {
		if disallowed[key] {
			return errors.Validation("account %s is disallowed", key)
		}
	}
	for _, inst := range resolved.Instructions {
		if disallowed[inst.ProgramID] {
			return errors.Validation("program %s is disallowed", inst.ProgramID)
		}
	}
	return nil
}

func (v *Validator) validateOutflowBound(resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) error {
	if v.cfg.MaxAllowedLamports == 0 {
		return nil
	}
	outflow, err := fee.ComputeFeePayerOutflow(resolved, feePayer)
	if err != nil {
		return err
	}
	if outflow > v.cfg.MaxAllowedLamports {
		return errors.Validation("fee-payer outflow %d lamports exceeds the maximum of %d", outflow, v.cfg.MaxAllowedLamports)
	}
	return nil
}

func (v *Validator) validateFeePayerPolicy(resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) error {
	systemInstructions, err := resolved.AllParsedSystem()
	if err != nil {
		return err
	}
	for _, p := range systemInstructions {
		switch p.Kind {
		case instruction.KindSystemTransfer, instruction.KindSystemTransferWithSeed:
			if p.Source.Equals(feePayer) && !v.cfg.FeePayerPolicy.AllowSOLTransfers {
				return errors.Validation("fee-payer policy forbids the fee-payer sending a SOL transfer")
			}
		case instruction.KindSystemAssign, instruction.KindSystemAssignWithSeed:
			if p.Source.Equals(feePayer) && !v.cfg.FeePayerPolicy.AllowAssign {
				return errors.Validation("fee-payer policy forbids the fee-payer as an assign authority")
			}
		}
	}

	for i := range resolved.Instructions {
		t, err := resolved.GetOrParseToken(i)
		if err != nil {
			return err
		}
		if t == nil || !t.Authority.Equals(feePayer) {
			continue
		}
		isToken2022 := resolved.Instructions[i].ProgramID.Equals(solana.Token2022ProgramID)

		switch t.Kind {
		case instruction.KindTokenTransfer, instruction.KindTokenTransferChecked:
			if isToken2022 {
				if !v.cfg.FeePayerPolicy.AllowToken2022Transfers {
					return errors.Validation("fee-payer policy forbids the fee-payer as a token-2022 transfer owner")
				}
			} else if !v.cfg.FeePayerPolicy.AllowSPLTransfers {
				return errors.Validation("fee-payer policy forbids the fee-payer as an SPL transfer owner")
			}
		case instruction.KindTokenApprove, instruction.KindTokenApproveChecked:
			if !v.cfg.FeePayerPolicy.AllowApprove {
				return errors.Validation("fee-payer policy forbids the fee-payer as an approve owner")
			}
		case instruction.KindTokenBurn, instruction.KindTokenBurnChecked:
			if !v.cfg.FeePayerPolicy.AllowBurn {
				return errors.Validation("fee-payer policy forbids the fee-payer as a burn owner")
			}
		case instruction.KindTokenCloseAccount:
			if !v.cfg.FeePayerPolicy.AllowCloseAccount {
				return errors.Validation("fee-payer policy forbids the fee-payer closing a token account")
			}
		}
	}
	return nil
}

// ValidateMint implements fetch_and_validate_token_mint: mint must be
// in the operator's allowed-tokens list, then loaded and checked for
// recognised extensions.
func (v *Validator) ValidateMint(ctx context.Context, mint solana.PublicKey) (*MintView, error) {
	if len(v.cfg.AllowedTokens) > 0 {
		allowed := toPubkeySet(v.cfg.AllowedTokens)
		if !allowed[mint] {
			return nil, errors.Validation("mint %s is not in the allowed-tokens list", mint)
		}
	}
	view, err := v.mints.Inspect(ctx, mint)
	if err != nil {
		return nil, errors.RPC(err, "inspect mint %s", mint)
	}
	return view, nil
}

// ValidateTokenAccountForPayment implements the token-account
// transfer-blocker checks: the mint must not be non-transferable, the
// account's CPI guard must not be locked, and the account must be
// owned by the token program that decoded it.
func (v *Validator) ValidateTokenAccountForPayment(ctx context.Context, account solana.PublicKey) (*TokenAccountView, error) {
	view, err := v.accounts.Inspect(ctx, account)
	if err != nil {
		return nil, errors.RPC(err, "inspect token account %s", account)
	}

	mint, err := v.mints.Inspect(ctx, view.Mint)
	if err != nil {
		return nil, errors.RPC(err, "inspect mint %s", view.Mint)
	}
	if mint.NonTransferable {
		return nil, errors.Validation("mint %s is non-transferable", view.Mint)
	}
	if view.CPIGuardLocked {
		return nil, errors.Validation("token account %s has CPI guard locked", account)
	}
	if view.Program != mint.Program {
		return nil, errors.Validation("token account %s owner program %q does not match mint program %q", account, view.Program, mint.Program)
	}
	return view, nil
}

// ValidateLamportFee enforces the standalone lamport-fee ceiling,
// called both after fee composition and between bundle elements.
func (v *Validator) ValidateLamportFee(lamports uint64) error {
	if v.cfg.MaxAllowedLamports > 0 && lamports > v.cfg.MaxAllowedLamports {
		return errors.Validation("fee %d lamports exceeds the maximum of %d", lamports, v.cfg.MaxAllowedLamports)
	}
	return nil
}

func toPubkeySet(addrs []string) map[solana.PublicKey]bool {
	set := make(map[solana.PublicKey]bool, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			continue
		}
		set[pk] = true
	}
	return set
}
