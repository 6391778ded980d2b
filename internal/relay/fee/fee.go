// Package fee computes a resolved transaction's total lamport cost to
// the fee-payer: the chain's own base fee, an extra-signature fee when
// the fee-payer occupies no existing signature slot, the fee-payer's
// net SOL outflow across its own instructions, a surcharge when no
// payment instruction is present, and any Token-2022 transfer fee
// withheld from a payment. An operator price model then overlays the
// composed total.
package fee

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/instruction"
	"github.com/kora-labs/relayer/internal/relay/tokenfee"
	"github.com/kora-labs/relayer/internal/relay/txresolve"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// PerSignatureFeeLamports is the chain's standard fee per transaction
// signature, charged when the fee-payer needs a signature slot the
// message doesn't already reserve for it.
const PerSignatureFeeLamports uint64 = 5000

// EstimatedLamportsForPaymentInstruction approximates the compute-unit
// and extra-signature cost of a token-transfer-sized instruction, used
// as a surcharge when a transaction carries no payment instruction of
// its own.
const EstimatedLamportsForPaymentInstruction uint64 = 5000

// BaseFeeSource asks the chain for a message's base fee. For
// lookup-table transactions, callers must pass a legacy-message view
// (original header, all_account_keys, original compiled instructions)
// to sidestep a known RPC bug in lookup-index resolution.
type BaseFeeSource interface {
	GetFeeForMessage(ctx context.Context, msg *solana.Message) (uint64, error)
}

// TokenAccountResolver loads a token account's owner and mint.
type TokenAccountResolver interface {
	Resolve(ctx context.Context, account solana.PublicKey) (owner, mint solana.PublicKey, err error)
}

// MintTransferFeeResolver loads a mint's Token-2022 transfer-fee
// configuration, returning (nil, nil) for a mint with no such
// extension.
type MintTransferFeeResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (*tokenfee.Config, error)
}

// Breakdown is a Fee Breakdown: every component that fed into
// TotalLamports, kept separately so callers can report on composition
// without recomputing it.
type Breakdown struct {
	BaseFee               uint64
	ExtraSignatureFee     uint64
	FeePayerOutflow       uint64
	PaymentSurcharge      uint64
	TokenTransferFees     uint64
	TotalLamports         uint64
}

// Engine computes Fee Breakdowns.
type Engine struct {
	baseFees     BaseFeeSource
	accounts     TokenAccountResolver
	mints        MintTransferFeeResolver
	currentEpoch func() uint64
}

// New builds an Engine.
func New(baseFees BaseFeeSource, accounts TokenAccountResolver, mints MintTransferFeeResolver, currentEpoch func() uint64) *Engine {
	if currentEpoch == nil {
		currentEpoch = func() uint64 { return 0 }
	}
	return &Engine{baseFees: baseFees, accounts: accounts, mints: mints, currentEpoch: currentEpoch}
}

// Compute produces a Fee Breakdown for resolved, charged against
// feePayer, applying price as the final overlay. paymentDestination is
// the account every qualifying payment instruction's destination
// token account must be owned by; it is only consulted when
// paymentRequired is true.
func (e *Engine) Compute(ctx context.Context, resolved *txresolve.ResolvedTransaction, feePayer, paymentDestination solana.PublicKey, paymentRequired bool, price relayconfig.PriceModel) (Breakdown, error) {
	if price.Kind == relayconfig.PriceModelFree {
		return Breakdown{}, nil
	}

	baseFee, err := e.computeBaseFee(ctx, resolved, feePayer)
	if err != nil {
		return Breakdown{}, err
	}

	extraSigFee := e.computeExtraSignatureFee(resolved, feePayer)

	outflow, err := e.computeFeePayerOutflow(resolved, feePayer)
	if err != nil {
		return Breakdown{}, err
	}

	surcharge, err := e.computePaymentSurcharge(ctx, resolved, paymentDestination, paymentRequired)
	if err != nil {
		return Breakdown{}, err
	}

	tokenFees, err := e.computeTokenTransferFees(ctx, resolved, paymentDestination)
	if err != nil {
		return Breakdown{}, err
	}

	total, err := checkedSum(baseFee, extraSigFee, outflow, surcharge, tokenFees)
	if err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		BaseFee:           baseFee,
		ExtraSignatureFee: extraSigFee,
		FeePayerOutflow:   outflow,
		PaymentSurcharge:  surcharge,
		TokenTransferFees: tokenFees,
		TotalLamports:     total,
	}

	b.TotalLamports, err = applyPriceOverlay(total, price)
	if err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

func (e *Engine) computeBaseFee(ctx context.Context, resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) (uint64, error) {
	return EstimateBaseFee(ctx, e.baseFees, resolved)
}

// EstimateBaseFee returns the chain's raw base fee for resolved's
// message, applying the same legacy-message workaround the engine's
// own fee composition uses. The bundle processor calls this directly
// when it needs each element's raw chain fee rather than a full
// composed Fee Breakdown.
func EstimateBaseFee(ctx context.Context, baseFees BaseFeeSource, resolved *txresolve.ResolvedTransaction) (uint64, error) {
	msg := legacyMessageView(resolved)
	fee, err := baseFees.GetFeeForMessage(ctx, msg)
	if err != nil {
		return 0, errors.RPC(err, "get base fee for message")
	}
	return fee, nil
}

// legacyMessageView rebuilds a legacy-header message from the
// resolved transaction's flattened account-key list and original
// compiled instructions, working around an RPC bug in lookup-index
// resolution that getFeeForMessage exhibits against versioned
// messages carrying address lookup tables.
func legacyMessageView(resolved *txresolve.ResolvedTransaction) *solana.Message {
	msg := resolved.Tx.Message
	return &solana.Message{
		Header:          msg.Header,
		AccountKeys:     resolved.AllAccountKeys,
		RecentBlockhash: msg.RecentBlockhash,
		Instructions:    msg.Instructions,
	}
}

func (e *Engine) computeExtraSignatureFee(resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) uint64 {
	required := int(resolved.Tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < required && i < len(resolved.AllAccountKeys); i++ {
		if resolved.AllAccountKeys[i].Equals(feePayer) {
			return 0
		}
	}
	return PerSignatureFeeLamports
}

func (e *Engine) computeFeePayerOutflow(resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) (uint64, error) {
	return ComputeFeePayerOutflow(resolved, feePayer)
}

// ComputeFeePayerOutflow is the standalone form of the fee-payer
// outflow calculation, shared with the validator's outflow-bound
// check so both run the exact same accounting.
func ComputeFeePayerOutflow(resolved *txresolve.ResolvedTransaction, feePayer solana.PublicKey) (uint64, error) {
	systemInstructions, err := resolved.AllParsedSystem()
	if err != nil {
		return 0, err
	}

	var net uint64
	for _, p := range systemInstructions {
		switch p.Kind {
		case instruction.KindSystemTransfer, instruction.KindSystemTransferWithSeed:
			if p.Source.Equals(feePayer) {
				net += p.Lamports
			}
			if p.Destination.Equals(feePayer) {
				net = saturatingSub(net, p.Lamports)
			}
		case instruction.KindSystemCreateAccount, instruction.KindSystemCreateAccountWithSeed:
			if p.Source.Equals(feePayer) {
				net += p.Lamports
			}
		case instruction.KindSystemWithdrawFromNonce:
			if p.Authority.Equals(feePayer) {
				net += p.Lamports
			}
			if p.Destination.Equals(feePayer) {
				net = saturatingSub(net, p.Lamports)
			}
		}
	}
	return net, nil
}

func (e *Engine) computePaymentSurcharge(ctx context.Context, resolved *txresolve.ResolvedTransaction, paymentDestination solana.PublicKey, paymentRequired bool) (uint64, error) {
	if !paymentRequired {
		return 0, nil
	}

	transfers, err := resolved.AllParsedTokenTransfers()
	if err != nil {
		return 0, err
	}
	for _, t := range transfers {
		owner, _, err := e.accounts.Resolve(ctx, t.Destination)
		if err != nil {
			continue // missing destination accounts are skipped, not fatal
		}
		if owner.Equals(paymentDestination) {
			return 0, nil
		}
	}
	return EstimatedLamportsForPaymentInstruction, nil
}

func (e *Engine) computeTokenTransferFees(ctx context.Context, resolved *txresolve.ResolvedTransaction, paymentDestination solana.PublicKey) (uint64, error) {
	transfers, err := resolved.AllParsedTokenTransfers()
	if err != nil {
		return 0, err
	}

	var total uint64
	epoch := e.currentEpoch()
	for _, t := range transfers {
		owner, mint, err := e.accounts.Resolve(ctx, t.Destination)
		if err != nil {
			continue // missing accounts are skipped
		}
		if !owner.Equals(paymentDestination) {
			continue
		}
		cfg, err := e.mints.Resolve(ctx, mint)
		if err != nil {
			return 0, errors.RPC(err, "resolve transfer fee config for mint %s", mint)
		}
		total += tokenfee.Compute(t.Amount, cfg, epoch)
	}
	return total, nil
}

// ToDisplayAmount converts a lamport amount into the smallest unit of
// mint via an oracle, for display purposes only.
func ToDisplayAmount(ctx context.Context, oracle interface {
	ToMintUnits(ctx context.Context, mint solana.PublicKey, lamports uint64) (float64, error)
}, mint solana.PublicKey, lamports uint64) (float64, error) {
	amount, err := oracle.ToMintUnits(ctx, mint, lamports)
	if err != nil {
		return 0, errors.Oracle(err, "convert %d lamports to mint %s units", lamports, mint)
	}
	return amount, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func checkedSum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		if total > math.MaxUint64-v {
			return 0, errors.Validation("fee calculation overflow")
		}
		total += v
	}
	return total, nil
}

func applyPriceOverlay(total uint64, price relayconfig.PriceModel) (uint64, error) {
	switch price.Kind {
	case relayconfig.PriceModelFree:
		return 0, nil
	case relayconfig.PriceModelFixed:
		return price.Amount, nil
	case relayconfig.PriceModelMargin:
		overlaid := float64(total) * (1 + price.Margin)
		if overlaid > math.MaxUint64 {
			return 0, errors.Validation("fee calculation overflow")
		}
		return uint64(overlaid), nil
	default:
		return total, nil
	}
}
