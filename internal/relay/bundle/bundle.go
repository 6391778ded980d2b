// Package bundle implements the bundle processor: a three-phase
// pipeline over an ordered list of wire transactions that must be
// validated and fee-accounted together, paid for as a single unit
// (only one payment instruction is required across the whole bundle),
// and finally signed with one fee-payer signature per transaction
// sharing a single freshly-fetched blockhash.
package bundle

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/fee"
	"github.com/kora-labs/relayer/internal/relay/instruction"
	"github.com/kora-labs/relayer/internal/relay/payment"
	"github.com/kora-labs/relayer/internal/relay/signerpool"
	"github.com/kora-labs/relayer/internal/relay/txresolve"
	"github.com/kora-labs/relayer/internal/relay/usage"
	"github.com/kora-labs/relayer/internal/relay/validate"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// Mode selects whether usage tracking participates in processing a bundle.
type Mode int

const (
	// ModeCheckUsage enforces each transaction's usage cap as it is processed.
	ModeCheckUsage Mode = iota
	// ModeSkipUsage bypasses usage tracking entirely, for fee estimation and simulation paths.
	ModeSkipUsage
)

// BlockhashSource fetches a recent blockhash, applied once across
// every bundle element that still needs one.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Result is a fully processed bundle: every transaction resolved and
// fee-accounted, plus the bundle-wide totals the payment-sufficiency
// check and the signing phase are run against.
type Result struct {
	Elements                []*txresolve.ResolvedTransaction
	TotalRequiredLamports   uint64
	TotalPaymentLamports    uint64
	TotalSolanaEstimatedFee uint64
}

// Processor runs the bundle pipeline: Process (phases 1 and 2) builds
// and fee-accounts every element and checks bundle-wide payment
// sufficiency; Sign (phase 3) applies a shared blockhash and writes
// each element's fee-payer signature.
type Processor struct {
	resolver  *txresolve.Resolver
	validator *validate.Validator
	feeEngine *fee.Engine
	detector  *payment.Detector
	tracker   *usage.Tracker
	baseFees  fee.BaseFeeSource
	blockhash BlockhashSource
}

// New builds a Processor from its component dependencies.
func New(resolver *txresolve.Resolver, validator *validate.Validator, feeEngine *fee.Engine, detector *payment.Detector, tracker *usage.Tracker, baseFees fee.BaseFeeSource, blockhash BlockhashSource) *Processor {
	return &Processor{
		resolver:  resolver,
		validator: validator,
		feeEngine: feeEngine,
		detector:  detector,
		tracker:   tracker,
		baseFees:  baseFees,
		blockhash: blockhash,
	}
}

// Process runs phases 1 and 2 against encodedTxs (base64 wire
// transactions), charged to feePayer. It fails the whole bundle on
// the first per-transaction error encountered in phase 1.
func (p *Processor) Process(ctx context.Context, encodedTxs []string, feePayer, paymentDestination solana.PublicKey, paymentRequired bool, price relayconfig.PriceModel, mode Mode, userID string) (*Result, error) {
	elements, totalRequired, allTransfers, err := p.phaseOne(ctx, encodedTxs, feePayer, paymentDestination, paymentRequired, price, mode, userID)
	if err != nil {
		return nil, err
	}

	totalPayment, totalSolanaFee, err := p.phaseTwo(ctx, elements, allTransfers, paymentDestination)
	if err != nil {
		return nil, err
	}

	if totalPayment < totalRequired {
		return nil, errors.InsufficientBundlePayment(totalRequired, totalPayment)
	}

	return &Result{
		Elements:                elements,
		TotalRequiredLamports:   totalRequired,
		TotalPaymentLamports:    totalPayment,
		TotalSolanaEstimatedFee: totalSolanaFee,
	}, nil
}

// ProcessAndSign runs Process followed by Sign and re-encodes every
// resulting transaction back to base64, the shape a caller hands to
// the chain's send-transaction RPC.
func (p *Processor) ProcessAndSign(ctx context.Context, encodedTxs []string, feePayer, paymentDestination solana.PublicKey, paymentRequired bool, price relayconfig.PriceModel, mode Mode, userID string, signer signerpool.Signer) ([]string, error) {
	result, err := p.Process(ctx, encodedTxs, feePayer, paymentDestination, paymentRequired, price, mode, userID)
	if err != nil {
		return nil, err
	}

	signed, err := p.Sign(ctx, result, feePayer, signer)
	if err != nil {
		return nil, err
	}

	return EncodeAll(signed)
}

// phaseOne decodes, resolves, checks usage, validates and fee-accounts
// every transaction in order, deduplicating the bundle-wide
// payment-instruction surcharge down to at most one instruction's
// worth, and returns the bundle-wide flattened token-transfer view
// phase two needs for cross-transaction payment visibility.
func (p *Processor) phaseOne(ctx context.Context, encodedTxs []string, feePayer, paymentDestination solana.PublicKey, paymentRequired bool, price relayconfig.PriceModel, mode Mode, userID string) ([]*txresolve.ResolvedTransaction, uint64, []*instruction.Parsed, error) {
	elements := make([]*txresolve.ResolvedTransaction, 0, len(encodedTxs))
	var allTransfers []*instruction.Parsed
	var totalRequired uint64
	var missingPaymentCount uint64

	for _, encoded := range encodedTxs {
		tx, err := DecodeTransaction(encoded)
		if err != nil {
			return nil, 0, nil, err
		}

		resolved, err := p.resolver.Construct(ctx, tx)
		if err != nil {
			return nil, 0, nil, err
		}

		if mode == ModeCheckUsage {
			if err := p.tracker.Check(ctx, usage.ModeCheckUsage, userID, feePayer.String()); err != nil {
				return nil, 0, nil, err
			}
		}

		if err := p.validator.Validate(ctx, resolved, feePayer); err != nil {
			return nil, 0, nil, err
		}

		breakdown, err := p.feeEngine.Compute(ctx, resolved, feePayer, paymentDestination, paymentRequired, price)
		if err != nil {
			return nil, 0, nil, err
		}

		totalRequired, err = checkedAdd(totalRequired, breakdown.TotalLamports)
		if err != nil {
			return nil, 0, nil, errors.Validation("bundle fee calculation overflow")
		}
		if breakdown.PaymentSurcharge > 0 {
			missingPaymentCount++
		}

		transfers, err := resolved.AllParsedTokenTransfers()
		if err != nil {
			return nil, 0, nil, err
		}

		elements = append(elements, resolved)
		allTransfers = append(allTransfers, transfers...)
	}

	if missingPaymentCount > 1 {
		overcount := (missingPaymentCount - 1) * fee.EstimatedLamportsForPaymentInstruction
		if overcount > totalRequired {
			return nil, 0, nil, errors.Validation("bundle fee calculation overflow")
		}
		totalRequired -= overcount
	}

	return elements, totalRequired, allTransfers, nil
}

// phaseTwo re-runs the payment detector once against every token
// transfer visible anywhere in the bundle, so a payment instruction in
// a later transaction can satisfy an earlier transaction's
// requirement, and separately accumulates each element's raw chain
// fee, enforcing the lamport-fee ceiling after every addition.
func (p *Processor) phaseTwo(ctx context.Context, elements []*txresolve.ResolvedTransaction, allTransfers []*instruction.Parsed, paymentDestination solana.PublicKey) (uint64, uint64, error) {
	totalPayment, err := p.detector.Sum(ctx, allTransfers, nil, paymentDestination)
	if err != nil {
		return 0, 0, err
	}

	var totalSolanaFee uint64
	for _, resolved := range elements {
		rawFee, err := fee.EstimateBaseFee(ctx, p.baseFees, resolved)
		if err != nil {
			return 0, 0, err
		}
		totalSolanaFee, err = checkedAdd(totalSolanaFee, rawFee)
		if err != nil {
			return 0, 0, errors.Validation("bundle solana fee calculation overflow")
		}
		if err := p.validator.ValidateLamportFee(totalSolanaFee); err != nil {
			return 0, 0, err
		}
	}

	return totalPayment, totalSolanaFee, nil
}

// Sign runs phase 3: it re-checks payment sufficiency, then walks
// result's elements in order, fetching one confirmed-commitment
// blockhash the first time it encounters an unsigned transaction and
// reusing it for every unsigned element after that, writing the
// signer's fee-payer signature into each one's correct slot.
func (p *Processor) Sign(ctx context.Context, result *Result, feePayer solana.PublicKey, signer signerpool.Signer) ([]*txresolve.ResolvedTransaction, error) {
	if result.TotalPaymentLamports < result.TotalRequiredLamports {
		return nil, errors.InsufficientBundlePayment(result.TotalRequiredLamports, result.TotalPaymentLamports)
	}

	var blockhash *solana.Hash
	var noHash solana.Hash
	for _, resolved := range result.Elements {
		if resolved.Tx.Message.RecentBlockhash == noHash && blockhash == nil {
			latest, err := p.blockhash.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
			if err != nil {
				return nil, errors.RPC(err, "get latest blockhash")
			}
			hash := latest.Value.Blockhash
			blockhash = &hash
		}

		if err := signElement(ctx, resolved, signer, feePayer, blockhash); err != nil {
			return nil, err
		}
	}

	return result.Elements, nil
}

// signElement fills in resolved's blockhash if it doesn't carry one
// yet, then has signer produce the fee-payer's signature and writes
// it into the slot FindFeePayerSlot identifies.
func signElement(ctx context.Context, resolved *txresolve.ResolvedTransaction, signer signerpool.Signer, feePayer solana.PublicKey, blockhash *solana.Hash) error {
	var noHash solana.Hash
	if resolved.Tx.Message.RecentBlockhash == noHash {
		if blockhash == nil {
			return errors.Validation("bundle signer: transaction carries no blockhash and none is available")
		}
		resolved.Tx.Message.RecentBlockhash = *blockhash
	}

	slot, err := resolved.FindFeePayerSlot(feePayer)
	if err != nil {
		return err
	}
	if slot >= len(resolved.Tx.Signatures) {
		return errors.Validation("fee payer %s occupies account slot %d, which is not a signature slot", feePayer, slot)
	}

	messageBytes, err := resolved.Tx.Message.MarshalBinary()
	if err != nil {
		return errors.Validation("marshal transaction message: %v", err)
	}

	sig, err := signer.Sign(ctx, messageBytes)
	if err != nil {
		return err
	}
	resolved.Tx.Signatures[slot] = sig
	return nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, errors.Validation("bundle fee calculation overflow")
	}
	return sum, nil
}
