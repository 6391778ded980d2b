// Package payment implements the payment detector: given a resolved
// transaction's parsed token transfers, it decides whether enough of
// them land on the configured payment destination to cover a required
// lamport amount, converting token amounts to lamports via an oracle
// as it goes.
package payment

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/instruction"
	"github.com/kora-labs/relayer/internal/relay/tokenfee"
)

// TokenAccountInfo is the subset of a token account's state the
// detector needs: who owns it, what it holds, how much is in it, and
// which Token-2022 extensions (if any) would block a transfer into or
// out of it.
type TokenAccountInfo struct {
	Owner             solana.PublicKey
	Mint              solana.PublicKey
	Amount            uint64
	BlockedExtensions []string
}

// MintInfo is the subset of a mint's state the detector needs.
type MintInfo struct {
	TransferFee *tokenfee.Config
}

// TokenAccountResolver loads token account state, typically backed by
// a cached RPC account-info lookup.
type TokenAccountResolver interface {
	Resolve(ctx context.Context, account solana.PublicKey) (*TokenAccountInfo, error)
}

// MintResolver loads mint state, typically backed by a cached RPC
// account-info lookup.
type MintResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (*MintInfo, error)
}

// Oracle converts a token amount into an equivalent lamport amount.
type Oracle interface {
	ToLamports(ctx context.Context, mint solana.PublicKey, amount uint64) (uint64, error)
}

// Detector decides whether a set of parsed token transfers
// collectively satisfy a required lamport payment.
type Detector struct {
	accounts      TokenAccountResolver
	mints         MintResolver
	oracle        Oracle
	allowedMints  map[solana.PublicKey]bool // nil means "all mints allowed"
	blockedExtensions map[string]bool
	currentEpoch  func() uint64
}

// Config configures a Detector.
type Config struct {
	Accounts TokenAccountResolver
	Mints    MintResolver
	Oracle   Oracle

	// AllowedMints restricts which mints may be used for payment; a
	// nil or empty slice means every mint is allowed.
	AllowedMints []solana.PublicKey

	// BlockedAccountExtensions names the Token-2022 account
	// extensions (e.g. "non_transferable", "cpi_guard") that, if
	// present on a destination account, disqualify a transfer into it.
	BlockedAccountExtensions []string

	// CurrentEpoch returns the chain's current epoch, used to select
	// between a mint's older and newer transfer-fee schedule.
	CurrentEpoch func() uint64
}

// New builds a Detector from cfg.
func New(cfg Config) *Detector {
	allowed := make(map[solana.PublicKey]bool, len(cfg.AllowedMints))
	for _, m := range cfg.AllowedMints {
		allowed[m] = true
	}
	if len(allowed) == 0 {
		allowed = nil
	}

	blocked := make(map[string]bool, len(cfg.BlockedAccountExtensions))
	for _, e := range cfg.BlockedAccountExtensions {
		blocked[e] = true
	}

	epochFn := cfg.CurrentEpoch
	if epochFn == nil {
		epochFn = func() uint64 { return 0 }
	}

	return &Detector{
		accounts:          cfg.Accounts,
		mints:             cfg.Mints,
		oracle:            cfg.Oracle,
		allowedMints:      allowed,
		blockedExtensions: blocked,
		currentEpoch:      epochFn,
	}
}

// Detect iterates transfers (outer token transfers) combined with
// extras (cross-transaction transfers visible only in a bundle
// context, or nil outside one) and returns nil as soon as their
// cumulative lamport-equivalent value reaches requiredLamports against
// paymentDestination, the account expected to own every qualifying
// destination token account.
func (d *Detector) Detect(ctx context.Context, transfers, extras []*instruction.Parsed, paymentDestination solana.PublicKey, requiredLamports uint64) error {
	total, err := d.sum(ctx, transfers, extras, paymentDestination, requiredLamports)
	if err != nil {
		return err
	}
	if total < requiredLamports {
		return errors.InsufficientBundlePayment(requiredLamports, total)
	}
	return nil
}

// Sum returns the full cumulative lamport-equivalent value of every
// qualifying transfer in transfers and extras, scanning all of them
// rather than stopping once some threshold is reached. The bundle
// processor uses this to total a whole bundle's payment instructions
// before comparing the result against a bundle-wide requirement.
func (d *Detector) Sum(ctx context.Context, transfers, extras []*instruction.Parsed, paymentDestination solana.PublicKey) (uint64, error) {
	return d.sum(ctx, transfers, extras, paymentDestination, math.MaxUint64)
}

// sum scans transfers+extras, stopping early once the running total
// reaches earlyExitAt (requiredLamports for Detect, math.MaxUint64 —
// effectively never — for Sum).
func (d *Detector) sum(ctx context.Context, transfers, extras []*instruction.Parsed, paymentDestination solana.PublicKey, earlyExitAt uint64) (uint64, error) {
	var total uint64

	all := make([]*instruction.Parsed, 0, len(transfers)+len(extras))
	all = append(all, transfers...)
	all = append(all, extras...)

	for _, t := range all {
		if t == nil || (t.Kind != instruction.KindTokenTransfer && t.Kind != instruction.KindTokenTransferChecked) {
			continue
		}

		dest, err := d.accounts.Resolve(ctx, t.Destination)
		if err != nil {
			return 0, errors.RPC(err, "resolve destination token account %s", t.Destination)
		}
		if !dest.Owner.Equals(paymentDestination) {
			continue
		}

		for _, ext := range dest.BlockedExtensions {
			if d.blockedExtensions[ext] {
				return 0, errors.Validation("payment destination account %s has blocked extension %q", t.Destination, ext)
			}
		}

		mint, err := d.mints.Resolve(ctx, dest.Mint)
		if err != nil {
			return 0, errors.RPC(err, "resolve mint %s", dest.Mint)
		}

		fee := tokenfee.Compute(t.Amount, mint.TransferFee, d.currentEpoch())
		if fee > t.Amount {
			continue
		}
		actualAmount := t.Amount - fee

		source, err := d.accounts.Resolve(ctx, t.Source)
		if err != nil {
			return 0, errors.RPC(err, "resolve source token account %s", t.Source)
		}
		if source.Amount < actualAmount {
			continue
		}

		if d.allowedMints != nil && !d.allowedMints[dest.Mint] {
			continue
		}

		lamports, err := d.oracle.ToLamports(ctx, dest.Mint, actualAmount)
		if err != nil {
			return 0, errors.Oracle(err, "convert %d of mint %s to lamports", actualAmount, dest.Mint)
		}

		total += lamports
		if total >= earlyExitAt {
			return total, nil
		}
	}

	return total, nil
}
