package payment

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/instruction"
	"github.com/kora-labs/relayer/internal/relay/tokenfee"
)

type fakeAccounts struct {
	byAccount map[solana.PublicKey]*TokenAccountInfo
}

func (f *fakeAccounts) Resolve(_ context.Context, account solana.PublicKey) (*TokenAccountInfo, error) {
	info, ok := f.byAccount[account]
	if !ok {
		return nil, errors.RPC(nil, "account %s not found", account)
	}
	return info, nil
}

type fakeMints struct {
	byMint map[solana.PublicKey]*MintInfo
}

func (f *fakeMints) Resolve(_ context.Context, mint solana.PublicKey) (*MintInfo, error) {
	info, ok := f.byMint[mint]
	if !ok {
		return &MintInfo{}, nil
	}
	return info, nil
}

type fixedOracle struct {
	lamportsPerUnit uint64
}

func (o fixedOracle) ToLamports(_ context.Context, _ solana.PublicKey, amount uint64) (uint64, error) {
	return amount * o.lamportsPerUnit, nil
}

func newFixture(t *testing.T) (solana.PublicKey, solana.PublicKey, solana.PublicKey, solana.PublicKey, *Detector) {
	t.Helper()
	paymentDest := solana.NewWallet().PublicKey()
	destTokenAccount := solana.NewWallet().PublicKey()
	sourceTokenAccount := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	accounts := &fakeAccounts{byAccount: map[solana.PublicKey]*TokenAccountInfo{
		destTokenAccount:   {Owner: paymentDest, Mint: mint, Amount: 0},
		sourceTokenAccount: {Owner: solana.NewWallet().PublicKey(), Mint: mint, Amount: 1_000_000},
	}}
	mints := &fakeMints{byMint: map[solana.PublicKey]*MintInfo{}}

	d := New(Config{
		Accounts:     accounts,
		Mints:        mints,
		Oracle:       fixedOracle{lamportsPerUnit: 1},
		CurrentEpoch: func() uint64 { return 10 },
	})
	return paymentDest, destTokenAccount, sourceTokenAccount, mint, d
}

func transfer(source, dest solana.PublicKey, amount uint64) *instruction.Parsed {
	return &instruction.Parsed{
		Program:     "token",
		Kind:        instruction.KindTokenTransfer,
		Source:      source,
		Destination: dest,
		Amount:      amount,
	}
}

func TestDetect_SingleTransferSatisfiesRequirement(t *testing.T) {
	paymentDest, destAccount, sourceAccount, _, d := newFixture(t)

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 500_000)}

	if err := d.Detect(context.Background(), transfers, nil, paymentDest, 500_000); err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
}

func TestDetect_InsufficientPaymentFails(t *testing.T) {
	paymentDest, destAccount, sourceAccount, _, d := newFixture(t)

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 100_000)}

	err := d.Detect(context.Background(), transfers, nil, paymentDest, 500_000)
	if !errors.Is(err, errors.CodeInsufficientBundlePayment) {
		t.Fatalf("Detect() error = %v, want insufficient bundle payment", err)
	}
}

func TestDetect_SkipsTransferToWrongOwner(t *testing.T) {
	paymentDest, _, sourceAccount, _, d := newFixture(t)
	otherAccount := solana.NewWallet().PublicKey()

	transfers := []*instruction.Parsed{transfer(sourceAccount, otherAccount, 500_000)}

	err := d.Detect(context.Background(), transfers, nil, paymentDest, 500_000)
	if !errors.Is(err, errors.CodeInsufficientBundlePayment) {
		t.Fatalf("Detect() error = %v, want insufficient bundle payment (no matching transfer)", err)
	}
}

func TestDetect_CombinesCrossTransactionExtras(t *testing.T) {
	paymentDest, destAccount, sourceAccount, _, d := newFixture(t)

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 300_000)}
	extras := []*instruction.Parsed{transfer(sourceAccount, destAccount, 300_000)}

	if err := d.Detect(context.Background(), transfers, extras, paymentDest, 500_000); err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
}

func TestDetect_DeductsTransferFeeBeforeComparingBalance(t *testing.T) {
	paymentDest := solana.NewWallet().PublicKey()
	destAccount := solana.NewWallet().PublicKey()
	sourceAccount := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	accounts := &fakeAccounts{byAccount: map[solana.PublicKey]*TokenAccountInfo{
		destAccount:   {Owner: paymentDest, Mint: mint},
		sourceAccount: {Owner: solana.NewWallet().PublicKey(), Mint: mint, Amount: 1_000_000},
	}}
	mints := &fakeMints{byMint: map[solana.PublicKey]*MintInfo{
		mint: {TransferFee: &tokenfee.Config{NewerEpoch: 0, NewerBasisPoints: 100, NewerMaximumFee: 10_000}},
	}}
	d := New(Config{
		Accounts:     accounts,
		Mints:        mints,
		Oracle:       fixedOracle{lamportsPerUnit: 1},
		CurrentEpoch: func() uint64 { return 5 },
	})

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 1_000_000)}

	// face amount 1_000_000, fee = 1% = 10_000 (capped at max 10_000),
	// actual_amount = 990_000 - still enough to satisfy 900_000 required.
	if err := d.Detect(context.Background(), transfers, nil, paymentDest, 900_000); err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
}

func TestDetect_RejectsMintNotInAllowList(t *testing.T) {
	paymentDest := solana.NewWallet().PublicKey()
	destAccount := solana.NewWallet().PublicKey()
	sourceAccount := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	otherAllowedMint := solana.NewWallet().PublicKey()

	accounts := &fakeAccounts{byAccount: map[solana.PublicKey]*TokenAccountInfo{
		destAccount:   {Owner: paymentDest, Mint: mint},
		sourceAccount: {Owner: solana.NewWallet().PublicKey(), Mint: mint, Amount: 1_000_000},
	}}
	mints := &fakeMints{byMint: map[solana.PublicKey]*MintInfo{}}
	d := New(Config{
		Accounts:     accounts,
		Mints:        mints,
		Oracle:       fixedOracle{lamportsPerUnit: 1},
		AllowedMints: []solana.PublicKey{otherAllowedMint},
	})

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 1_000_000)}

	err := d.Detect(context.Background(), transfers, nil, paymentDest, 500_000)
	if !errors.Is(err, errors.CodeInsufficientBundlePayment) {
		t.Fatalf("Detect() error = %v, want insufficient bundle payment (mint not allowed)", err)
	}
}

func TestDetect_RejectsBlockedDestinationExtension(t *testing.T) {
	paymentDest := solana.NewWallet().PublicKey()
	destAccount := solana.NewWallet().PublicKey()
	sourceAccount := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	accounts := &fakeAccounts{byAccount: map[solana.PublicKey]*TokenAccountInfo{
		destAccount:   {Owner: paymentDest, Mint: mint, BlockedExtensions: []string{"non_transferable"}},
		sourceAccount: {Owner: solana.NewWallet().PublicKey(), Mint: mint, Amount: 1_000_000},
	}}
	mints := &fakeMints{byMint: map[solana.PublicKey]*MintInfo{}}
	d := New(Config{
		Accounts:                 accounts,
		Mints:                    mints,
		Oracle:                   fixedOracle{lamportsPerUnit: 1},
		BlockedAccountExtensions: []string{"non_transferable"},
	})

	transfers := []*instruction.Parsed{transfer(sourceAccount, destAccount, 1_000_000)}

	err := d.Detect(context.Background(), transfers, nil, paymentDest, 500_000)
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("Detect() error = %v, want validation error for blocked extension", err)
	}
}
