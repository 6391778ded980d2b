package accountcache

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/relay/fee"
	"github.com/kora-labs/relayer/internal/relay/payment"
	"github.com/kora-labs/relayer/internal/relay/tokenfee"
	"github.com/kora-labs/relayer/internal/relay/validate"
)

// ForValidate returns the two adapters validate.New needs, both
// backed by cache.
func ForValidate(cache *Cache) (validate.TokenAccountInspector, validate.MintInspector) {
	return validateAccounts{cache}, validateMints{cache}
}

// ForFee returns the two adapters fee.New needs, both backed by cache.
func ForFee(cache *Cache) (fee.TokenAccountResolver, fee.MintTransferFeeResolver) {
	return feeAccounts{cache}, feeMints{cache}
}

// ForPayment returns the two adapters payment.Config needs, both
// backed by cache.
func ForPayment(cache *Cache) (payment.TokenAccountResolver, payment.MintResolver) {
	return paymentAccounts{cache}, paymentMints{cache}
}

type validateAccounts struct{ cache *Cache }

func (a validateAccounts) Inspect(ctx context.Context, account solana.PublicKey) (*validate.TokenAccountView, error) {
	dec, err := a.cache.fetchAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return &validate.TokenAccountView{
		Owner:          dec.owner,
		Mint:           dec.mint,
		Program:        dec.program,
		CPIGuardLocked: dec.cpiGuardLocked,
	}, nil
}

type validateMints struct{ cache *Cache }

func (a validateMints) Inspect(ctx context.Context, mint solana.PublicKey) (*validate.MintView, error) {
	dec, err := a.cache.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	return &validate.MintView{Program: dec.program, NonTransferable: dec.nonTransferable}, nil
}

type feeAccounts struct{ cache *Cache }

func (a feeAccounts) Resolve(ctx context.Context, account solana.PublicKey) (owner, mint solana.PublicKey, err error) {
	dec, err := a.cache.fetchAccount(ctx, account)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return dec.owner, dec.mint, nil
}

type feeMints struct{ cache *Cache }

func (a feeMints) Resolve(ctx context.Context, mint solana.PublicKey) (*tokenfee.Config, error) {
	dec, err := a.cache.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	return dec.transferFee, nil
}

type paymentAccounts struct{ cache *Cache }

func (a paymentAccounts) Resolve(ctx context.Context, account solana.PublicKey) (*payment.TokenAccountInfo, error) {
	dec, err := a.cache.fetchAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return &payment.TokenAccountInfo{
		Owner:             dec.owner,
		Mint:              dec.mint,
		Amount:            dec.amount,
		BlockedExtensions: dec.extensions,
	}, nil
}

type paymentMints struct{ cache *Cache }

func (a paymentMints) Resolve(ctx context.Context, mint solana.PublicKey) (*payment.MintInfo, error) {
	dec, err := a.cache.fetchMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	return &payment.MintInfo{TransferFee: dec.transferFee}, nil
}
