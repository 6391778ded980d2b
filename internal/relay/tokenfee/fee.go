// Package tokenfee computes the Token-2022 transfer-fee-config
// deduction shared by the fee engine and the payment detector: both
// need to know how much of a token transfer's face amount the
// token program itself withholds before it ever reaches the
// destination account.
package tokenfee

import "math/bits"

// Config mirrors a Token-2022 mint's TransferFeeConfig extension. A
// mint with no such extension has no Config at all, not a zero-value
// one; callers distinguish "no fee" from "a zero-rate fee" by whether
// they have a Config to pass.
type Config struct {
	OlderEpoch          uint64
	OlderBasisPoints    uint16
	OlderMaximumFee     uint64
	NewerEpoch          uint64
	NewerBasisPoints    uint16
	NewerMaximumFee     uint64
}

// Compute returns the fee the token program withholds from amount,
// selecting the config's older or newer basis-points/max-fee pair
// based on whether currentEpoch has rolled past NewerEpoch.
func Compute(amount uint64, cfg *Config, currentEpoch uint64) uint64 {
	if cfg == nil {
		return 0
	}

	basisPoints := cfg.OlderBasisPoints
	maxFee := cfg.OlderMaximumFee
	if currentEpoch >= cfg.NewerEpoch {
		basisPoints = cfg.NewerBasisPoints
		maxFee = cfg.NewerMaximumFee
	}

	// amount*basisPoints can overflow a uint64 for large transfers, so
	// the multiplication is widened to 128 bits before dividing.
	hi, lo := bits.Mul64(amount, uint64(basisPoints))
	var fee uint64
	if hi >= 10_000 {
		fee = maxFee
	} else if quo, _ := bits.Div64(hi, lo, 10_000); quo > maxFee {
		fee = maxFee
	} else {
		fee = quo
	}
	return fee
}
