package tokenfee

import "testing"

func TestCompute_NoConfig(t *testing.T) {
	if got := Compute(1_000_000, nil, 5); got != 0 {
		t.Errorf("Compute() = %d, want 0 for a nil config", got)
	}
}

func TestCompute_SelectsOlderOrNewerSchedule(t *testing.T) {
	cfg := &Config{
		OlderEpoch: 0, OlderBasisPoints: 100, OlderMaximumFee: 1_000_000,
		NewerEpoch: 10, NewerBasisPoints: 500, NewerMaximumFee: 1_000_000,
	}

	if got := Compute(10_000, cfg, 5); got != 100 {
		t.Errorf("Compute() at epoch 5 = %d, want 100 (older 1%%)", got)
	}
	if got := Compute(10_000, cfg, 10); got != 500 {
		t.Errorf("Compute() at epoch 10 = %d, want 500 (newer 5%%)", got)
	}
}

func TestCompute_ClampsToMaximumFee(t *testing.T) {
	cfg := &Config{NewerEpoch: 0, NewerBasisPoints: 10_000, NewerMaximumFee: 50}
	if got := Compute(1_000_000, cfg, 0); got != 50 {
		t.Errorf("Compute() = %d, want clamped to max fee 50", got)
	}
}

func TestCompute_LargeAmountDoesNotOverflow(t *testing.T) {
	// amount*basisPoints overflows a plain uint64 multiplication
	// (18_000_000_000_000_000_000 * 10_000 wraps); the widened product
	// must still land on the correct, clamped fee.
	cfg := &Config{NewerEpoch: 0, NewerBasisPoints: 10_000, NewerMaximumFee: 1_000_000_000}
	const amount uint64 = 18_000_000_000_000_000_000

	got := Compute(amount, cfg, 0)
	if got != cfg.NewerMaximumFee {
		t.Errorf("Compute() = %d, want clamped to max fee %d, not a wrapped value", got, cfg.NewerMaximumFee)
	}
}

func TestCompute_LargeAmountNoMaxFeeCap(t *testing.T) {
	// basisPoints=1 keeps the true fee well under amount; a wrapped
	// uint64 multiplication would produce a small, wrong result here
	// even though no clamp applies.
	cfg := &Config{NewerEpoch: 0, NewerBasisPoints: 1, NewerMaximumFee: ^uint64(0)}
	const amount uint64 = 18_446_744_073_709_551_615 // math.MaxUint64

	got := Compute(amount, cfg, 0)
	want := uint64(1_844_674_407_370_955) // floor(amount * 1 / 10000)
	if got != want {
		t.Errorf("Compute() = %d, want %d", got, want)
	}
}
