package validate

import (
	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// Diagnostics holds the result of a startup configuration audit:
// Errors are fatal (the operator config is unusable as written),
// Warnings flag configurations that parse fine but would silently
// block functionality or accept unacceptable risk.
type Diagnostics struct {
	Errors   []*errors.RelayError
	Warnings []string
}

// DiagnoseConfig walks the operator configuration and signer pool
// once at startup and reports warnings and hard errors separately.
// Unlike Validate, this never runs on the request path.
func DiagnoseConfig(cfg relayconfig.Config, signers relayconfig.SignerPoolConfig) Diagnostics {
	var d Diagnostics

	if cfg.Kora.RateLimit == 0 {
		d.Warnings = append(d.Warnings, "rate limit is set to 0 - this will block all requests")
	}
	if cfg.Kora.PaymentAddress != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.Kora.PaymentAddress); err != nil {
			d.Errors = append(d.Errors, errors.InvalidConfig("invalid payment address %q: %v", cfg.Kora.PaymentAddress, err))
		}
	}

	if !anyEnabled(cfg.Kora.EnabledMethods) {
		d.Warnings = append(d.Warnings, "every RPC method is disabled - this will block all functionality")
	}

	if cfg.Validation.MaxAllowedLamports == 0 {
		d.Warnings = append(d.Warnings, "max allowed lamports is 0 - this will block all SOL transfers")
	}
	if cfg.Validation.MaxSignatures == 0 {
		d.Warnings = append(d.Warnings, "max signatures is 0 - this will block all transactions")
	}
	if cfg.Validation.PriceSource == relayconfig.PriceSourceMock {
		d.Warnings = append(d.Warnings, "using the mock price source - not suitable for production")
	}

	if len(cfg.Validation.AllowedPrograms) == 0 {
		d.Warnings = append(d.Warnings, "no allowed programs configured - this will block all transactions")
	} else {
		allowed := toPubkeySet(cfg.Validation.AllowedPrograms)
		if !allowed[solana.SystemProgramID] {
			d.Warnings = append(d.Warnings, "system program missing from allowed programs - SOL transfers and account operations will be blocked")
		}
		if !allowed[solana.TokenProgramID] && !allowed[solana.Token2022ProgramID] {
			d.Warnings = append(d.Warnings, "no token program in allowed programs - SPL token operations will be blocked")
		}
	}

	if len(cfg.Validation.AllowedTokens) == 0 {
		d.Errors = append(d.Errors, errors.InvalidConfig("no allowed tokens configured"))
	}

	if cfg.Validation.AllowedSPLPaidTokens.All {
		d.Warnings = append(d.Warnings, "allowed_spl_paid_tokens is set to accept any SPL token - consider an explicit allowlist to avoid volatile or worthless payment tokens")
	}

	for _, flag := range []struct {
		allowed bool
		program solana.PublicKey
		name    string
	}{
		{cfg.Validation.FeePayerPolicy.AllowSPLTransfers, solana.TokenProgramID, "allow_spl_transfers"},
		{cfg.Validation.FeePayerPolicy.AllowToken2022Transfers, solana.Token2022ProgramID, "allow_token2022_transfers"},
	} {
		if !flag.allowed {
			continue
		}
		if len(cfg.Validation.AllowedPrograms) > 0 && !toPubkeySet(cfg.Validation.AllowedPrograms)[flag.program] {
			d.Warnings = append(d.Warnings, "fee-payer policy "+flag.name+" is enabled but its program is not in allowed_programs")
		}
	}

	if len(signers.Signers) == 0 {
		d.Errors = append(d.Errors, errors.InvalidConfig("signer pool has no configured signers"))
	}
	seenNames := make(map[string]bool, len(signers.Signers))
	for _, s := range signers.Signers {
		if s.Name == "" {
			d.Errors = append(d.Errors, errors.InvalidConfig("signer pool contains a signer with an empty name"))
			continue
		}
		if seenNames[s.Name] {
			d.Errors = append(d.Errors, errors.InvalidConfig("signer pool contains duplicate signer name %q", s.Name))
		}
		seenNames[s.Name] = true
	}

	return d
}

func anyEnabled(methods map[string]bool) bool {
	for _, enabled := range methods {
		if enabled {
			return true
		}
	}
	return false
}
