// Package instruction decodes compiled wire instructions and parsed
// (JSON-shaped) instructions from the chain RPC into a single typed
// record, and reconstructs a compiled instruction from the parsed
// form so inner and outer instructions can be treated uniformly
// downstream.
package instruction

import (
	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
)

// Kind identifies a recognised system or token instruction tag.
type Kind string

const (
	KindSystemTransfer             Kind = "transfer"
	KindSystemTransferWithSeed     Kind = "transferWithSeed"
	KindSystemCreateAccount        Kind = "createAccount"
	KindSystemCreateAccountWithSeed Kind = "createAccountWithSeed"
	KindSystemAssign               Kind = "assign"
	KindSystemAssignWithSeed       Kind = "assignWithSeed"
	KindSystemWithdrawFromNonce    Kind = "withdrawFromNonce"

	KindTokenTransfer        Kind = "transfer"
	KindTokenTransferChecked Kind = "transferChecked"
	KindTokenBurn            Kind = "burn"
	KindTokenBurnChecked     Kind = "burnChecked"
	KindTokenCloseAccount    Kind = "closeAccount"
	KindTokenApprove         Kind = "approve"
	KindTokenApproveChecked  Kind = "approveChecked"
)

// minAccounts gives the minimum account count the program expects for
// each recognised instruction kind, keyed by (program, kind) since the
// system and token programs reuse tag names ("transfer", "assign", ...).
var minAccounts = map[string]int{
	"system:transfer":                 2,
	"system:transferWithSeed":         3,
	"system:createAccount":            2,
	"system:createAccountWithSeed":    3,
	"system:assign":                   1,
	"system:assignWithSeed":           2,
	"system:withdrawFromNonce":        5,
	"token:transfer":                  3,
	"token:transferChecked":           4,
	"token:burn":                      3,
	"token:burnChecked":               3,
	"token:closeAccount":              3,
	"token:approve":                   3,
	"token:approveChecked":            4,
}

// Parsed is the typed record a decoded instruction normalizes to,
// regardless of whether it arrived as a compiled instruction or as
// "parsed" JSON from the chain RPC's inner-instruction capture.
type Parsed struct {
	Program string // "system" or "token"
	Kind    Kind

	Source      solana.PublicKey
	Destination solana.PublicKey
	Owner       solana.PublicKey
	Authority   solana.PublicKey
	Mint        solana.PublicKey
	NewAccount  solana.PublicKey
	Base        solana.PublicKey
	Recipient   solana.PublicKey
	Delegate    solana.PublicKey

	Lamports uint64
	Amount   uint64
	Decimals uint8
	Space    uint64
	Seed     string
}

// accountCountGuard fails with a validation error naming the
// instruction tag rather than letting a short account list panic on
// index-out-of-range further down the call chain.
func accountCountGuard(program string, kind Kind, accounts []solana.PublicKey) error {
	want, ok := minAccounts[program+":"+string(kind)]
	if !ok {
		return errors.Validation("unrecognised instruction tag %q for program %q", kind, program)
	}
	if len(accounts) < want {
		return errors.Validation("instruction %q requires at least %d accounts, got %d", kind, want, len(accounts))
	}
	return nil
}
