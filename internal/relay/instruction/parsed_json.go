package instruction

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
)

// rawParsed mirrors the shape the chain RPC emits for a "parsed"
// instruction: a program name, an instruction type tag, and a
// free-form info object whose required keys are listed in requiredFields.
type rawParsed struct {
	Program string          `json:"program"`
	Parsed  rawParsedInner  `json:"parsed"`
}

type rawParsedInner struct {
	Type string         `json:"type"`
	Info map[string]any `json:"info"`
}

// FromJSON decodes the chain RPC's "parsed" instruction representation
// (as returned for inner instructions captured via simulation) into
// the same Parsed record DecodeWire produces for a compiled
// instruction, so downstream code treats inner and outer uniformly.
func FromJSON(raw []byte) (*Parsed, error) {
	var r rawParsed
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.Validation("decode parsed instruction json: %v", err)
	}

	kind := Kind(r.Parsed.Type)
	info := r.Parsed.Info

	var program string
	switch r.Program {
	case "system":
		program = "system"
	case "spl-token", "spl-token-2022":
		program = "token"
	default:
		return nil, nil
	}

	if err := accountCountGuardInfo(program, kind, info); err != nil {
		return nil, err
	}

	p := &Parsed{Program: program, Kind: kind}
	p.Source = pubkeyField(info, "source")
	p.Destination = pubkeyField(info, "destination")
	p.Owner = pubkeyField(info, "owner")
	p.Authority = pubkeyField(info, "authority")
	p.Mint = pubkeyField(info, "mint")
	p.NewAccount = pubkeyField(info, "newAccount")
	p.Base = pubkeyField(info, "base")
	p.Recipient = pubkeyField(info, "recipient")
	p.Delegate = pubkeyField(info, "delegate")
	p.Lamports = uintField(info, "lamports")
	p.Space = uintField(info, "space")
	p.Seed = stringField(info, "seed")

	switch kind {
	case KindSystemAssign, KindSystemAssignWithSeed, KindTokenBurn, KindTokenBurnChecked, KindTokenCloseAccount:
		// these kinds name the affected account "account" rather than "source".
		p.Source = pubkeyField(info, "account")
	case KindSystemTransferWithSeed:
		// transferWithSeed prefixes its base, seed and owner keys with "source".
		p.Base = pubkeyField(info, "sourceBase")
		p.Seed = stringField(info, "sourceSeed")
		p.Owner = pubkeyField(info, "sourceOwner")
	case KindSystemWithdrawFromNonce:
		p.Source = pubkeyField(info, "nonceAccount")
		p.Authority = pubkeyField(info, "nonceAuthority")
	}

	if program == "system" {
		// System instructions carry a raw, un-decimalled lamport amount.
		p.Lamports = uintField(info, "lamports")
	} else {
		if amount, decimals, ok := tokenAmountField(info); ok {
			p.Amount = amount
			p.Decimals = decimals
		} else {
			p.Amount = uintField(info, "amount")
		}
		// transfer/transferChecked use "authority" as the signer in
		// chain-emitted parsed JSON when no delegate is present.
		if p.Authority.IsZero() && !p.Owner.IsZero() {
			p.Authority = p.Owner
		}
	}

	return p, nil
}

// accountCountGuardInfo enforces the same minimum-field presence rule
// as accountCountGuard, applied to the parsed-JSON info map rather
// than a compiled account list, since parsed form has no positional
// account vector to measure.
func accountCountGuardInfo(program string, kind Kind, info map[string]any) error {
	required := requiredFields(program, kind)
	for _, field := range required {
		if _, ok := info[field]; !ok {
			return errors.Validation("instruction %q missing required field %q", kind, field)
		}
	}
	return nil
}

func requiredFields(program string, kind Kind) []string {
	switch program + ":" + string(kind) {
	case "system:transfer":
		return []string{"source", "destination", "lamports"}
	case "system:transferWithSeed":
		return []string{"source", "sourceBase", "sourceSeed", "sourceOwner", "destination", "lamports"}
	case "system:createAccount":
		return []string{"source", "newAccount", "lamports", "space"}
	case "system:createAccountWithSeed":
		return []string{"source", "newAccount", "base", "seed", "lamports", "space"}
	case "system:assign":
		return []string{"account", "owner"}
	case "system:assignWithSeed":
		return []string{"account", "base", "seed", "owner"}
	case "system:withdrawFromNonce":
		return []string{"nonceAccount", "destination", "nonceAuthority", "lamports"}
	case "token:transfer":
		return []string{"source", "destination", "authority"}
	case "token:transferChecked":
		return []string{"source", "mint", "destination", "authority"}
	case "token:burn":
		return []string{"account", "mint", "authority"}
	case "token:burnChecked":
		return []string{"account", "mint", "authority"}
	case "token:closeAccount":
		return []string{"account", "destination", "owner"}
	case "token:approve":
		return []string{"source", "delegate", "owner"}
	case "token:approveChecked":
		return []string{"source", "mint", "delegate", "owner"}
	default:
		return nil
	}
}

func pubkeyField(info map[string]any, key string) solana.PublicKey {
	s, _ := info[key].(string)
	if s == "" {
		return solana.PublicKey{}
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}
	}
	return pk
}

func stringField(info map[string]any, key string) string {
	s, _ := info[key].(string)
	return s
}

func uintField(info map[string]any, key string) uint64 {
	switch v := info[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return uint64(n)
	case float64:
		return uint64(v)
	case string:
		var n uint64
		_, _ = fmtSscan(v, &n)
		return n
	default:
		return 0
	}
}

func tokenAmountField(info map[string]any) (uint64, uint8, bool) {
	nested, ok := info["tokenAmount"].(map[string]any)
	if !ok {
		return 0, 0, false
	}
	amount := uintField(nested, "amount")
	decimals := uint8(uintField(nested, "decimals"))
	return amount, decimals, true
}

// fmtSscan is a tiny indirection so uintField doesn't need to import
// fmt solely for this one fallback path.
func fmtSscan(s string, n *uint64) (int, error) {
	var parsed uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Validation("non-numeric amount field %q", s)
		}
		parsed = parsed*10 + uint64(c-'0')
	}
	*n = parsed
	return 1, nil
}
