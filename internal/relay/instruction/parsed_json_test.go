package instruction

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestFromJSON_SystemTransfer(t *testing.T) {
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()

	raw := []byte(`{
		"program": "system",
		"parsed": {
			"type": "transfer",
			"info": {"source": "` + src.String() + `", "destination": "` + dst.String() + `", "lamports": 1500000}
		}
	}`)

	p, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if p.Kind != KindSystemTransfer {
		t.Errorf("Kind = %v, want transfer", p.Kind)
	}
	if !p.Source.Equals(src) || !p.Destination.Equals(dst) {
		t.Errorf("source/destination not decoded correctly")
	}
	if p.Lamports != 1500000 {
		t.Errorf("Lamports = %d, want 1500000", p.Lamports)
	}
}

func TestFromJSON_TokenTransferChecked(t *testing.T) {
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	raw := []byte(`{
		"program": "spl-token",
		"parsed": {
			"type": "transferChecked",
			"info": {
				"source": "` + src.String() + `",
				"mint": "` + mint.String() + `",
				"destination": "` + dst.String() + `",
				"authority": "` + owner.String() + `",
				"tokenAmount": {"amount": "5000000", "decimals": 6}
			}
		}
	}`)

	p, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if p.Kind != KindTokenTransferChecked {
		t.Errorf("Kind = %v, want transferChecked", p.Kind)
	}
	if p.Amount != 5000000 || p.Decimals != 6 {
		t.Errorf("Amount/Decimals = %d/%d, want 5000000/6", p.Amount, p.Decimals)
	}
	if !p.Mint.Equals(mint) {
		t.Errorf("Mint not decoded correctly")
	}
}

func TestFromJSON_TokenBurnMapsAccountToSource(t *testing.T) {
	account := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	raw := []byte(`{
		"program": "spl-token",
		"parsed": {
			"type": "burn",
			"info": {
				"account": "` + account.String() + `",
				"mint": "` + mint.String() + `",
				"authority": "` + authority.String() + `",
				"amount": "250"
			}
		}
	}`)

	p, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if p.Kind != KindTokenBurn {
		t.Errorf("Kind = %v, want burn", p.Kind)
	}
	if !p.Source.Equals(account) {
		t.Errorf("Source = %s, want the burned account %s", p.Source, account)
	}
	if p.Source.IsZero() {
		t.Error("Source is zero, the \"account\" field was not mapped")
	}
}

func TestFromJSON_SystemAssignMapsAccountToSource(t *testing.T) {
	account := solana.NewWallet().PublicKey()
	newOwner := solana.NewWallet().PublicKey()

	raw := []byte(`{
		"program": "system",
		"parsed": {
			"type": "assign",
			"info": {"account": "` + account.String() + `", "owner": "` + newOwner.String() + `"}
		}
	}`)

	p, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if !p.Source.Equals(account) {
		t.Errorf("Source = %s, want the assigned account %s", p.Source, account)
	}
	if !p.Owner.Equals(newOwner) {
		t.Errorf("Owner = %s, want the new owner program %s", p.Owner, newOwner)
	}
}

func TestFromJSON_MissingRequiredField(t *testing.T) {
	raw := []byte(`{
		"program": "system",
		"parsed": {"type": "transfer", "info": {"source": "x"}}
	}`)

	_, err := FromJSON(raw)
	if err == nil {
		t.Fatal("expected a validation error for a missing destination/lamports field, got nil")
	}
}

func TestFromJSON_UnknownProgramIgnored(t *testing.T) {
	raw := []byte(`{"program": "spl-memo", "parsed": {"type": "memo", "info": {}}}`)

	p, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil for an unrecognised program, got %+v", p)
	}
}

func TestReconstruct_TokenTransferTargetsTokenProgram(t *testing.T) {
	p := &Parsed{
		Program:     "token",
		Kind:        KindTokenTransfer,
		Source:      solana.NewWallet().PublicKey(),
		Destination: solana.NewWallet().PublicKey(),
		Authority:   solana.NewWallet().PublicKey(),
		Amount:      42,
	}

	inst, err := Reconstruct(p)
	if err != nil {
		t.Fatalf("Reconstruct() error: %v", err)
	}
	if !inst.ProgramID().Equals(solana.TokenProgramID) {
		t.Errorf("ProgramID() = %s, want the token program", inst.ProgramID())
	}
}

func TestReconstruct_UnsupportedKind(t *testing.T) {
	p := &Parsed{Program: "token", Kind: Kind("unknown")}
	if _, err := Reconstruct(p); err == nil {
		t.Fatal("expected an error for an unsupported instruction kind")
	}
}

func TestAccountCountGuard_RejectsShortAccountList(t *testing.T) {
	err := accountCountGuard("token", KindTokenTransferChecked, []solana.PublicKey{solana.NewWallet().PublicKey()})
	if err == nil {
		t.Fatal("expected an error for an account list shorter than transferChecked requires")
	}
}
