package accountcache

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func mustPubkey(t *testing.T, seed byte) solana.PublicKey {
	t.Helper()
	var raw [32]byte
	for i := range raw {
		raw[i] = seed
	}
	return solana.PublicKeyFromBytes(raw[:])
}

func plainTokenAccount(t *testing.T, mint, owner solana.PublicKey, amount uint64) []byte {
	t.Helper()
	data := make([]byte, tokenAccountLen)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return data
}

func appendExtension(data []byte, extType uint16, value []byte) []byte {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint16(header[0:2], extType)
	binary.LittleEndian.PutUint16(header[2:4], uint16(len(value)))
	return append(append(data, header...), value...)
}

func token2022Account(t *testing.T, mint, owner solana.PublicKey, amount uint64, extensions ...struct {
	extType uint16
	value   []byte
}) []byte {
	t.Helper()
	data := plainTokenAccount(t, mint, owner, amount)
	data = append(data, 2) // account-type discriminator, value unused by the decoder
	for _, ext := range extensions {
		data = appendExtension(data, ext.extType, ext.value)
	}
	return data
}

func transferFeeConfigValue(older, newer struct {
	epoch       uint64
	maximumFee  uint64
	basisPoints uint16
}) []byte {
	value := make([]byte, 72+2*18)
	putTransferFee := func(at int, f struct {
		epoch       uint64
		maximumFee  uint64
		basisPoints uint16
	}) {
		binary.LittleEndian.PutUint64(value[at:at+8], f.epoch)
		binary.LittleEndian.PutUint64(value[at+8:at+16], f.maximumFee)
		binary.LittleEndian.PutUint16(value[at+16:at+18], f.basisPoints)
	}
	putTransferFee(72, older)
	putTransferFee(90, newer)
	return value
}

func TestDecodeTokenAccount_PlainSPLToken(t *testing.T) {
	mint := mustPubkey(t, 1)
	owner := mustPubkey(t, 2)
	data := plainTokenAccount(t, mint, owner, 1_000_000)

	got, err := decodeTokenAccount(data, solana.TokenProgramID)
	if err != nil {
		t.Fatalf("decodeTokenAccount() error: %v", err)
	}
	if got.program != programNameToken {
		t.Errorf("program = %q, want %q", got.program, programNameToken)
	}
	if !got.mint.Equals(mint) || !got.owner.Equals(owner) {
		t.Errorf("mint/owner mismatch: got mint=%s owner=%s", got.mint, got.owner)
	}
	if got.amount != 1_000_000 {
		t.Errorf("amount = %d, want 1000000", got.amount)
	}
	if len(got.extensions) != 0 || got.cpiGuardLocked {
		t.Errorf("plain token account should carry no extensions, got %+v", got)
	}
}

func TestDecodeTokenAccount_TooShort(t *testing.T) {
	_, err := decodeTokenAccount(make([]byte, tokenAccountLen-1), solana.TokenProgramID)
	if err == nil {
		t.Fatal("decodeTokenAccount() error = nil, want error for truncated data")
	}
}

func TestDecodeTokenAccount_Token2022WithCPIGuardLocked(t *testing.T) {
	mint := mustPubkey(t, 3)
	owner := mustPubkey(t, 4)
	data := token2022Account(t, mint, owner, 500, struct {
		extType uint16
		value   []byte
	}{extTypeCPIGuard, []byte{1}})

	got, err := decodeTokenAccount(data, solana.Token2022ProgramID)
	if err != nil {
		t.Fatalf("decodeTokenAccount() error: %v", err)
	}
	if got.program != programNameToken2022 {
		t.Errorf("program = %q, want %q", got.program, programNameToken2022)
	}
	if !got.cpiGuardLocked {
		t.Error("cpiGuardLocked = false, want true")
	}
	if len(got.extensions) != 1 || got.extensions[0] != "cpi_guard" {
		t.Errorf("extensions = %v, want [cpi_guard]", got.extensions)
	}
}

func TestDecodeTokenAccount_Token2022WithCPIGuardUnlocked(t *testing.T) {
	mint := mustPubkey(t, 5)
	owner := mustPubkey(t, 6)
	data := token2022Account(t, mint, owner, 500, struct {
		extType uint16
		value   []byte
	}{extTypeCPIGuard, []byte{0}})

	got, err := decodeTokenAccount(data, solana.Token2022ProgramID)
	if err != nil {
		t.Fatalf("decodeTokenAccount() error: %v", err)
	}
	if got.cpiGuardLocked {
		t.Error("cpiGuardLocked = true, want false")
	}
}

func TestDecodeTokenAccount_Token2022MultipleExtensions(t *testing.T) {
	mint := mustPubkey(t, 7)
	owner := mustPubkey(t, 8)
	data := token2022Account(t, mint, owner, 10,
		struct {
			extType uint16
			value   []byte
		}{extTypeNonTransferableAcct, nil},
		struct {
			extType uint16
			value   []byte
		}{extTypePermanentDelegate, make([]byte, 32)},
	)

	got, err := decodeTokenAccount(data, solana.Token2022ProgramID)
	if err != nil {
		t.Fatalf("decodeTokenAccount() error: %v", err)
	}
	want := map[string]bool{"non_transferable_account": true, "permanent_delegate": true}
	if len(got.extensions) != len(want) {
		t.Fatalf("extensions = %v, want two entries matching %v", got.extensions, want)
	}
	for _, name := range got.extensions {
		if !want[name] {
			t.Errorf("unexpected extension name %q", name)
		}
	}
}

func TestDecodeMint_PlainSPLToken(t *testing.T) {
	data := make([]byte, tokenMintLen)
	got, err := decodeMint(data, solana.TokenProgramID)
	if err != nil {
		t.Fatalf("decodeMint() error: %v", err)
	}
	if got.program != programNameToken {
		t.Errorf("program = %q, want %q", got.program, programNameToken)
	}
	if got.nonTransferable || got.transferFee != nil {
		t.Errorf("plain mint should have no extensions, got %+v", got)
	}
}

func TestDecodeMint_TooShort(t *testing.T) {
	_, err := decodeMint(make([]byte, tokenMintLen-1), solana.TokenProgramID)
	if err == nil {
		t.Fatal("decodeMint() error = nil, want error for truncated data")
	}
}

func TestDecodeMint_Token2022NonTransferable(t *testing.T) {
	data := make([]byte, tokenAccountLen)
	data = append(data, 1)
	data = appendExtension(data, extTypeNonTransferable, nil)

	got, err := decodeMint(data, solana.Token2022ProgramID)
	if err != nil {
		t.Fatalf("decodeMint() error: %v", err)
	}
	if !got.nonTransferable {
		t.Error("nonTransferable = false, want true")
	}
	if got.transferFee != nil {
		t.Errorf("transferFee = %+v, want nil", got.transferFee)
	}
}

func TestDecodeMint_Token2022TransferFeeConfig(t *testing.T) {
	type fee = struct {
		epoch       uint64
		maximumFee  uint64
		basisPoints uint16
	}
	older := fee{epoch: 100, maximumFee: 5000, basisPoints: 50}
	newer := fee{epoch: 200, maximumFee: 8000, basisPoints: 75}
	value := transferFeeConfigValue(older, newer)

	data := make([]byte, tokenAccountLen)
	data = append(data, 1)
	data = appendExtension(data, extTypeTransferFeeConfig, value)

	got, err := decodeMint(data, solana.Token2022ProgramID)
	if err != nil {
		t.Fatalf("decodeMint() error: %v", err)
	}
	if got.transferFee == nil {
		t.Fatal("transferFee = nil, want populated config")
	}
	if got.transferFee.OlderEpoch != older.epoch || got.transferFee.OlderMaximumFee != older.maximumFee || got.transferFee.OlderBasisPoints != older.basisPoints {
		t.Errorf("older schedule = %+v, want %+v", got.transferFee, older)
	}
	if got.transferFee.NewerEpoch != newer.epoch || got.transferFee.NewerMaximumFee != newer.maximumFee || got.transferFee.NewerBasisPoints != newer.basisPoints {
		t.Errorf("newer schedule = %+v, want %+v", got.transferFee, newer)
	}
}

func TestWalkExtensions_StopsOnTruncatedEntry(t *testing.T) {
	data := make([]byte, tokenAccountLen)
	data = append(data, 1)
	data = appendExtension(data, extTypeNonTransferable, nil)
	// A trailing, truncated extension header should be ignored rather than panic.
	data = append(data, 0xAA, 0xAA, 0xFF, 0xFF)

	names := walkExtensions(data, nil)
	if len(names) != 1 || names[0] != "non_transferable" {
		t.Errorf("walkExtensions() = %v, want [non_transferable]", names)
	}
}
