package signerpool

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
)

func TestCombineRS_PadsShortComponents(t *testing.T) {
	r := "1234" // 2 bytes
	s := strings.Repeat("ab", 32)

	sig, err := combineRS(r, s)
	if err != nil {
		t.Fatalf("combineRS() error: %v", err)
	}
	if sig[0] != 0 || sig[30] != 0x12 || sig[31] != 0x34 {
		t.Errorf("r component not zero-padded correctly: %x", sig[:32])
	}
	want, _ := hex.DecodeString(s)
	for i, b := range want {
		if sig[32+i] != b {
			t.Fatalf("s component mismatch at byte %d", i)
		}
	}
}

func TestCombineRS_RejectsOverlongComponent(t *testing.T) {
	tooLong := strings.Repeat("ab", 33) // 33 bytes
	if _, err := combineRS(tooLong, "12"); err == nil {
		t.Fatal("combineRS() should reject an over-length r component")
	}
}

func TestDecodeVaultSignature_StripsVersionPrefixAndDecodesBase64(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := "vault:v1:" + base64.StdEncoding.EncodeToString(raw)

	sig, err := decodeVaultSignature(encoded)
	if err != nil {
		t.Fatalf("decodeVaultSignature() error: %v", err)
	}
	for i, b := range raw {
		if sig[i] != b {
			t.Fatalf("byte %d mismatch: got %x want %x", i, sig[i], b)
		}
	}
}

func TestDecodeVaultSignature_RejectsMalformedPrefix(t *testing.T) {
	if _, err := decodeVaultSignature("not-a-vault-signature"); err == nil {
		t.Fatal("decodeVaultSignature() should reject a string with no version prefix")
	}
}

func TestDecodeVaultSignature_RejectsWrongLength(t *testing.T) {
	encoded := "vault:v1:" + base64.StdEncoding.EncodeToString([]byte("too short"))
	if _, err := decodeVaultSignature(encoded); err == nil {
		t.Fatal("decodeVaultSignature() should reject a signature that isn't 64 bytes")
	}
}
