package signerpool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	relerrors "github.com/kora-labs/relayer/internal/errors"
)

// VaultSigner signs through HashiCorp Vault's Transit secrets engine,
// using an ed25519 key held entirely inside Vault.
type VaultSigner struct {
	addr    string
	token   string
	keyName string
	pubkey  solana.PublicKey

	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	rpcClient  *rpc.Client
}

// NewVaultSigner builds a VaultSigner. pubkey must be parsed from the
// operator-supplied base58 address ahead of time (Vault's Transit
// engine doesn't expose a raw Solana address lookup).
func NewVaultSigner(addr, token, keyName string, pubkey solana.PublicKey, httpClient *http.Client, breakers *circuitbreaker.Manager, rpcClient *rpc.Client) *VaultSigner {
	return &VaultSigner{
		addr:       strings.TrimRight(addr, "/"),
		token:      token,
		keyName:    keyName,
		pubkey:     pubkey,
		httpClient: httpClient,
		breakers:   breakers,
		rpcClient:  rpcClient,
	}
}

func (s *VaultSigner) PublicKey() solana.PublicKey {
	return s.pubkey
}

type vaultSignRequest struct {
	Input          string `json:"input"`
	SignatureAlgorithm string `json:"signature_algorithm,omitempty"`
}

type vaultSignResponse struct {
	Data struct {
		Signature string `json:"signature"`
	} `json:"data"`
}

// Sign calls Vault's transit/sign/<key> endpoint over message, base64
// encoded as the "input" field, and extracts the raw 64-byte ed25519
// signature from Vault's "vault:v<n>:<base64-sig>" response format.
func (s *VaultSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	reqBody, err := json.Marshal(vaultSignRequest{
		Input: base64.StdEncoding.EncodeToString(message),
	})
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "vault signer: marshal request")
	}

	url := fmt.Sprintf("%s/v1/transit/sign/%s", s.addr, s.keyName)
	result, err := s.breakers.Execute(circuitbreaker.ServiceVault, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqBody)))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("X-Vault-Token", s.token)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("vault api error: status %d: %s", resp.StatusCode, respBody)
		}

		var signResp vaultSignResponse
		if err := json.Unmarshal(respBody, &signResp); err != nil {
			return nil, err
		}
		return signResp.Data.Signature, nil
	})
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "vault transit sign")
	}

	return decodeVaultSignature(result.(string))
}

// decodeVaultSignature strips Vault's "vault:v<n>:" version prefix and
// base64-decodes the remainder into a 64-byte ed25519 signature.
func decodeVaultSignature(raw string) (solana.Signature, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return solana.Signature{}, relerrors.Signer(nil, "vault signer: unexpected signature format %q", raw)
	}
	decoded, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "vault signer: decode signature")
	}
	if len(decoded) != 64 {
		return solana.Signature{}, relerrors.Signer(nil, "vault signer: signature is %d bytes, want 64", len(decoded))
	}
	var sig solana.Signature
	copy(sig[:], decoded)
	return sig, nil
}

func (s *VaultSigner) LamportBalance(ctx context.Context) (uint64, error) {
	result, err := s.rpcClient.GetBalance(ctx, s.pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, relerrors.RPC(err, "get balance for %s", s.pubkey)
	}
	return result.Value, nil
}
