package signerpool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	relerrors "github.com/kora-labs/relayer/internal/errors"
)

const privyAPIBaseURL = "https://api.privy.io/v1"

// PrivySigner signs through Privy's embedded-wallet RPC API,
// authenticating with HTTP Basic auth over an app ID/secret pair.
type PrivySigner struct {
	appID     string
	appSecret string
	walletID  string
	pubkey    solana.PublicKey

	apiBaseURL string
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	rpcClient  *rpc.Client
}

// NewPrivySigner builds a PrivySigner for a wallet whose Solana
// address is already known (fetched once at startup via the wallet
// lookup endpoint, then cached here).
func NewPrivySigner(appID, appSecret, walletID string, publicKey solana.PublicKey, httpClient *http.Client, breakers *circuitbreaker.Manager, rpcClient *rpc.Client) *PrivySigner {
	return &PrivySigner{
		appID:      appID,
		appSecret:  appSecret,
		walletID:   walletID,
		pubkey:     publicKey,
		apiBaseURL: privyAPIBaseURL,
		httpClient: httpClient,
		breakers:   breakers,
		rpcClient:  rpcClient,
	}
}

func (s *PrivySigner) PublicKey() solana.PublicKey {
	return s.pubkey
}

func (s *PrivySigner) authHeader() string {
	creds := s.appID + ":" + s.appSecret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

type privyWalletResponse struct {
	Address string `json:"address"`
}

// FetchPublicKey looks up the wallet's Solana address from Privy and
// caches it on the signer. Privy's config carries no public-key field
// of its own, so the pool calls this once at startup for every Privy
// entry before the signer is usable.
func (s *PrivySigner) FetchPublicKey(ctx context.Context) (solana.PublicKey, error) {
	url := fmt.Sprintf("%s/wallets/%s", s.apiBaseURL, s.walletID)
	result, err := s.breakers.Execute(circuitbreaker.ServicePrivy, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", s.authHeader())
		httpReq.Header.Set("privy-app-id", s.appID)

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
			return nil, fmt.Errorf("privy api error: status %d: %s", resp.StatusCode, respBody)
		}

		var wallet privyWalletResponse
		if err := json.Unmarshal(respBody, &wallet); err != nil {
			return nil, err
		}
		return wallet.Address, nil
	})
	if err != nil {
		return solana.PublicKey{}, relerrors.Signer(err, "privy get wallet")
	}

	pk, err := solana.PublicKeyFromBase58(result.(string))
	if err != nil {
		return solana.PublicKey{}, relerrors.Signer(err, "privy signer: wallet address is not a valid public key")
	}
	s.pubkey = pk
	return pk, nil
}

type privySignTransactionRequest struct {
	Method string                      `json:"method"`
	Params privySignTransactionParams `json:"params"`
}

type privySignTransactionParams struct {
	Transaction string `json:"transaction"`
	Encoding    string `json:"encoding"`
}

type privySignTransactionResponse struct {
	Data struct {
		SignedTransaction string `json:"signed_transaction"`
	} `json:"data"`
}

// Sign submits a fully serialized transaction (with empty signature
// placeholders) to Privy's wallet RPC and extracts the fee-payer's
// signature from the signed result Privy returns.
func (s *PrivySigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	req := privySignTransactionRequest{
		Method: "signTransaction",
		Params: privySignTransactionParams{
			Transaction: base64.StdEncoding.EncodeToString(message),
			Encoding:    "base64",
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "privy signer: marshal request")
	}

	url := fmt.Sprintf("%s/wallets/%s/rpc", s.apiBaseURL, s.walletID)
	result, err := s.breakers.Execute(circuitbreaker.ServicePrivy, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", s.authHeader())
		httpReq.Header.Set("privy-app-id", s.appID)
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
			return nil, fmt.Errorf("privy api error: status %d: %s", resp.StatusCode, respBody)
		}

		var signResp privySignTransactionResponse
		if err := json.Unmarshal(respBody, &signResp); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(signResp.Data.SignedTransaction)
	})
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "privy signTransaction")
	}

	signedTx, err := solana.TransactionFromBytes(result.([]byte))
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "privy signer: decode signed transaction")
	}
	if len(signedTx.Signatures) == 0 {
		return solana.Signature{}, relerrors.Signer(nil, "privy signer: signed transaction carries no signatures")
	}
	return signedTx.Signatures[0], nil
}

func (s *PrivySigner) LamportBalance(ctx context.Context) (uint64, error) {
	result, err := s.rpcClient.GetBalance(ctx, s.pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, relerrors.RPC(err, "get balance for %s", s.pubkey)
	}
	return result.Value, nil
}
