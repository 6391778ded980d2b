package signerpool

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	relerrors "github.com/kora-labs/relayer/internal/errors"
)

const turnkeyAPIBaseURL = "https://api.turnkey.com"

// TurnkeySigner signs through Turnkey's raw-payload activity API,
// authenticating requests with an API-key stamp computed locally over
// a P-256 keypair. The signing key itself never leaves Turnkey.
type TurnkeySigner struct {
	apiPublicKey  string
	apiPrivateKey []byte // raw 32-byte P-256 scalar
	organizationID string
	privateKeyID   string
	pubkey         solana.PublicKey

	apiBaseURL string
	httpClient *http.Client
	breakers   *circuitbreaker.Manager
	rpcClient  *rpc.Client
}

// NewTurnkeySigner builds a TurnkeySigner. publicKey is the Solana
// address Turnkey will produce signatures for.
func NewTurnkeySigner(apiPublicKeyHex, apiPrivateKeyHex, organizationID, privateKeyID string, publicKey solana.PublicKey, httpClient *http.Client, breakers *circuitbreaker.Manager, rpcClient *rpc.Client) (*TurnkeySigner, error) {
	priv, err := hex.DecodeString(apiPrivateKeyHex)
	if err != nil || len(priv) != 32 {
		return nil, relerrors.InvalidConfig("turnkey signer: api_private_key must be 32 bytes of hex")
	}
	return &TurnkeySigner{
		apiPublicKey:   apiPublicKeyHex,
		apiPrivateKey:  priv,
		organizationID: organizationID,
		privateKeyID:   privateKeyID,
		pubkey:         publicKey,
		apiBaseURL:     turnkeyAPIBaseURL,
		httpClient:     httpClient,
		breakers:       breakers,
		rpcClient:      rpcClient,
	}, nil
}

func (s *TurnkeySigner) PublicKey() solana.PublicKey {
	return s.pubkey
}

type turnkeySignRequest struct {
	ActivityType string                   `json:"type"`
	TimestampMs  string                   `json:"timestampMs"`
	Organization string                   `json:"organizationId"`
	Parameters   turnkeySignRequestParams `json:"parameters"`
}

type turnkeySignRequestParams struct {
	SignWith     string `json:"signWith"`
	Payload      string `json:"payload"`
	Encoding     string `json:"encoding"`
	HashFunction string `json:"hashFunction"`
}

type turnkeySignatureRS struct {
	R string `json:"r"`
	S string `json:"s"`
}

type turnkeyActivityResponse struct {
	Activity struct {
		Status string `json:"status"`
		Result *struct {
			SignRawPayloadResult *turnkeySignatureRS `json:"signRawPayloadResult"`
		} `json:"result"`
	} `json:"activity"`
}

func (s *TurnkeySigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	req := turnkeySignRequest{
		ActivityType: "ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2",
		TimestampMs:  fmt.Sprintf("%d", time.Now().UnixMilli()),
		Organization: s.organizationID,
		Parameters: turnkeySignRequestParams{
			SignWith:     s.privateKeyID,
			Payload:      hex.EncodeToString(message),
			Encoding:     "PAYLOAD_ENCODING_HEXADECIMAL",
			HashFunction: "HASH_FUNCTION_NOT_APPLICABLE",
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "turnkey signer: marshal request")
	}

	stamp, err := s.stamp(body)
	if err != nil {
		return solana.Signature{}, err
	}

	url := s.apiBaseURL + "/public/v1/submit/sign_raw_payload"
	result, err := s.breakers.Execute(circuitbreaker.ServiceTurnkey, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Stamp", stamp)

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
			return nil, fmt.Errorf("turnkey api error: status %d: %s", resp.StatusCode, respBody)
		}

		var activity turnkeyActivityResponse
		if err := json.Unmarshal(respBody, &activity); err != nil {
			return nil, err
		}
		if activity.Activity.Result == nil || activity.Activity.Result.SignRawPayloadResult == nil {
			return nil, fmt.Errorf("turnkey api: missing sign_raw_payload result")
		}
		return activity.Activity.Result.SignRawPayloadResult, nil
	})
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "turnkey sign_raw_payload")
	}

	parsed := result.(*turnkeySignatureRS)
	return combineRS(parsed.R, parsed.S)
}

func combineRS(rHex, sHex string) (solana.Signature, error) {
	rBytes, err := hex.DecodeString(rHex)
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "turnkey signer: decode r")
	}
	sBytes, err := hex.DecodeString(sHex)
	if err != nil {
		return solana.Signature{}, relerrors.Signer(err, "turnkey signer: decode s")
	}
	if len(rBytes) > 32 || len(sBytes) > 32 {
		return solana.Signature{}, relerrors.Signer(nil, "turnkey signer: signature component too long")
	}

	var sig solana.Signature
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	return sig, nil
}

// stamp builds Turnkey's X-Stamp header: a base64url(no padding)
// encoding of a JSON object carrying the API public key, a P-256
// ECDSA signature over the request body, and the stamp scheme name.
func (s *TurnkeySigner) stamp(body []byte) (string, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(s.apiPrivateKey)
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve},
		D:         d,
	}
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(s.apiPrivateKey)

	digest := sha256.Sum256(body)
	derSig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return "", relerrors.Signer(err, "turnkey signer: sign stamp")
	}

	stampJSON, err := json.Marshal(map[string]string{
		"publicKey": s.apiPublicKey,
		"signature": hex.EncodeToString(derSig),
		"scheme":    "SIGNATURE_SCHEME_TK_API_P256",
	})
	if err != nil {
		return "", relerrors.Signer(err, "turnkey signer: marshal stamp")
	}
	return base64.RawURLEncoding.EncodeToString(stampJSON), nil
}

func (s *TurnkeySigner) LamportBalance(ctx context.Context) (uint64, error) {
	result, err := s.rpcClient.GetBalance(ctx, s.pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, relerrors.RPC(err, "get balance for %s", s.pubkey)
	}
	return result.Value, nil
}
