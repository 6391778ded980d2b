package signerpool

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	relerrors "github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/httputil"
	"github.com/kora-labs/relayer/internal/relayconfig"
	relaysolana "github.com/kora-labs/relayer/internal/solana"
)

const hsmHTTPTimeout = 30 * time.Second

// Build resolves every entry in cfg against the process environment
// and external HSM APIs, returning a ready-to-use Pool.
func Build(ctx context.Context, cfg relayconfig.SignerPoolConfig, rpcClient *rpc.Client, breakers *circuitbreaker.Manager) (*Pool, error) {
	entries := make([]Entry, 0, len(cfg.Signers))
	for _, sc := range cfg.Signers {
		signer, err := buildOne(ctx, sc, rpcClient, breakers)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: sc.Name, Weight: weightOrDefault(sc.Weight), Signer: signer})
	}
	return NewPool(cfg.SignerPool.Strategy, entries)
}

func weightOrDefault(w uint32) uint32 {
	if w == 0 {
		return 1
	}
	return w
}

func buildOne(ctx context.Context, sc relayconfig.SignerEntry, rpcClient *rpc.Client, breakers *circuitbreaker.Manager) (Signer, error) {
	switch sc.Type {
	case relayconfig.BackendMemory:
		return buildMemorySigner(sc, rpcClient)
	case relayconfig.BackendTurnkey:
		return buildTurnkeySigner(sc, rpcClient, breakers)
	case relayconfig.BackendPrivy:
		return buildPrivySigner(ctx, sc, rpcClient, breakers)
	case relayconfig.BackendVault:
		return buildVaultSigner(sc, rpcClient, breakers)
	default:
		return nil, relerrors.InvalidConfig("signer %q: unknown backend type %q", sc.Name, sc.Type)
	}
}

func buildMemorySigner(sc relayconfig.SignerEntry, rpcClient *rpc.Client) (Signer, error) {
	raw, err := envVar(sc.PrivateKeyEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	key, err := relaysolana.ParsePrivateKey(raw)
	if err != nil {
		return nil, relerrors.InvalidConfig("signer %q: %v", sc.Name, err)
	}
	return NewMemorySigner(key, rpcClient), nil
}

func buildTurnkeySigner(sc relayconfig.SignerEntry, rpcClient *rpc.Client, breakers *circuitbreaker.Manager) (Signer, error) {
	apiPub, err := envVar(sc.APIPublicKeyEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	apiPriv, err := envVar(sc.APIPrivateKeyEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	orgID, err := envVar(sc.OrganizationIDEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	keyID, err := envVar(sc.PrivateKeyIDEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	pubkeyStr, err := envVar(sc.PublicKeyEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	pubkey, err := solana.PublicKeyFromBase58(pubkeyStr)
	if err != nil {
		return nil, relerrors.InvalidConfig("signer %q: public_key_env does not contain a valid address: %v", sc.Name, err)
	}
	return NewTurnkeySigner(apiPub, apiPriv, orgID, keyID, pubkey, httputil.NewClient(hsmHTTPTimeout), breakers, rpcClient)
}

func buildPrivySigner(ctx context.Context, sc relayconfig.SignerEntry, rpcClient *rpc.Client, breakers *circuitbreaker.Manager) (Signer, error) {
	appID, err := envVar(sc.AppIDEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	appSecret, err := envVar(sc.AppSecretEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	walletID, err := envVar(sc.WalletIDEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	signer := NewPrivySigner(appID, appSecret, walletID, solana.PublicKey{}, httputil.NewClient(hsmHTTPTimeout), breakers, rpcClient)
	if _, err := signer.FetchPublicKey(ctx); err != nil {
		return nil, relerrors.InvalidConfig("signer %q: %v", sc.Name, err)
	}
	return signer, nil
}

func buildVaultSigner(sc relayconfig.SignerEntry, rpcClient *rpc.Client, breakers *circuitbreaker.Manager) (Signer, error) {
	addr, err := envVar(sc.AddrEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	token, err := envVar(sc.TokenEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	keyName, err := envVar(sc.KeyNameEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	pubkeyStr, err := envVar(sc.PubkeyEnv, sc.Name)
	if err != nil {
		return nil, err
	}
	pubkey, err := solana.PublicKeyFromBase58(pubkeyStr)
	if err != nil {
		return nil, relerrors.InvalidConfig("signer %q: pubkey_env does not contain a valid address: %v", sc.Name, err)
	}
	return NewVaultSigner(addr, token, keyName, pubkey, httputil.NewClient(hsmHTTPTimeout), breakers, rpcClient), nil
}
