package accountcache

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/kora-labs/relayer/internal/cacheutil"
	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/metrics"
)

// Cache is a single read-through cache in front of getAccountInfo,
// shared by every adapter in this package so a token account or mint
// referenced by several checks in the same request is only fetched
// once per TTL window.
type Cache struct {
	rpcClient *rpc.Client
	metrics   *metrics.Metrics
	accounts  *cacheutil.Keyed[solana.PublicKey, *decodedAccount]
	mints     *cacheutil.Keyed[solana.PublicKey, *decodedMint]
}

// New builds a Cache holding up to size accounts and size mints, each
// valid for ttl after being fetched.
func New(rpcClient *rpc.Client, m *metrics.Metrics, size int, ttl time.Duration) (*Cache, error) {
	accounts, err := cacheutil.NewKeyed[solana.PublicKey, *decodedAccount](size, ttl)
	if err != nil {
		return nil, err
	}
	mints, err := cacheutil.NewKeyed[solana.PublicKey, *decodedMint](size, ttl)
	if err != nil {
		return nil, err
	}
	return &Cache{rpcClient: rpcClient, metrics: m, accounts: accounts, mints: mints}, nil
}

func (c *Cache) getAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.Account, error) {
	start := time.Now()
	info, err := c.rpcClient.GetAccountInfo(ctx, pubkey)
	if c.metrics != nil {
		c.metrics.ObserveRPCCall("getAccountInfo", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, errors.RPC(nil, "account %s not found", pubkey)
	}
	return info.Value, nil
}

// fetchAccount loads and decodes a token account, caching the result.
func (c *Cache) fetchAccount(ctx context.Context, pubkey solana.PublicKey) (*decodedAccount, error) {
	return c.accounts.Get(pubkey, func() (*decodedAccount, error) {
		acct, err := c.getAccountInfo(ctx, pubkey)
		if err != nil {
			return nil, err
		}
		return decodeTokenAccount(acct.Data.GetBinary(), acct.Owner)
	})
}

// fetchMint loads and decodes a mint, caching the result.
func (c *Cache) fetchMint(ctx context.Context, pubkey solana.PublicKey) (*decodedMint, error) {
	return c.mints.Get(pubkey, func() (*decodedMint, error) {
		acct, err := c.getAccountInfo(ctx, pubkey)
		if err != nil {
			return nil, err
		}
		return decodeMint(acct.Data.GetBinary(), acct.Owner)
	})
}
