// Package relayer wires the relayer core's nine components into a
// single embeddable App, the way pkg/cedros wires CedrosPay's paywall
// services: functional options for overriding a component in tests,
// one constructor that validates configuration and builds everything
// an operator would otherwise have to assemble by hand, and a single
// Close for releasing what NewApp opened.
package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/kora-labs/relayer/internal/circuitbreaker"
	"github.com/kora-labs/relayer/internal/dbpool"
	"github.com/kora-labs/relayer/internal/logger"
	"github.com/kora-labs/relayer/internal/metrics"
	"github.com/kora-labs/relayer/internal/monitoring"
	"github.com/kora-labs/relayer/internal/relay/accountcache"
	"github.com/kora-labs/relayer/internal/relay/bundle"
	"github.com/kora-labs/relayer/internal/relay/fee"
	"github.com/kora-labs/relayer/internal/relay/oracle"
	"github.com/kora-labs/relayer/internal/relay/payment"
	"github.com/kora-labs/relayer/internal/relay/signerpool"
	"github.com/kora-labs/relayer/internal/relay/txresolve"
	"github.com/kora-labs/relayer/internal/relay/usage"
	"github.com/kora-labs/relayer/internal/relay/validate"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

const (
	lookupTableCacheSize = 4096
	lookupTableCacheTTL  = 10 * time.Minute
	accountCacheSize     = 8192
	accountCacheTTL      = 5 * time.Second
)

// App holds every constructed component of a running relayer.
type App struct {
	Config       *relayconfig.Config
	SignerConfig *relayconfig.SignerPoolConfig

	RPCClient *rpc.Client
	Metrics   *metrics.Metrics
	Breakers  *circuitbreaker.Manager

	Resolver  *txresolve.Resolver
	Validator *validate.Validator
	FeeEngine *fee.Engine
	Payment   *payment.Detector
	Oracle    oracle.Source
	Signers   *signerpool.Pool
	Usage     *usage.Tracker
	Bundle    *bundle.Processor
	Balances  *monitoring.BalanceMonitor

	pgPool *dbpool.SharedPool
}

// Option configures App construction.
type Option func(*options)

type options struct {
	rpcClient   *rpc.Client
	registerer  prometheus.Registerer
	usageStore  usage.Store
	oracle      oracle.Source
}

// WithRPCClient overrides the chain RPC client NewApp would otherwise
// build from cfg.RPC.URL, for tests that point at a mock server.
func WithRPCClient(client *rpc.Client) Option {
	return func(o *options) { o.rpcClient = client }
}

// WithMetricsRegisterer overrides the Prometheus registry metrics are
// published to, instead of prometheus.DefaultRegisterer.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithUsageStore overrides the usage tracker's backing store instead
// of the one relayconfig.UsageConfig.Store names.
func WithUsageStore(store usage.Store) Option {
	return func(o *options) { o.usageStore = store }
}

// WithOracle overrides the price oracle instead of the one
// relayconfig.ValidationConfig.PriceSource names.
func WithOracle(source oracle.Source) Option {
	return func(o *options) { o.oracle = source }
}

// NewApp validates cfg and signerCfg, then builds every relayer
// component against them.
func NewApp(ctx context.Context, cfg relayconfig.Config, signerCfg relayconfig.SignerPoolConfig, opts ...Option) (*App, error) {
	diag := validate.DiagnoseConfig(cfg, signerCfg)
	if len(diag.Errors) > 0 {
		return nil, fmt.Errorf("relayer: invalid configuration: %v", diag.Errors[0])
	}
	for _, w := range diag.Warnings {
		log.Warn().Str("check", w).Msg("relayer: startup configuration warning")
	}

	optState := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&optState)
	}

	logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: "relayer"})

	app := &App{Config: &cfg, SignerConfig: &signerCfg}

	app.RPCClient = optState.rpcClient
	if app.RPCClient == nil {
		if cfg.RPC.URL == "" {
			return nil, fmt.Errorf("relayer: rpc.url is required")
		}
		app.RPCClient = rpc.New(cfg.RPC.URL)
	}

	app.Metrics = metrics.New(optState.registerer)
	app.Breakers = circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker)

	lookupTables, err := txresolve.NewCachedLookupTableResolver(app.RPCClient, app.Metrics, lookupTableCacheSize, lookupTableCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("relayer: build lookup table resolver: %w", err)
	}
	simulator := txresolve.NewRPCSimulator(app.RPCClient, app.Metrics)
	app.Resolver = txresolve.New(lookupTables, simulator)

	accounts, err := accountcache.New(app.RPCClient, app.Metrics, accountCacheSize, accountCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("relayer: build account cache: %w", err)
	}

	validateAccounts, validateMints := accountcache.ForValidate(accounts)
	app.Validator = validate.New(cfg.Validation, validateAccounts, validateMints)

	baseFees := fee.NewRPCBaseFeeSource(app.RPCClient, app.Metrics)
	feeAccounts, feeMints := accountcache.ForFee(accounts)
	app.FeeEngine = fee.New(baseFees, feeAccounts, feeMints, nil)

	if optState.oracle != nil {
		app.Oracle = optState.oracle
	} else {
		app.Oracle, err = oracle.New(cfg.Validation.PriceSource, cfg.Oracle, app.Breakers)
		if err != nil {
			return nil, fmt.Errorf("relayer: build oracle: %w", err)
		}
	}

	paymentAccounts, paymentMints := accountcache.ForPayment(accounts)
	allowedMints, err := parsePubkeys(cfg.Validation.AllowedSPLPaidTokens)
	if err != nil {
		return nil, err
	}
	app.Payment = payment.New(payment.Config{
		Accounts:                 paymentAccounts,
		Mints:                    paymentMints,
		Oracle:                   app.Oracle,
		AllowedMints:             allowedMints,
		BlockedAccountExtensions: cfg.Validation.Token2022.BlockedAccountExtensions,
	})

	app.Signers, err = signerpool.Build(ctx, signerCfg, app.RPCClient, app.Breakers)
	if err != nil {
		return nil, fmt.Errorf("relayer: build signer pool: %w", err)
	}

	usageStore := optState.usageStore
	if usageStore == nil {
		usageStore, err = app.buildUsageStore(ctx, cfg.Usage)
		if err != nil {
			return nil, fmt.Errorf("relayer: build usage store: %w", err)
		}
	}
	app.Usage = usage.NewTracker(usageStore, cfg.Usage.Window.Duration, cfg.Usage.MaxPerWindow)

	app.Bundle = bundle.New(app.Resolver, app.Validator, app.FeeEngine, app.Payment, app.Usage, baseFees, app.RPCClient)

	balanceSources := make([]monitoring.BalanceSource, 0, len(app.Signers.Entries()))
	for _, e := range app.Signers.Entries() {
		balanceSources = append(balanceSources, e.Signer)
	}
	app.Balances = monitoring.NewBalanceMonitor(cfg.Monitoring, balanceSources)
	if cfg.Monitoring.BalancePollInterval.Duration > 0 {
		app.Balances.Start(ctx)
	}

	return app, nil
}

// Close stops the balance monitor and releases the usage tracker's
// store and (if the postgres backend was selected) its shared
// connection pool. The chain RPC client and signer backends own no
// resources that need an explicit shutdown.
func (a *App) Close() error {
	if a.Balances != nil {
		a.Balances.Stop()
	}
	if a.Usage != nil {
		if err := a.Usage.Close(); err != nil {
			return err
		}
	}
	if a.pgPool != nil {
		return a.pgPool.Close()
	}
	return nil
}

// PaymentDestination returns the configured payment address as a
// public key, the account every qualifying payment instruction in a
// relayed transaction must land on.
func (a *App) PaymentDestination() (solana.PublicKey, error) {
	if a.Config.Kora.PaymentAddress == "" {
		return solana.PublicKey{}, fmt.Errorf("relayer: kora.payment_address is not configured")
	}
	return solana.PublicKeyFromBase58(a.Config.Kora.PaymentAddress)
}

// buildUsageStore builds the configured usage.Store backend. The
// postgres backend shares a single connection pool (held on a for
// Close to release) rather than opening one of its own, the way
// internal/dbpool was built to let Postgres-backed components share a
// pool instead of each holding a private one.
func (a *App) buildUsageStore(ctx context.Context, cfg relayconfig.UsageConfig) (usage.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return usage.NewMemoryStore(), nil
	case "postgres":
		pool, err := dbpool.NewSharedPool(cfg.PostgresURL, dbpool.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		a.pgPool = pool
		return usage.NewPostgresStoreWithDB(pool.DB())
	case "mongodb":
		return usage.NewMongoDBStore(ctx, cfg.MongoURL, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown usage store backend %q", cfg.Store)
	}
}

func parsePubkeys(policy relayconfig.SPLPaidTokensPolicy) ([]solana.PublicKey, error) {
	if policy.All {
		return nil, nil
	}
	out := make([]solana.PublicKey, 0, len(policy.Allowlist))
	for _, addr := range policy.Allowlist {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("relayer: invalid allowed SPL paid token %q: %w", addr, err)
		}
		out = append(out, pk)
	}
	return out, nil
}
