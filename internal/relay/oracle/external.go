package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/cacheutil"
	"github.com/kora-labs/relayer/internal/circuitbreaker"
	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/httputil"
	"github.com/kora-labs/relayer/internal/relayconfig"
)

// probeAmount is the input amount quoted to derive a mint's
// lamports-per-unit rate. Real quote endpoints price by amount (to
// reflect slippage), but at this probe size the rate is effectively
// linear, so one quote per mint is cached and reused for every
// requested amount instead of issuing a fresh HTTPS call per amount.
const probeAmount uint64 = 1_000_000_000

// External queries an HTTPS quote endpoint for a mint's exchange rate
// against SOL, caching the derived rate per mint for a configured TTL
// so a rate-limited upstream only ever sees one request per mint per
// TTL window. A cache miss performs exactly one HTTPS GET — no
// implicit retry on top of it.
type External struct {
	endpoint   string
	httpClient *http.Client
	breaker    *circuitbreaker.Manager
	rates      *cacheutil.Keyed[solana.PublicKey, float64]
}

// NewExternal builds an External oracle from cfg, wrapping every quote
// request in breakers' oracle circuit. cfg.QuoteEndpoint must be set;
// callers are expected to have already enforced this via
// relayconfig.Config.Validate.
func NewExternal(cfg relayconfig.OracleConfig, breakers *circuitbreaker.Manager) (*External, error) {
	if cfg.QuoteEndpoint == "" {
		return nil, errors.InvalidConfig("oracle: quote_endpoint must be set for the external price source")
	}
	ttl := cfg.QuoteTTL.Duration
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	rates, err := cacheutil.NewKeyed[solana.PublicKey, float64](1024, ttl)
	if err != nil {
		return nil, errors.InvalidConfig("oracle: build quote cache: %v", err)
	}
	return &External{
		endpoint:   cfg.QuoteEndpoint,
		httpClient: httputil.NewClient(10 * time.Second),
		breaker:    breakers,
		rates:      rates,
	}, nil
}

func (e *External) ToLamports(ctx context.Context, mint solana.PublicKey, amount uint64) (uint64, error) {
	rate, err := e.rateFor(ctx, mint)
	if err != nil {
		return 0, err
	}
	return uint64(rate * float64(amount)), nil
}

func (e *External) ToMintUnits(ctx context.Context, mint solana.PublicKey, lamports uint64) (float64, error) {
	rate, err := e.rateFor(ctx, mint)
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, nil
	}
	return float64(lamports) / rate, nil
}

// rateFor returns mint's cached lamports-per-unit rate, fetching and
// caching a fresh quote on a miss.
func (e *External) rateFor(ctx context.Context, mint solana.PublicKey) (float64, error) {
	return e.rates.Get(mint, func() (float64, error) {
		out, err := e.breaker.Execute(circuitbreaker.ServiceOracle, func() (interface{}, error) {
			return e.fetchQuote(ctx, mint)
		})
		if err != nil {
			return 0, errors.Oracle(err, "quote mint %s", mint)
		}
		return out.(float64), nil
	})
}

// fetchQuote performs one HTTPS GET against the quote endpoint, asking
// for the lamport value of probeAmount units of mint, and returns the
// resulting lamports-per-unit rate.
func (e *External) fetchQuote(ctx context.Context, mint solana.PublicKey) (float64, error) {
	q := url.Values{}
	q.Set("input_mint", mint.String())
	q.Set("output_mint", solana.SolMint.String())
	q.Set("amount", strconv.FormatUint(probeAmount, 10))

	reqURL := fmt.Sprintf("%s?%s", e.endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode)
	}

	var quote struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("decode quote response: %w", err)
	}

	outLamports, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quote out_amount %q: %w", quote.OutAmount, err)
	}

	return float64(outLamports) / float64(probeAmount), nil
}
