// Package relayconfig holds the two independent typed configuration
// documents the relayer core consumes: the operator's YAML policy
// document and the signer pool's TOML document. Neither loader wires
// up flags, environment discovery of the file path itself, or a CLI —
// the host binary owns that, passing the YAML path to Load and the
// TOML path to LoadSignerPoolConfig.
package relayconfig

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding,
// e.g. "15s", "5m", or a bare number interpreted as seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		d.Duration = parsed
		return nil
	}
	secs, err := time.ParseDuration(raw + "s")
	if err != nil {
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	d.Duration = secs
	return nil
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// PriceSource selects where the fee engine and payment detector get
// lamport-equivalent quotes from.
type PriceSource string

const (
	PriceSourceMock     PriceSource = "mock"
	PriceSourceExternal PriceSource = "external"
	PriceSourceFixed    PriceSource = "fixed"
)

// PriceModelKind selects the overlay applied to a composed fee.
type PriceModelKind string

const (
	PriceModelFree   PriceModelKind = "free"
	PriceModelFixed  PriceModelKind = "fixed"
	PriceModelMargin PriceModelKind = "margin"
)

// PriceModel is the operator's policy for turning the composed lamport
// fee into the amount the user is actually charged.
type PriceModel struct {
	Kind   PriceModelKind `yaml:"model"`
	Amount uint64         `yaml:"amount"` // lamports, Fixed only
	Token  string         `yaml:"token"`  // display token, Fixed only
	Margin float64        `yaml:"margin"` // fraction, Margin only
}

// SPLPaidTokensPolicy controls which mints may be used to pay the relayer.
type SPLPaidTokensPolicy struct {
	All       bool     `yaml:"all"`
	Allowlist []string `yaml:"allowlist"`
}

// Allows reports whether mint is an acceptable payment token under this policy.
func (p SPLPaidTokensPolicy) Allows(mint string) bool {
	if p.All {
		return true
	}
	for _, m := range p.Allowlist {
		if m == mint {
			return true
		}
	}
	return false
}

// FeePayerPolicy is the fixed set of seven booleans gating what the
// fee-payer account may appear as inside a user's transaction.
type FeePayerPolicy struct {
	AllowSOLTransfers        bool `yaml:"allow_sol_transfers"`
	AllowAssign              bool `yaml:"allow_assign"`
	AllowSPLTransfers        bool `yaml:"allow_spl_transfers"`
	AllowToken2022Transfers  bool `yaml:"allow_token2022_transfers"`
	AllowApprove             bool `yaml:"allow_approve"`
	AllowBurn                bool `yaml:"allow_burn"`
	AllowCloseAccount        bool `yaml:"allow_close_account"`
}

// Token2022Policy names which Token-2022 extensions disqualify a mint
// or account from being used as a fee-payment vehicle.
type Token2022Policy struct {
	BlockedMintExtensions    []string `yaml:"blocked_mint_extensions"`
	BlockedAccountExtensions []string `yaml:"blocked_account_extensions"`
}

func containsExtension(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// BlocksMintExtension reports whether the named mint extension is disallowed.
func (p Token2022Policy) BlocksMintExtension(name string) bool {
	return containsExtension(p.BlockedMintExtensions, name)
}

// BlocksAccountExtension reports whether the named account extension is disallowed.
func (p Token2022Policy) BlocksAccountExtension(name string) bool {
	return containsExtension(p.BlockedAccountExtensions, name)
}

// ValidationConfig is the request-path policy enforced by the validator,
// fee engine, and payment detector.
type ValidationConfig struct {
	MaxAllowedLamports    uint64              `yaml:"max_allowed_lamports"`
	MaxSignatures         uint64              `yaml:"max_signatures"`
	AllowedPrograms       []string            `yaml:"allowed_programs"`
	AllowedTokens         []string            `yaml:"allowed_tokens"`
	AllowedSPLPaidTokens  SPLPaidTokensPolicy `yaml:"allowed_spl_paid_tokens"`
	DisallowedAccounts    []string            `yaml:"disallowed_accounts"`
	PriceSource           PriceSource         `yaml:"price_source"`
	Price                 PriceModel          `yaml:"price"`
	FeePayerPolicy        FeePayerPolicy      `yaml:"fee_payer_policy"`
	Token2022             Token2022Policy     `yaml:"token_2022"`
}

// KoraConfig holds relayer-identity level settings.
type KoraConfig struct {
	RateLimit      int             `yaml:"rate_limit"`
	PaymentAddress string          `yaml:"payment_address"`
	EnabledMethods map[string]bool `yaml:"enabled_methods"`
}

// UsageConfig configures the usage tracker (C9).
type UsageConfig struct {
	Window       Duration `yaml:"window"`
	MaxPerWindow uint64   `yaml:"max_per_window"`
	Store        string   `yaml:"store"` // memory | postgres | mongodb
	PostgresURL  string   `yaml:"postgres_url"`
	MongoURL     string   `yaml:"mongodb_url"`
	MongoDB      string   `yaml:"mongodb_database"`
}

// OracleConfig configures the oracle client (C8).
type OracleConfig struct {
	QuoteTTL      Duration `yaml:"quote_ttl"`
	QuoteEndpoint string   `yaml:"quote_endpoint"`
	MockLamports  uint64   `yaml:"mock_lamports_per_unit"`
}

// MonitoringConfig configures the ambient fee-payer balance monitor.
type MonitoringConfig struct {
	BalancePollInterval         Duration          `yaml:"balance_poll_interval"`
	LowBalanceThresholdLamports uint64            `yaml:"low_balance_threshold_lamports"`
	LowBalanceAlertURL          string            `yaml:"low_balance_alert_url"`
	Headers                     map[string]string `yaml:"headers"`
	BodyTemplate                string            `yaml:"body_template"`
	Timeout                     Duration          `yaml:"timeout"`
}

// LoggingConfig configures the ambient logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CircuitBreakerConfig configures the breaker manager for each external service.
type CircuitBreakerConfig struct {
	Enabled             bool     `yaml:"enabled"`
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"`
	Timeout             Duration `yaml:"timeout"`
}

// RPCConfig holds the chain RPC endpoint and commitment level.
type RPCConfig struct {
	URL        string `yaml:"url"`
	Commitment string `yaml:"commitment"`
}

// Config is the full operator configuration document (YAML).
type Config struct {
	RPC            RPCConfig            `yaml:"rpc"`
	Logging        LoggingConfig        `yaml:"logging"`
	Validation     ValidationConfig     `yaml:"validation"`
	Kora           KoraConfig           `yaml:"kora"`
	Usage          UsageConfig          `yaml:"usage"`
	Oracle         OracleConfig         `yaml:"oracle"`
	Monitoring     MonitoringConfig     `yaml:"monitoring"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}
