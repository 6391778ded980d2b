package relayconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the operator configuration from a YAML file and applies
// environment overrides, the way the teacher's own config loader works:
// defaults, then file, then environment, then validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		RPC: RPCConfig{
			URL:        "https://api.mainnet-beta.solana.com",
			Commitment: "confirmed",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Validation: ValidationConfig{
			MaxAllowedLamports: 1_000_000_000,
			MaxSignatures:      10,
			PriceSource:        PriceSourceMock,
			Price: PriceModel{
				Kind: PriceModelMargin,
			},
		},
		Usage: UsageConfig{
			Window:       Duration{Duration: time.Hour},
			MaxPerWindow: 0, // 0 == unlimited
			Store:        "memory",
		},
		Oracle: OracleConfig{
			QuoteTTL:     Duration{Duration: 30 * time.Second},
			MockLamports: 1,
		},
		Monitoring: MonitoringConfig{
			BalancePollInterval:         Duration{Duration: 15 * time.Minute},
			LowBalanceThresholdLamports: 10_000_000, // 0.01 SOL
			Timeout:                     Duration{Duration: 10 * time.Second},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			ConsecutiveFailures: 5,
			Timeout:             Duration{Duration: 30 * time.Second},
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open operator config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read operator config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse operator config yaml: %w", err)
	}
	return nil
}
