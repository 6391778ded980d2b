package relayconfig

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/kora-labs/relayer/internal/errors"
)

// SelectionStrategy names the rule the pool uses to pick a signer for
// a given request.
type SelectionStrategy string

const (
	StrategyRoundRobin SelectionStrategy = "round_robin"
	StrategyRandom     SelectionStrategy = "random"
	StrategyWeighted   SelectionStrategy = "weighted"
)

// SignerPoolSettings configures pool-wide behavior.
type SignerPoolSettings struct {
	Strategy SelectionStrategy `toml:"strategy"`
}

// SignerBackendKind names which HSM contract a signer entry implements.
type SignerBackendKind string

const (
	BackendMemory  SignerBackendKind = "memory"
	BackendTurnkey SignerBackendKind = "turnkey"
	BackendPrivy   SignerBackendKind = "privy"
	BackendVault   SignerBackendKind = "vault"
)

// SignerEntry is one `[[signers]]` table. Only the fields relevant to
// its Type are populated by the caller; the rest are ignored.
type SignerEntry struct {
	Name   string            `toml:"name"`
	Weight uint32            `toml:"weight"`
	Type   SignerBackendKind `toml:"type"`

	// Memory
	PrivateKeyEnv string `toml:"private_key_env"`

	// Turnkey
	APIPublicKeyEnv    string `toml:"api_public_key_env"`
	APIPrivateKeyEnv   string `toml:"api_private_key_env"`
	OrganizationIDEnv  string `toml:"organization_id_env"`
	PrivateKeyIDEnv    string `toml:"private_key_id_env"`
	PublicKeyEnv       string `toml:"public_key_env"`

	// Privy
	AppIDEnv     string `toml:"app_id_env"`
	AppSecretEnv string `toml:"app_secret_env"`
	WalletIDEnv  string `toml:"wallet_id_env"`

	// Vault
	AddrEnv    string `toml:"addr_env"`
	TokenEnv   string `toml:"token_env"`
	KeyNameEnv string `toml:"key_name_env"`
	PubkeyEnv  string `toml:"pubkey_env"`
}

// SignerPoolConfig is the root of the signer pool TOML document.
type SignerPoolConfig struct {
	SignerPool SignerPoolSettings `toml:"signer_pool"`
	Signers    []SignerEntry      `toml:"signers"`
}

// LoadSignerPoolConfig reads and validates a signer pool TOML file.
func LoadSignerPoolConfig(path string) (*SignerPoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidConfig("read signer pool config: %v", err)
	}

	var cfg SignerPoolConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.InvalidConfig("parse signer pool config toml: %v", err)
	}
	if cfg.SignerPool.Strategy == "" {
		cfg.SignerPool.Strategy = StrategyRoundRobin
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects an empty signer list, blank names, duplicate names,
// and blank *_env values for the fields each backend type requires.
func (c *SignerPoolConfig) Validate() error {
	if len(c.Signers) == 0 {
		return errors.InvalidConfig("at least one signer must be configured")
	}

	names := make(map[string]struct{}, len(c.Signers))
	for i, s := range c.Signers {
		if s.Name == "" {
			return errors.InvalidConfig("signer at index %d must have a non-empty name", i)
		}
		if _, dup := names[s.Name]; dup {
			return errors.InvalidConfig("duplicate signer name: %s", s.Name)
		}
		names[s.Name] = struct{}{}

		if err := s.validateEnvFields(); err != nil {
			return err
		}
	}

	switch c.SignerPool.Strategy {
	case StrategyRoundRobin, StrategyRandom, StrategyWeighted:
	default:
		return errors.InvalidConfig("signer_pool.strategy must be one of round_robin, random, weighted")
	}

	return nil
}

func (s SignerEntry) validateEnvFields() error {
	required := map[SignerBackendKind][]struct {
		field string
		value string
	}{
		BackendMemory: {{"private_key_env", s.PrivateKeyEnv}},
		BackendTurnkey: {
			{"api_public_key_env", s.APIPublicKeyEnv},
			{"api_private_key_env", s.APIPrivateKeyEnv},
			{"organization_id_env", s.OrganizationIDEnv},
			{"private_key_id_env", s.PrivateKeyIDEnv},
			{"public_key_env", s.PublicKeyEnv},
		},
		BackendPrivy: {
			{"app_id_env", s.AppIDEnv},
			{"app_secret_env", s.AppSecretEnv},
			{"wallet_id_env", s.WalletIDEnv},
		},
		BackendVault: {
			{"addr_env", s.AddrEnv},
			{"token_env", s.TokenEnv},
			{"key_name_env", s.KeyNameEnv},
			{"pubkey_env", s.PubkeyEnv},
		},
	}

	fields, known := required[s.Type]
	if !known {
		return errors.InvalidConfig("signer %q has unknown type %q", s.Name, s.Type)
	}
	for _, f := range fields {
		if f.value == "" {
			return errors.InvalidConfig("signer %q is missing %s", s.Name, f.field)
		}
	}
	return nil
}

// ResolveEnv returns the value of the named environment variable,
// failing with a message naming both the signer and the variable —
// private key material should never appear in the error itself.
func ResolveEnv(signerName, envVar string) (string, error) {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return "", errors.InvalidConfig("signer %q: environment variable %s is not set", signerName, envVar)
	}
	return v, nil
}
