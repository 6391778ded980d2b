package relayconfig

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides applies environment variable overrides to the
// config. Environment variables take precedence over the YAML file.
// All env vars use the KORA_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	setIfEnv(&c.RPC.URL, "KORA_RPC_URL")
	setIfEnv(&c.RPC.Commitment, "KORA_RPC_COMMITMENT")

	setIfEnv(&c.Logging.Level, "KORA_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "KORA_LOG_FORMAT")

	setUint64IfEnv(&c.Validation.MaxAllowedLamports, "KORA_MAX_ALLOWED_LAMPORTS")
	setUint64IfEnv(&c.Validation.MaxSignatures, "KORA_MAX_SIGNATURES")

	setIfEnv(&c.Kora.PaymentAddress, "KORA_PAYMENT_ADDRESS")

	setIfEnv(&c.Usage.Store, "KORA_USAGE_STORE")
	setIfEnv(&c.Usage.PostgresURL, "KORA_USAGE_POSTGRES_URL")
	setIfEnv(&c.Usage.MongoURL, "KORA_USAGE_MONGODB_URL")
	setIfEnv(&c.Usage.MongoDB, "KORA_USAGE_MONGODB_DATABASE")

	setIfEnv(&c.Oracle.QuoteEndpoint, "KORA_ORACLE_QUOTE_ENDPOINT")

	setIfEnv(&c.Monitoring.LowBalanceAlertURL, "KORA_LOW_BALANCE_ALERT_URL")
}

func setIfEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setUint64IfEnv(dst *uint64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return
	}
	*dst = parsed
}
