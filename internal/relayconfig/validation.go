package relayconfig

import (
	"strings"

	"github.com/kora-labs/relayer/internal/errors"
)

// Validate checks the operator configuration for internal consistency,
// collecting every problem rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.RPC.URL == "" {
		problems = append(problems, "rpc.url must not be empty")
	}
	if c.Validation.MaxSignatures == 0 {
		problems = append(problems, "validation.max_signatures must be positive")
	}
	if c.Validation.MaxAllowedLamports == 0 {
		problems = append(problems, "validation.max_allowed_lamports must be positive")
	}
	switch c.Validation.PriceSource {
	case PriceSourceMock, PriceSourceExternal, PriceSourceFixed:
	default:
		problems = append(problems, "validation.price_source must be one of mock, external, fixed")
	}
	switch c.Validation.Price.Kind {
	case PriceModelFree, PriceModelFixed, PriceModelMargin:
	default:
		problems = append(problems, "validation.price.model must be one of free, fixed, margin")
	}
	if c.Validation.Price.Kind == PriceModelMargin && c.Validation.Price.Margin < 0 {
		problems = append(problems, "validation.price.margin must be non-negative")
	}
	switch c.Usage.Store {
	case "", "memory", "postgres", "mongodb":
	default:
		problems = append(problems, "usage.store must be one of memory, postgres, mongodb")
	}
	if c.Usage.Store == "postgres" && c.Usage.PostgresURL == "" {
		problems = append(problems, "usage.postgres_url must be set when usage.store is postgres")
	}
	if c.Usage.Store == "mongodb" && (c.Usage.MongoURL == "" || c.Usage.MongoDB == "") {
		problems = append(problems, "usage.mongodb_url and usage.mongodb_database must be set when usage.store is mongodb")
	}
	if c.Validation.PriceSource == PriceSourceExternal && c.Oracle.QuoteEndpoint == "" {
		problems = append(problems, "oracle.quote_endpoint must be set when validation.price_source is external")
	}

	if len(problems) > 0 {
		return errors.InvalidConfig("invalid operator configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
