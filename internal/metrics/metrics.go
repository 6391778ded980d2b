// Package metrics exposes Prometheus counters and histograms for the
// relayer's internal pipeline. There is no HTTP endpoint exporting
// these in this module; a host process wires the registry to one.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the relayer pipeline emits.
type Metrics struct {
	// Validation (C4)
	ValidationFailuresTotal *prometheus.CounterVec
	ValidationDuration      prometheus.Histogram

	// Fee engine (C3)
	FeeComputeDuration prometheus.Histogram
	FeeLamportsTotal   *prometheus.CounterVec

	// Bundle processor (C7)
	BundleSizeTotal      prometheus.Histogram
	BundleOutcomesTotal  *prometheus.CounterVec
	BundleProcessDuration prometheus.Histogram

	// Signer pool (C6)
	SignerDispatchDuration *prometheus.HistogramVec
	SignerFailuresTotal    *prometheus.CounterVec

	// Oracle client (C8)
	OracleQuoteDuration *prometheus.HistogramVec
	OracleQuoteCacheHitTotal *prometheus.CounterVec

	// Usage tracker (C9)
	UsageRejectionsTotal prometheus.Counter

	// Chain RPC calls
	RPCCallsTotal   *prometheus.CounterVec
	RPCCallDuration *prometheus.HistogramVec
	RPCErrorsTotal  *prometheus.CounterVec

	// Usage tracker store backends
	DBQueryDuration *prometheus.HistogramVec
}

// New creates and registers every relayer metric against registry. A
// nil registry falls back to the global default registerer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_validation_failures_total",
				Help: "Total number of validator rejections by error code",
			},
			[]string{"code"},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kora_validation_duration_seconds",
				Help:    "Time taken to run the validator over a resolved transaction",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),

		FeeComputeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kora_fee_compute_duration_seconds",
				Help:    "Time taken to compute a transaction's total lamport fee",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
		),
		FeeLamportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_fee_lamports_total",
				Help: "Total lamports composed into fees, by price model",
			},
			[]string{"price_model"},
		),

		BundleSizeTotal: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kora_bundle_size_transactions",
				Help:    "Number of transactions per processed bundle",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		BundleOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_bundle_outcomes_total",
				Help: "Total bundles processed, by outcome",
			},
			[]string{"outcome"}, // success, insufficient_payment, validation_failed, rpc_error
		),
		BundleProcessDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kora_bundle_process_duration_seconds",
				Help:    "End-to-end time to process a bundle across all three phases",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),

		SignerDispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kora_signer_dispatch_duration_seconds",
				Help:    "Time taken for a signer backend to produce a signature",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"backend"},
		),
		SignerFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_signer_failures_total",
				Help: "Total signing failures by backend",
			},
			[]string{"backend"},
		),

		OracleQuoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kora_oracle_quote_duration_seconds",
				Help:    "Time taken to obtain a token-to-lamport quote",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"source"}, // mock, external, fixed
		),
		OracleQuoteCacheHitTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_oracle_quote_cache_hits_total",
				Help: "Total oracle quote cache lookups, by hit or miss",
			},
			[]string{"result"},
		),

		UsageRejectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kora_usage_rejections_total",
				Help: "Total requests rejected for exceeding the per-user usage cap",
			},
		),

		RPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_rpc_calls_total",
				Help: "Total number of RPC calls to the chain",
			},
			[]string{"method"},
		),
		RPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kora_rpc_call_duration_seconds",
				Help:    "Duration of RPC calls to the chain",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
		RPCErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kora_rpc_errors_total",
				Help: "Total number of RPC errors",
			},
			[]string{"method", "error_type"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kora_usage_store_query_duration_seconds",
				Help:    "Usage tracker store query duration",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation", "backend"},
		),
	}
}

// ObserveValidationFailure records a validator rejection by error code.
func (m *Metrics) ObserveValidationFailure(code string) {
	m.ValidationFailuresTotal.WithLabelValues(code).Inc()
}

// ObserveFee records a computed fee's composition time and amount.
func (m *Metrics) ObserveFee(priceModel string, duration time.Duration, lamports uint64) {
	m.FeeComputeDuration.Observe(duration.Seconds())
	m.FeeLamportsTotal.WithLabelValues(priceModel).Add(float64(lamports))
}

// ObserveBundle records a completed bundle's size, outcome and duration.
func (m *Metrics) ObserveBundle(size int, outcome string, duration time.Duration) {
	m.BundleSizeTotal.Observe(float64(size))
	m.BundleOutcomesTotal.WithLabelValues(outcome).Inc()
	m.BundleProcessDuration.Observe(duration.Seconds())
}

// ObserveSignerDispatch records a signer backend's latency and whether it failed.
func (m *Metrics) ObserveSignerDispatch(backend string, duration time.Duration, err error) {
	m.SignerDispatchDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		m.SignerFailuresTotal.WithLabelValues(backend).Inc()
	}
}

// ObserveOracleQuote records an oracle lookup's latency and cache result.
func (m *Metrics) ObserveOracleQuote(source string, duration time.Duration, cacheHit bool) {
	m.OracleQuoteDuration.WithLabelValues(source).Observe(duration.Seconds())
	result := "miss"
	if cacheHit {
		result = "hit"
	}
	m.OracleQuoteCacheHitTotal.WithLabelValues(result).Inc()
}

// ObserveUsageRejection records a usage-cap rejection.
func (m *Metrics) ObserveUsageRejection() {
	m.UsageRejectionsTotal.Inc()
}

// ObserveRPCCall records an RPC call to the chain and categorizes any error.
func (m *Metrics) ObserveRPCCall(method string, duration time.Duration, err error) {
	m.RPCCallsTotal.WithLabelValues(method).Inc()
	m.RPCCallDuration.WithLabelValues(method).Observe(duration.Seconds())

	if err != nil {
		m.RPCErrorsTotal.WithLabelValues(method, classifyRPCError(err)).Inc()
	}
}

// ObserveDBQuery records a usage store query's duration.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func classifyRPCError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "rate limit"):
		return "rate_limit"
	case strings.Contains(msg, "connection"):
		return "connection"
	case strings.Contains(msg, "not found"):
		return "not_found"
	default:
		return "other"
	}
}
