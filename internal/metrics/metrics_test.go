package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}

	checks := map[string]bool{
		"ValidationFailuresTotal":  m.ValidationFailuresTotal == nil,
		"ValidationDuration":       m.ValidationDuration == nil,
		"FeeComputeDuration":       m.FeeComputeDuration == nil,
		"FeeLamportsTotal":         m.FeeLamportsTotal == nil,
		"BundleSizeTotal":          m.BundleSizeTotal == nil,
		"BundleOutcomesTotal":      m.BundleOutcomesTotal == nil,
		"BundleProcessDuration":    m.BundleProcessDuration == nil,
		"SignerDispatchDuration":   m.SignerDispatchDuration == nil,
		"SignerFailuresTotal":      m.SignerFailuresTotal == nil,
		"OracleQuoteDuration":      m.OracleQuoteDuration == nil,
		"OracleQuoteCacheHitTotal": m.OracleQuoteCacheHitTotal == nil,
		"UsageRejectionsTotal":     m.UsageRejectionsTotal == nil,
		"RPCCallsTotal":            m.RPCCallsTotal == nil,
		"RPCCallDuration":          m.RPCCallDuration == nil,
		"RPCErrorsTotal":           m.RPCErrorsTotal == nil,
		"DBQueryDuration":          m.DBQueryDuration == nil,
	}
	for name, isNil := range checks {
		if isNil {
			t.Errorf("%s should be initialized", name)
		}
	}
}

func TestObserveValidationFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveValidationFailure("validation_error")
	m.ObserveValidationFailure("validation_error")

	count := promtest.ToFloat64(m.ValidationFailuresTotal.WithLabelValues("validation_error"))
	if count != 2 {
		t.Errorf("expected 2 validation failures, got %.0f", count)
	}
}

func TestObserveFee(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveFee("margin", 5*time.Millisecond, 5000)
	m.ObserveFee("margin", 5*time.Millisecond, 3000)

	total := promtest.ToFloat64(m.FeeLamportsTotal.WithLabelValues("margin"))
	if total != 8000 {
		t.Errorf("expected 8000 total fee lamports, got %.0f", total)
	}
}

func TestObserveBundle(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveBundle(4, "success", 120*time.Millisecond)

	outcomes := promtest.ToFloat64(m.BundleOutcomesTotal.WithLabelValues("success"))
	if outcomes != 1 {
		t.Errorf("expected 1 successful bundle outcome, got %.0f", outcomes)
	}
}

func TestObserveSignerDispatch(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		err         error
		wantFailure float64
	}{
		{name: "success", backend: "memory", err: nil, wantFailure: 0},
		{name: "failure", backend: "turnkey", err: errors.New("hsm unreachable"), wantFailure: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			m := New(registry)

			m.ObserveSignerDispatch(tt.backend, 10*time.Millisecond, tt.err)

			failures := promtest.ToFloat64(m.SignerFailuresTotal.WithLabelValues(tt.backend))
			if failures != tt.wantFailure {
				t.Errorf("expected %.0f signer failures, got %.0f", tt.wantFailure, failures)
			}
		})
	}
}

func TestObserveOracleQuote(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveOracleQuote("external", 15*time.Millisecond, false)
	m.ObserveOracleQuote("external", 1*time.Millisecond, true)

	misses := promtest.ToFloat64(m.OracleQuoteCacheHitTotal.WithLabelValues("miss"))
	hits := promtest.ToFloat64(m.OracleQuoteCacheHitTotal.WithLabelValues("hit"))
	if misses != 1 {
		t.Errorf("expected 1 cache miss, got %.0f", misses)
	}
	if hits != 1 {
		t.Errorf("expected 1 cache hit, got %.0f", hits)
	}
}

func TestObserveUsageRejection(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveUsageRejection()
	m.ObserveUsageRejection()

	count := promtest.ToFloat64(m.UsageRejectionsTotal)
	if count != 2 {
		t.Errorf("expected 2 usage rejections, got %.0f", count)
	}
}

func TestObserveRPCCall(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		duration   time.Duration
		err        error
		wantCalls  float64
		wantErrors float64
		errType    string
	}{
		{
			name:      "successful call",
			method:    "getTransaction",
			duration:  100 * time.Millisecond,
			err:       nil,
			wantCalls: 1,
		},
		{
			name:       "connection error",
			method:     "getTransaction",
			duration:   100 * time.Millisecond,
			err:        errors.New("connection reset"),
			wantCalls:  1,
			wantErrors: 1,
			errType:    "connection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			m := New(registry)

			m.ObserveRPCCall(tt.method, tt.duration, tt.err)

			calls := promtest.ToFloat64(m.RPCCallsTotal.WithLabelValues(tt.method))
			if calls != tt.wantCalls {
				t.Errorf("expected %.0f RPC calls, got %.0f", tt.wantCalls, calls)
			}

			if tt.err != nil {
				errs := promtest.ToFloat64(m.RPCErrorsTotal.WithLabelValues(tt.method, tt.errType))
				if errs != tt.wantErrors {
					t.Errorf("expected %.0f RPC errors, got %.0f", tt.wantErrors, errs)
				}
			}
		})
	}
}

func TestObserveDBQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveDBQuery("increment_counter", "postgres", 5*time.Millisecond)

	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration should be initialized")
	}
}
