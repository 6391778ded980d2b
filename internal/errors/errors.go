// Package errors defines the relayer's semantic error taxonomy. Every
// stage returns one of these codes rather than an ad-hoc error string,
// so callers (the bundle processor, an eventual RPC transport) can
// branch on Code without parsing messages.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable taxonomy identifier.
type Code string

const (
	CodeValidation               Code = "validation_error"
	CodeSimulationFailed         Code = "simulation_failed"
	CodeRPC                      Code = "rpc_error"
	CodeOracle                   Code = "oracle_error"
	CodeSigner                   Code = "signer_error"
	CodeCache                    Code = "cache_error"
	CodeUsageLimitExceeded       Code = "usage_limit_exceeded"
	CodeInsufficientBundlePayment Code = "insufficient_bundle_payment"
	CodeInvalidConfig            Code = "invalid_config"
)

// IsRetryable reports whether a caller might reasonably retry the
// operation that produced this code unchanged (i.e. it's not a policy
// rejection).
func (c Code) IsRetryable() bool {
	switch c {
	case CodeRPC, CodeOracle, CodeCache:
		return true
	default:
		return false
	}
}

// RelayError is the concrete error type returned by every component.
type RelayError struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *RelayError) Error() string {
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.cause
}

func newErr(code Code, format string, args ...any) *RelayError {
	return &RelayError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a ValidationError.
func Validation(format string, args ...any) *RelayError {
	return newErr(CodeValidation, format, args...)
}

// SimulationFailed builds a SimulationFailed error carrying the terse
// chain error string plus the simulation log lines.
func SimulationFailed(terse string, logs []string) *RelayError {
	e := newErr(CodeSimulationFailed, "transaction simulation failed: %s", terse)
	e.Details = map[string]any{"logs": logs}
	return e
}

// RPC wraps a transport or response-decode failure against the chain RPC.
func RPC(cause error, format string, args ...any) *RelayError {
	e := newErr(CodeRPC, format, args...)
	e.cause = cause
	return e
}

// Oracle builds an OracleError.
func Oracle(cause error, format string, args ...any) *RelayError {
	e := newErr(CodeOracle, format, args...)
	e.cause = cause
	return e
}

// Signer builds a SignerError.
func Signer(cause error, format string, args ...any) *RelayError {
	e := newErr(CodeSigner, format, args...)
	e.cause = cause
	return e
}

// Cache builds a CacheError.
func Cache(cause error, format string, args ...any) *RelayError {
	e := newErr(CodeCache, format, args...)
	e.cause = cause
	return e
}

// UsageLimitExceeded builds a UsageLimitExceeded error.
func UsageLimitExceeded(userID string, limit uint64) *RelayError {
	e := newErr(CodeUsageLimitExceeded, "usage limit exceeded for %s: limit %d per window", userID, limit)
	e.Details = map[string]any{"user_id": userID, "limit": limit}
	return e
}

// InsufficientBundlePayment builds a bundle-scope payment shortfall
// error. The message contains both numbers verbatim, per the testable
// property that downstream assertions grep for them.
func InsufficientBundlePayment(required, actual uint64) *RelayError {
	e := newErr(CodeInsufficientBundlePayment,
		"insufficient bundle payment: required %d lamports, got %d lamports", required, actual)
	e.Details = map[string]any{"required": required, "actual": actual}
	return e
}

// InvalidConfig builds a startup-time configuration error.
func InvalidConfig(format string, args ...any) *RelayError {
	return newErr(CodeInvalidConfig, format, args...)
}

// CodeOf extracts the taxonomy code from err, or "" if err is nil or
// not a *RelayError.
func CodeOf(err error) Code {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// Is reports whether err is a *RelayError carrying the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
