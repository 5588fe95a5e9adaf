// Package hangarerr defines the tagged error type used across the registry.
package hangarerr

import (
	"fmt"
	"strings"
)

// Code identifies a category from the error taxonomy.
type Code string

const (
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeCannotStartProvider    Code = "CANNOT_START_PROVIDER"
	CodeProviderStartError     Code = "PROVIDER_START_ERROR"
	CodeToolNotFound           Code = "TOOL_NOT_FOUND"
	CodeToolInvocationError    Code = "TOOL_INVOCATION_ERROR"
	CodeTimeout                Code = "TIMEOUT_ERROR"
	CodeProviderNotFound       Code = "PROVIDER_NOT_FOUND"
	CodeCircuitBreakerOpen     Code = "CIRCUIT_BREAKER_OPEN"
	CodeRateLimitExceeded      Code = "RATE_LIMIT_EXCEEDED"
	CodeValidationError        Code = "VALIDATION_ERROR"
	CodeClientDead             Code = "CLIENT_DEAD"
	CodeNoHandler              Code = "NO_HANDLER"
	CodeCancelled              Code = "CANCELLATION_ERROR"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// Error is the registry's single tagged error type. It carries a taxonomy
// code, structured context for logging, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if len(e.Context) > 0 {
		var ctx []string
		for k, v := range e.Context {
			ctx = append(ctx, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctx, ", ")))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes Cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Context: make(map[string]any)}
}

// WithContext attaches a structured field and returns the receiver for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code Code) bool {
	var e *Error
	if err == nil {
		return false
	}
	if he, ok := err.(*Error); ok {
		e = he
	} else {
		return false
	}
	return e.Code == code
}

// GetCode returns the taxonomy code of err, or "" if err is not an *Error.
func GetCode(err error) Code {
	if he, ok := err.(*Error); ok {
		return he.Code
	}
	return ""
}

// errorTypeNames maps each taxonomy code to the CamelCase error_type name
// reported in batch results, matching the names used for immediate
// pre-invocation failures (ProviderNotFoundError, CircuitBreakerOpen,
// TimeoutError, CancellationError, ...).
var errorTypeNames = map[Code]string{
	CodeInvalidStateTransition: "InvalidStateTransitionError",
	CodeCannotStartProvider:    "ProviderStartError",
	CodeProviderStartError:     "ProviderStartError",
	CodeToolNotFound:           "ToolNotFoundError",
	CodeToolInvocationError:    "ToolInvocationError",
	CodeTimeout:                "TimeoutError",
	CodeProviderNotFound:       "ProviderNotFoundError",
	CodeCircuitBreakerOpen:     "CircuitBreakerOpen",
	CodeRateLimitExceeded:      "RateLimitExceededError",
	CodeValidationError:        "ValidationError",
	CodeClientDead:             "ClientDeadError",
	CodeNoHandler:              "NoHandlerError",
	CodeCancelled:              "CancellationError",
	CodeInternal:               "InternalError",
}

// ErrorTypeName returns the CamelCase error_type name for err, falling
// back to its taxonomy code (or "UnknownError" for a non-taxonomy err)
// if no mapping is registered.
func ErrorTypeName(err error) string {
	code := GetCode(err)
	if name, ok := errorTypeNames[code]; ok {
		return name
	}
	if code == "" {
		return "UnknownError"
	}
	return string(code)
}

// Constructors for each taxonomy code.

func ErrInvalidStateTransition(providerID, from, to string) *Error {
	return New(CodeInvalidStateTransition, fmt.Sprintf("invalid transition %s -> %s", from, to)).
		WithContext("provider_id", providerID).
		WithContext("from", from).
		WithContext("to", to)
}

func ErrCannotStartProvider(providerID string, retryIn float64) *Error {
	return New(CodeCannotStartProvider, "provider is backing off, not ready to start").
		WithContext("provider_id", providerID).
		WithContext("retry_in", retryIn)
}

func ErrProviderStartError(providerID string, cause error) *Error {
	return New(CodeProviderStartError, fmt.Sprintf("provider %q failed to start", providerID)).
		WithContext("provider_id", providerID).
		WithCause(cause)
}

func ErrToolNotFound(providerID, toolName string) *Error {
	return New(CodeToolNotFound, fmt.Sprintf("tool %q not found on provider %q", toolName, providerID)).
		WithContext("provider_id", providerID).
		WithContext("tool_name", toolName)
}

func ErrToolInvocationError(providerID, toolName string, cause error) *Error {
	return New(CodeToolInvocationError, fmt.Sprintf("tool %q invocation failed", toolName)).
		WithContext("provider_id", providerID).
		WithContext("tool_name", toolName).
		WithCause(cause)
}

func ErrTimeout(providerID string, timeoutS float64) *Error {
	return New(CodeTimeout, "operation exceeded its deadline").
		WithContext("provider_id", providerID).
		WithContext("timeout_s", timeoutS)
}

func ErrProviderNotFound(providerID string) *Error {
	return New(CodeProviderNotFound, fmt.Sprintf("provider %q not found", providerID)).
		WithContext("provider_id", providerID)
}

func ErrCircuitBreakerOpen(providerID string, consecutiveFailures int) *Error {
	return New(CodeCircuitBreakerOpen, fmt.Sprintf("provider %q circuit breaker is open", providerID)).
		WithContext("provider_id", providerID).
		WithContext("consecutive_failures", consecutiveFailures)
}

func ErrRateLimitExceeded(key string, limit int, windowS float64) *Error {
	return New(CodeRateLimitExceeded, fmt.Sprintf("rate limit exceeded for %q", key)).
		WithContext("key", key).
		WithContext("limit", limit).
		WithContext("window_s", windowS)
}

func ErrValidationError(field, message string) *Error {
	return New(CodeValidationError, message).
		WithContext("field", field)
}

func ErrClientDead(providerID string) *Error {
	return New(CodeClientDead, "rpc client reader terminated").
		WithContext("provider_id", providerID)
}

func ErrNoHandler(commandType string) *Error {
	return New(CodeNoHandler, fmt.Sprintf("no handler registered for %q", commandType)).
		WithContext("command_type", commandType)
}

func ErrCancelled(reason string) *Error {
	return New(CodeCancelled, "call was cancelled").
		WithContext("reason", reason)
}
