// Package events defines the domain event variants emitted by the
// provider aggregate and the batch executor.
package events

import "time"

// Event is implemented by every concrete event variant. Tag-dispatched
// subscribers switch on the concrete type, not on a string discriminator.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

type base struct {
	At time.Time
}

func (b base) OccurredAt() time.Time { return b.At }

func newBase() base { return base{At: time.Now()} }

type ProviderStarted struct {
	base
	ProviderID       string
	Mode             string
	ToolsCount       int
	StartupDurationMs float64
}

func (ProviderStarted) EventName() string { return "ProviderStarted" }

func NewProviderStarted(providerID, mode string, toolsCount int, startupDurationMs float64) ProviderStarted {
	return ProviderStarted{base: newBase(), ProviderID: providerID, Mode: mode, ToolsCount: toolsCount, StartupDurationMs: startupDurationMs}
}

type ProviderStopped struct {
	base
	ProviderID string
	Reason     string
}

func (ProviderStopped) EventName() string { return "ProviderStopped" }

func NewProviderStopped(providerID, reason string) ProviderStopped {
	return ProviderStopped{base: newBase(), ProviderID: providerID, Reason: reason}
}

type ProviderStateChanged struct {
	base
	ProviderID string
	From       string
	To         string
	Version    int64
}

func (ProviderStateChanged) EventName() string { return "ProviderStateChanged" }

func NewProviderStateChanged(providerID, from, to string, version int64) ProviderStateChanged {
	return ProviderStateChanged{base: newBase(), ProviderID: providerID, From: from, To: to, Version: version}
}

type ProviderDegraded struct {
	base
	ProviderID          string
	ConsecutiveFailures int
	TotalFailures       int
	Reason              string
}

func (ProviderDegraded) EventName() string { return "ProviderDegraded" }

func NewProviderDegraded(providerID string, consecutive, total int, reason string) ProviderDegraded {
	return ProviderDegraded{base: newBase(), ProviderID: providerID, ConsecutiveFailures: consecutive, TotalFailures: total, Reason: reason}
}

type ProviderIdleDetected struct {
	base
	ProviderID    string
	IdleDurationS float64
	LastUsedAt    time.Time
}

func (ProviderIdleDetected) EventName() string { return "ProviderIdleDetected" }

func NewProviderIdleDetected(providerID string, idleDurationS float64, lastUsedAt time.Time) ProviderIdleDetected {
	return ProviderIdleDetected{base: newBase(), ProviderID: providerID, IdleDurationS: idleDurationS, LastUsedAt: lastUsedAt}
}

type HealthCheckPassed struct {
	base
	ProviderID string
	DurationMs float64
}

func (HealthCheckPassed) EventName() string { return "HealthCheckPassed" }

func NewHealthCheckPassed(providerID string, durationMs float64) HealthCheckPassed {
	return HealthCheckPassed{base: newBase(), ProviderID: providerID, DurationMs: durationMs}
}

type HealthCheckFailed struct {
	base
	ProviderID          string
	ConsecutiveFailures int
	ErrorMessage        string
}

func (HealthCheckFailed) EventName() string { return "HealthCheckFailed" }

func NewHealthCheckFailed(providerID string, consecutive int, errMessage string) HealthCheckFailed {
	return HealthCheckFailed{base: newBase(), ProviderID: providerID, ConsecutiveFailures: consecutive, ErrorMessage: errMessage}
}

type ToolInvocationRequested struct {
	base
	ProviderID    string
	ToolName      string
	CorrelationID string
}

func (ToolInvocationRequested) EventName() string { return "ToolInvocationRequested" }

func NewToolInvocationRequested(providerID, toolName, correlationID string) ToolInvocationRequested {
	return ToolInvocationRequested{base: newBase(), ProviderID: providerID, ToolName: toolName, CorrelationID: correlationID}
}

type ToolInvocationCompleted struct {
	base
	ProviderID       string
	ToolName         string
	CorrelationID    string
	DurationMs       float64
	ResultSizeBytes  int
}

func (ToolInvocationCompleted) EventName() string { return "ToolInvocationCompleted" }

func NewToolInvocationCompleted(providerID, toolName, correlationID string, durationMs float64, resultSizeBytes int) ToolInvocationCompleted {
	return ToolInvocationCompleted{base: newBase(), ProviderID: providerID, ToolName: toolName, CorrelationID: correlationID, DurationMs: durationMs, ResultSizeBytes: resultSizeBytes}
}

type ToolInvocationFailed struct {
	base
	ProviderID    string
	ToolName      string
	CorrelationID string
	ErrorType     string
	ErrorMessage  string
}

func (ToolInvocationFailed) EventName() string { return "ToolInvocationFailed" }

func NewToolInvocationFailed(providerID, toolName, correlationID, errorType, errorMessage string) ToolInvocationFailed {
	return ToolInvocationFailed{base: newBase(), ProviderID: providerID, ToolName: toolName, CorrelationID: correlationID, ErrorType: errorType, ErrorMessage: errorMessage}
}

type BatchInvocationRequested struct {
	base
	BatchID        string
	CallCount      int
	Providers      []string
	MaxConcurrency int
	TimeoutS       float64
	FailFast       bool
}

func (BatchInvocationRequested) EventName() string { return "BatchInvocationRequested" }

func NewBatchInvocationRequested(batchID string, callCount int, providers []string, maxConcurrency int, timeoutS float64, failFast bool) BatchInvocationRequested {
	return BatchInvocationRequested{base: newBase(), BatchID: batchID, CallCount: callCount, Providers: providers, MaxConcurrency: maxConcurrency, TimeoutS: timeoutS, FailFast: failFast}
}

type BatchInvocationCompleted struct {
	base
	BatchID    string
	Total      int
	Succeeded  int
	Failed     int
	Cancelled  int
	ElapsedMs  float64
}

func (BatchInvocationCompleted) EventName() string { return "BatchInvocationCompleted" }

func NewBatchInvocationCompleted(batchID string, total, succeeded, failed, cancelled int, elapsedMs float64) BatchInvocationCompleted {
	return BatchInvocationCompleted{base: newBase(), BatchID: batchID, Total: total, Succeeded: succeeded, Failed: failed, Cancelled: cancelled, ElapsedMs: elapsedMs}
}

type BatchCallCompleted struct {
	base
	BatchID    string
	CallID     string
	CallIndex  int
	ProviderID string
	ToolName   string
	Success    bool
	ElapsedMs  float64
	ErrorType  string
}

func (BatchCallCompleted) EventName() string { return "BatchCallCompleted" }

func NewBatchCallCompleted(batchID, callID string, callIndex int, providerID, toolName string, success bool, elapsedMs float64, errorType string) BatchCallCompleted {
	return BatchCallCompleted{base: newBase(), BatchID: batchID, CallID: callID, CallIndex: callIndex, ProviderID: providerID, ToolName: toolName, Success: success, ElapsedMs: elapsedMs, ErrorType: errorType}
}
