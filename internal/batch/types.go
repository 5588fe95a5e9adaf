// Package batch implements the parallel fan-out call executor: true
// parallelism over a worker pool (not wave-chunking), a single cancel
// flag per batch, single-flight cold starts, two-level concurrency
// acquisition, retry with backoff, and per-call/batch response
// truncation via the continuation cache.
package batch

import "time"

// CallSpec describes one call within a batch.
type CallSpec struct {
	Index      int
	CallID     string
	ProviderID string
	ToolName   string
	Arguments  map[string]any
	Timeout    *time.Duration
	MaxAttempts int
}

// RetryMetadata records what the retry loop attempted before a call settled.
type RetryMetadata struct {
	Attempts    int      `json:"attempts"`
	Retries     []string `json:"retries"`
	TotalTimeMs float64  `json:"total_time_ms"`
}

// CallResult is the outcome of one CallSpec.
type CallResult struct {
	Index              int             `json:"index"`
	CallID             string          `json:"call_id"`
	Success            bool            `json:"success"`
	Result             []byte          `json:"result,omitempty"`
	Error              string          `json:"error,omitempty"`
	ErrorType          string          `json:"error_type,omitempty"`
	ElapsedMs          float64         `json:"elapsed_ms"`
	Truncated          bool            `json:"truncated,omitempty"`
	TruncatedReason    string          `json:"truncated_reason,omitempty"`
	OriginalSizeBytes  int             `json:"original_size_bytes,omitempty"`
	ContinuationID     string          `json:"continuation_id,omitempty"`
	RetryMetadata      *RetryMetadata  `json:"retry_metadata,omitempty"`
}

// BatchResult aggregates all CallResults for one batch invocation.
type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Cancelled int          `json:"cancelled"`
	ElapsedMs float64      `json:"elapsed_ms"`
	Results   []CallResult `json:"results"`
}

// MaxResponseSizeBytes is the per-call threshold past which a result is
// spilled into the continuation cache and replaced with a continuation id.
const MaxResponseSizeBytes = 256 * 1024

// MaxBatchResponseSizeBytes bounds the total successful-result payload
// retained inline across one batch before the batch-level truncation pass
// starts spilling additional results too.
const MaxBatchResponseSizeBytes = 2 * 1024 * 1024
