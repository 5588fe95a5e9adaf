package hangarerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorIncludesCodeMessageContextAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(CodeToolInvocationError, "tool failed").
		WithContext("provider_id", "math").
		WithCause(cause)

	msg := err.Error()
	assert.Contains(t, msg, "[TOOL_INVOCATION_ERROR] tool failed")
	assert.Contains(t, msg, "provider_id=math")
	assert.Contains(t, msg, "cause: boom")
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(CodeInternal, "wrapped").WithCause(cause)

	assert.ErrorIs(t, err, cause)
}

func TestIs_MatchesOnlyTheGivenCode(t *testing.T) {
	err := ErrToolNotFound("math", "add")

	assert.True(t, Is(err, CodeToolNotFound))
	assert.False(t, Is(err, CodeProviderNotFound))
	assert.False(t, Is(nil, CodeToolNotFound))
	assert.False(t, Is(errors.New("plain"), CodeToolNotFound))
}

func TestGetCode_ReturnsEmptyForNonTaxonomyErrors(t *testing.T) {
	assert.Equal(t, CodeProviderNotFound, GetCode(ErrProviderNotFound("math")))
	assert.Equal(t, Code(""), GetCode(errors.New("plain")))
}

func TestErrConstructors_PopulateExpectedContext(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		code Code
		keys []string
	}{
		{"state transition", ErrInvalidStateTransition("math", "COLD", "READY"), CodeInvalidStateTransition, []string{"provider_id", "from", "to"}},
		{"cannot start", ErrCannotStartProvider("math", 1.5), CodeCannotStartProvider, []string{"provider_id", "retry_in"}},
		{"start error", ErrProviderStartError("math", errors.New("x")), CodeProviderStartError, []string{"provider_id"}},
		{"tool not found", ErrToolNotFound("math", "add"), CodeToolNotFound, []string{"provider_id", "tool_name"}},
		{"tool invocation", ErrToolInvocationError("math", "add", errors.New("x")), CodeToolInvocationError, []string{"provider_id", "tool_name"}},
		{"timeout", ErrTimeout("math", 30), CodeTimeout, []string{"provider_id", "timeout_s"}},
		{"provider not found", ErrProviderNotFound("math"), CodeProviderNotFound, []string{"provider_id"}},
		{"circuit breaker", ErrCircuitBreakerOpen("math", 5), CodeCircuitBreakerOpen, []string{"provider_id", "consecutive_failures"}},
		{"rate limit", ErrRateLimitExceeded("math", 10, 1), CodeRateLimitExceeded, []string{"key", "limit", "window_s"}},
		{"validation", ErrValidationError("name", "required"), CodeValidationError, []string{"field"}},
		{"client dead", ErrClientDead("math"), CodeClientDead, []string{"provider_id"}},
		{"no handler", ErrNoHandler("InvokeTool"), CodeNoHandler, []string{"command_type"}},
		{"cancelled", ErrCancelled("fail_fast"), CodeCancelled, []string{"reason"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			for _, k := range tc.keys {
				assert.Contains(t, tc.err.Context, k)
			}
		})
	}
}
