// Package validate enforces input shape rules using
// github.com/go-playground/validator/v10 struct tags plus a couple of
// checks that struct tags can't express.
package validate

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/mapyr/mcp-hangar/internal/hangarerr"
)

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

var v = func() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("hangar_id", func(fl validator.FieldLevel) bool {
		return idRegexp.MatchString(fl.Field().String())
	})
	return val
}()

// ToolCall is the shape validated before a single tool invocation reaches
// the command bus.
type ToolCall struct {
	ProviderID string         `validate:"required,hangar_id"`
	ToolName   string         `validate:"required,hangar_id"`
	Arguments  map[string]any `validate:"required"`
	TimeoutS   float64        `validate:"gt=0,lte=300"`
}

// BatchCall bounds the batch-level parameters: concurrency, retry attempts,
// and the overall timeout.
type BatchCall struct {
	MaxConcurrency int     `validate:"gte=1,lte=20"`
	MaxAttempts    int     `validate:"gte=1,lte=10"`
	GlobalTimeoutS float64 `validate:"gt=0,lte=300"`
}

// ValidateToolCall validates a ToolCall, returning a hangarerr validation
// error naming the first offending field on failure.
func ValidateToolCall(c ToolCall) error {
	return translate(v.Struct(c))
}

// ValidateBatchCall validates a BatchCall.
func ValidateBatchCall(c BatchCall) error {
	return translate(v.Struct(c))
}

// ValidateArguments enforces the size/depth bounds on a tool-call argument
// object that struct tags alone can't express (recursive depth, byte size).
func ValidateArguments(args map[string]any, maxBytes int, maxDepth int) error {
	if depth(args, 0) > maxDepth {
		return hangarerr.ErrValidationError("arguments", fmt.Sprintf("arguments nesting exceeds max depth %d", maxDepth))
	}
	if size(args) > maxBytes {
		return hangarerr.ErrValidationError("arguments", fmt.Sprintf("arguments exceed max size %d bytes", maxBytes))
	}
	return nil
}

func depth(v any, current int) int {
	switch t := v.(type) {
	case map[string]any:
		max := current
		for _, val := range t {
			if d := depth(val, current+1); d > max {
				max = d
			}
		}
		return max
	case []any:
		max := current
		for _, val := range t {
			if d := depth(val, current+1); d > max {
				max = d
			}
		}
		return max
	default:
		return current
	}
}

func size(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for k, val := range t {
			n += len(k) + size(val)
		}
		return n
	case []any:
		n := 0
		for _, val := range t {
			n += size(val)
		}
		return n
	case string:
		return len(t)
	default:
		return 8
	}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		return hangarerr.ErrValidationError(fe.Field(), fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return hangarerr.ErrValidationError("unknown", err.Error())
}
