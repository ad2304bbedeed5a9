package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/tourmesh/logging"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Optionally validates the model supplied input before execution
//   - Invokes the wrapped function with the caller's context
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR  -> input rejected by the validator
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	fn          func(ctx context.Context, input string) (string, error)
	opts        FunctionToolOptions
}

// FunctionToolOptions configures optional FunctionTool behavior.
type FunctionToolOptions struct {
	// Validate rejects malformed input before fn runs.
	Validate func(input string) error
	// Logger receives call start / success / error records.
	Logger logging.Logger
}

// WithLogger routes the call records of a FunctionTool to logger.
func WithLogger(logger logging.Logger) func(o *FunctionToolOptions) {
	return func(o *FunctionToolOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// NewFunctionTool constructs a FunctionTool.
//
// Example:
//
//	echo := NewFunctionTool(
//	  "Echo",
//	  "Returns its input unchanged.",
//	  func(_ context.Context, input string) (string, error) { return input, nil },
//	)
func NewFunctionTool(
	name, description string,
	fn func(ctx context.Context, input string) (string, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{Logger: logging.NoOpLogger{}}
	for _, o := range optFns {
		o(&opts)
	}

	return &FunctionTool{
		name:        name,
		description: description,
		fn:          fn,
		opts:        opts,
	}
}

// Name returns the unique tool name used in routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Call validates the input then invokes the underlying function. Validation
// or execution failures are wrapped (or passed through) as *ToolError.
//
// Logging Fields:
//
//	tool: tool name
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(ctx context.Context, input string) (string, error) {
	logger := t.opts.Logger
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "input_len", len(input))

	if t.opts.Validate != nil {
		if err := t.opts.Validate(input); err != nil {
			logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

			return "", &ToolError{
				Tool:    t.name,
				Message: fmt.Sprintf("input validation failed: %v", err),
				Code:    CodeValidation,
				Err:     err,
			}
		}
	}

	result, err := t.fn(ctx, input)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) { // Already a ToolError -> just log and forward
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return "", toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return "", &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Err:     err,
		}
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
