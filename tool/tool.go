// Package tool implements the capability subsystem that lets agents invoke
// external actions (searches, lookups, calendar mutations, other agents) by
// name, with consistent error handling and descriptions used to instruct the
// language model.
package tool

import (
	"context"
	"fmt"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// A tool is selected by the model through its exact Name and receives the raw
// action input text the model wrote. The returned string becomes the
// observation of the current reasoning step.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Bound their own latency (the executor has no per-call timeout)
//   - Return errors instead of panicking; errors are shown to the model
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool. Lookups are
	// case-sensitive exact matches against the name the model was told to use.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is embedded verbatim into the model instruction prompt.
	Description() string

	// Call executes the tool with the action input written by the model.
	Call(ctx context.Context, input string) (string, error)
}

// Error codes used by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
	Err     error  `json:"-"`       // Underlying cause, if any
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
