package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below wrap them so callers can match with
// errors.Is and still extract details with errors.As.
var (
	// ErrDuplicateTool is returned when a registry already holds a tool with the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrEmptyToolName is returned when registering a tool without a name.
	ErrEmptyToolName = errors.New("tool name must not be empty")
	// ErrUnknownTool is returned when the model asks for a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrCyclicDelegation is returned when a delegation entry would allow an
	// agent to hand work back to itself.
	ErrCyclicDelegation = errors.New("cyclic delegation")
	// ErrMalformedOutput is returned when model output does not follow the
	// action grammar and parsing errors are not handled.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrIterationBudgetExceeded is returned when a run reaches its iteration
	// or time ceiling without a final answer.
	ErrIterationBudgetExceeded = errors.New("iteration budget exceeded")
	// ErrModel wraps transport failures of the language model.
	ErrModel = errors.New("model call failed")
)

// DuplicateNameError reports a registration collision.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// Unwrap allows errors.Is(err, ErrDuplicateTool).
func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateTool }

// UnknownToolError reports a failed name lookup.
type UnknownToolError struct {
	Name      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// Unwrap allows errors.Is(err, ErrUnknownTool).
func (e *UnknownToolError) Unwrap() error { return ErrUnknownTool }

// CapabilityError wraps a failure raised by a tool invocation. The executor
// converts it into an observation; it never terminates a run.
type CapabilityError struct {
	Tool string
	Err  error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// MalformedOutputError carries the raw completion that could not be parsed.
type MalformedOutputError struct {
	Raw    string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("could not parse model output: %s", e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedOutput).
func (e *MalformedOutputError) Unwrap() error { return ErrMalformedOutput }
