package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/tourmesh/logging"
)

// CallbackType defines the lifecycle points of a run where callbacks execute.
//
// Available callback types:
//   - BeforeModel/AfterModel: Around each model call
//   - BeforeTool/AfterTool: Around each tool invocation
//   - OnStateChange: When the executor enters a new State
//
// Callbacks are executed synchronously. An error returned by a callback
// fails the run.
type CallbackType string

const (
	// CallbackBeforeModel is triggered before each model call.
	CallbackBeforeModel CallbackType = "before_model"

	// CallbackAfterModel is triggered after a successful model call.
	CallbackAfterModel CallbackType = "after_model"

	// CallbackBeforeTool is triggered before a resolved tool is invoked.
	CallbackBeforeTool CallbackType = "before_tool"

	// CallbackAfterTool is triggered with the observation of a tool invocation.
	CallbackAfterTool CallbackType = "after_tool"

	// CallbackOnStateChange is triggered on every state transition.
	CallbackOnStateChange CallbackType = "on_state_change"
)

// CallbackContext provides context information for callback execution.
// Only the fields relevant to Type are populated.
type CallbackContext struct {
	Type      CallbackType
	Agent     string
	RunID     string
	Iteration int
	State     State

	Prompt     string // before_model
	Completion string // after_model

	Tool        string // before_tool, after_tool
	ToolInput   string // before_tool, after_tool
	Observation string // after_tool
	Err         error  // after_tool, on_state_change into StateFailed
}

// Callback defines the interface for run lifecycle hooks.
//
// Implementations should be fast since they run inline with the loop.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	trace := NewFunctionCallback(CallbackAfterTool, func(_ context.Context, c *CallbackContext) error {
//	    fmt.Printf("%s(%q) -> %q\n", c.Tool, c.ToolInput, c.Observation)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, cbCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager routes callbacks by type and executes them in registration
// order. The first error stops execution of the remaining callbacks.
//
// A nil *CallbackManager is valid and executes nothing.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager(callbacks ...Callback) *CallbackManager {
	cm := &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
	for _, cb := range callbacks {
		cm.RegisterCallback(cb)
	}

	return cm
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for cbCtx.Type.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, cbCtx *CallbackContext) error {
	if cm == nil {
		return nil
	}

	cm.mu.RLock()
	callbacks := cm.callbacks[cbCtx.Type]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes lifecycle events to a Logger at debug level.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	args := []any{
		"agent", cbCtx.Agent,
		"run_id", cbCtx.RunID,
		"iteration", cbCtx.Iteration,
		"state", cbCtx.State.String(),
	}
	if cbCtx.Tool != "" {
		args = append(args, "tool", cbCtx.Tool)
	}
	if cbCtx.Err != nil {
		args = append(args, "error", cbCtx.Err.Error())
	}

	c.logger.Debug("agent.callback."+string(c.callbackType), args...)

	return nil
}
