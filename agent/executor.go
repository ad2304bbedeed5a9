package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/internal/util"
	"github.com/hupe1980/tourmesh/logging"
	"github.com/hupe1980/tourmesh/memory"
	"github.com/hupe1980/tourmesh/model"
	"github.com/hupe1980/tourmesh/tool"
)

const (
	// DefaultMaxIterations bounds the number of model calls per run.
	DefaultMaxIterations = 15
	// DefaultApology is the output of a run that could not produce an answer.
	DefaultApology = "Sorry, I could not complete your request."
	// ExceptionAction names the step recorded for a malformed completion.
	ExceptionAction = "_Exception"
)

// DefaultStopSequences halts generation before the model writes its own observation.
var DefaultStopSequences = []string{"\nObservation"}

const tracerName = "github.com/hupe1980/tourmesh/agent"

// Options configures an Executor.
//
// Use functional options with NewExecutor to override defaults.
type Options struct {
	// Name identifies the agent in logs, spans and delegation errors.
	Name string
	// Instruction is the agent persona rendered into {{.instructions}}.
	Instruction Instruction
	// Template is the full ReAct prompt. Defaults to DefaultReActTemplate.
	Template *PromptTemplate
	// MaxIterations is the model call ceiling per run (<= 0 selects
	// DefaultMaxIterations).
	MaxIterations int
	// MaxExecutionTime bounds wall-clock time per run (0 disables).
	MaxExecutionTime time.Duration
	// HandleParsingErrors turns malformed completions into corrective
	// observations instead of failing the run.
	HandleParsingErrors bool
	// StopSequences are passed to every model call.
	StopSequences []string
	// Apology is returned as output when a run fails.
	Apology string
	// Locale of the default current_date ("en" or "pt").
	Locale string
	// Now returns the run date used for current_date.
	Now func() time.Time

	Callbacks *CallbackManager
	Logger    logging.Logger
	Tracer    trace.Tracer
}

// Executor runs the bounded reasoning-action loop for one agent.
//
// An Executor is safe for concurrent use; each Run owns its scratchpad and
// iteration budget. Runs that share a memory window must be serialized by
// the caller (see session.Session).
type Executor struct {
	model    model.Model
	registry *tool.Registry
	memory   *memory.Window
	opts     Options
}

// Result is the outcome of a run.
type Result struct {
	Output     string            `json:"output"`
	Steps      []core.ActionStep `json:"steps"`
	Iterations int               `json:"iterations"`
	RunID      string            `json:"run_id"`
}

// NewExecutor creates an executor for m using the tools of registry. The
// window is shared with every other executor of the same conversation; nil
// creates a private default window.
func NewExecutor(m model.Model, registry *tool.Registry, window *memory.Window, optFns ...func(o *Options)) (*Executor, error) {
	if m == nil {
		return nil, errors.New("agent: model is required")
	}

	if registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}

	opts := Options{
		Name:                "agent",
		Instruction:         NewInstructionFromText("You are a helpful assistant."),
		MaxIterations:       DefaultMaxIterations,
		HandleParsingErrors: true,
		StopSequences:       DefaultStopSequences,
		Apology:             DefaultApology,
		Locale:              "en",
		Now:                 time.Now,
		Logger:              logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	if opts.Template == nil {
		tmpl, err := NewPromptTemplate(DefaultReActTemplate)
		if err != nil {
			return nil, err
		}
		opts.Template = tmpl
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if window == nil {
		window = memory.NewWindow(memory.DefaultWindowSize)
	}

	return &Executor{
		model:    m,
		registry: registry,
		memory:   window,
		opts:     opts,
	}, nil
}

// Name returns the agent name.
func (e *Executor) Name() string { return e.opts.Name }

// Registry returns the tools available to this agent.
func (e *Executor) Registry() *tool.Registry { return e.registry }

// Memory returns the conversation window this agent reads and appends to.
func (e *Executor) Memory() *memory.Window { return e.memory }

// runState is created at Run entry and discarded at exit.
type runState struct {
	id         string
	input      string
	vars       core.Vars
	scratchpad Scratchpad
	limiter    *core.IterationLimiter
	state      State
	outcomes   outcomeLogger
}

// Run answers input. vars carries ambient session variables; unknown keys
// are ignored and missing keys render as "".
//
// On failure the returned Result carries the apology as Output together with
// the terminal error. Memory is only updated when a final answer is reached.
func (e *Executor) Run(ctx context.Context, input string, vars core.Vars) (*Result, error) {
	rs := &runState{
		id:      uuid.NewString(),
		input:   input,
		vars:    e.runVars(vars),
		limiter: core.NewIterationLimiter(e.opts.MaxIterations),
	}
	rs.outcomes = newOutcomeLogger(e.opts.Logger, rs.id)

	ctx, span := e.opts.Tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", e.opts.Name),
		attribute.String("agent.run_id", rs.id),
	))
	defer span.End()

	ctx = core.WithVars(ctx, rs.vars)

	start := time.Now()
	e.opts.Logger.Info("agent.run.start", "agent", e.opts.Name, "run_id", rs.id, "input_len", len(input))

	answer, err := e.loop(ctx, rs, start)

	result := &Result{
		Output:     answer,
		Steps:      rs.scratchpad.Steps(),
		Iterations: rs.limiter.Count(),
		RunID:      rs.id,
	}

	span.SetAttributes(
		attribute.Int("agent.iterations", result.Iterations),
		attribute.Int("agent.steps", len(result.Steps)),
	)

	if err != nil {
		result.Output = e.opts.Apology

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rs.outcomes.LogRun(e.opts.Name, result.Iterations, len(result.Steps), time.Since(start), false, err)

		return result, err
	}

	span.SetStatus(codes.Ok, "")
	rs.outcomes.LogRun(e.opts.Name, result.Iterations, len(result.Steps), time.Since(start), true, nil)

	return result, nil
}

func (e *Executor) runVars(vars core.Vars) core.Vars {
	out := vars.Clone()
	if out.Get(core.VarCurrentDate) == "" {
		out[core.VarCurrentDate] = CurrentDate(e.opts.Now(), e.opts.Locale)
	}

	return out
}

func (e *Executor) loop(ctx context.Context, rs *runState, start time.Time) (string, error) {
	for {
		if err := e.transition(ctx, rs, StateBuildingPrompt, nil); err != nil {
			return "", e.fail(ctx, rs, err)
		}

		prompt, err := e.buildPrompt(rs)
		if err != nil {
			return "", e.fail(ctx, rs, err)
		}

		if err := ctx.Err(); err != nil {
			return "", e.fail(ctx, rs, fmt.Errorf("agent run cancelled: %w", err))
		}

		if d := e.opts.MaxExecutionTime; d > 0 && time.Since(start) >= d {
			return "", e.fail(ctx, rs, fmt.Errorf("%w: exceeded max execution time of %s", core.ErrIterationBudgetExceeded, d))
		}

		if err := rs.limiter.Increment(); err != nil {
			return "", e.fail(ctx, rs, err)
		}

		if err := e.transition(ctx, rs, StateAwaitingModel, nil); err != nil {
			return "", e.fail(ctx, rs, err)
		}

		completion, err := e.callModel(ctx, rs, prompt)
		if err != nil {
			return "", e.fail(ctx, rs, err)
		}

		if err := e.transition(ctx, rs, StateParsing, nil); err != nil {
			return "", e.fail(ctx, rs, err)
		}

		switch res := ParseOutput(completion).(type) {
		case FinalAnswer:
			if err := e.transition(ctx, rs, StateDone, nil); err != nil {
				return "", e.fail(ctx, rs, err)
			}

			e.memory.AppendExchange(rs.input, res.Text)

			return res.Text, nil

		case Action:
			if err := e.transition(ctx, rs, StateDispatching, nil); err != nil {
				return "", e.fail(ctx, rs, err)
			}

			observation, err := e.dispatch(ctx, rs, res)
			if err != nil {
				return "", e.fail(ctx, rs, err)
			}

			rs.scratchpad.Append(core.ActionStep{Action: res.Name, ActionInput: res.Input, Observation: observation})

		case Malformed:
			malformed := &core.MalformedOutputError{Raw: res.Raw, Reason: res.Reason}

			if !e.opts.HandleParsingErrors {
				return "", e.fail(ctx, rs, malformed)
			}

			e.opts.Logger.Warn("agent.output.malformed",
				"agent", e.opts.Name,
				"run_id", rs.id,
				"iteration", rs.limiter.Count(),
				"reason", res.Reason,
			)

			if err := e.transition(ctx, rs, StateDispatching, nil); err != nil {
				return "", e.fail(ctx, rs, err)
			}

			rs.scratchpad.Append(core.ActionStep{
				Action:      ExceptionAction,
				ActionInput: strings.TrimSpace(res.Raw),
				Observation: "Invalid Format: " + res.Reason,
			})
		}
	}
}

func (e *Executor) fail(ctx context.Context, rs *runState, err error) error {
	if rs.state != StateFailed {
		rs.state = StateFailed
		// Callback errors cannot change the outcome of a failed run.
		_ = e.opts.Callbacks.ExecuteCallbacks(ctx, e.callbackContext(rs, CallbackOnStateChange, err))
	}

	return err
}

func (e *Executor) transition(ctx context.Context, rs *runState, next State, err error) error {
	rs.state = next

	return e.opts.Callbacks.ExecuteCallbacks(ctx, e.callbackContext(rs, CallbackOnStateChange, err))
}

func (e *Executor) callbackContext(rs *runState, t CallbackType, err error) *CallbackContext {
	return &CallbackContext{
		Type:      t,
		Agent:     e.opts.Name,
		RunID:     rs.id,
		Iteration: rs.limiter.Count(),
		State:     rs.state,
		Err:       err,
	}
}

func (e *Executor) buildPrompt(rs *runState) (string, error) {
	instructions, err := e.opts.Instruction.Resolve(rs.vars)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}

	if instructions, err = util.RenderTemplate(instructions, rs.vars); err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	return e.opts.Template.Render(PromptInput{
		Instructions: instructions,
		Tools:        e.registry.DescribeAll(),
		ToolNames:    strings.Join(e.registry.Names(), ", "),
		ChatHistory:  e.memory.Context(),
		Input:        rs.input,
		Scratchpad:   rs.scratchpad.Format(),
		Vars:         rs.vars,
	})
}

func (e *Executor) callModel(ctx context.Context, rs *runState, prompt string) (string, error) {
	cbCtx := e.callbackContext(rs, CallbackBeforeModel, nil)
	cbCtx.Prompt = prompt

	if err := e.opts.Callbacks.ExecuteCallbacks(ctx, cbCtx); err != nil {
		return "", err
	}

	start := time.Now()
	info := e.model.Info()

	resp, err := e.model.Generate(ctx, model.Request{Prompt: prompt, Stop: e.opts.StopSequences})
	if err != nil {
		rs.outcomes.LogModelCall(info.Name, 0, time.Since(start), false, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("agent run cancelled: %w", ctxErr)
		}

		return "", fmt.Errorf("%w: %w", core.ErrModel, err)
	}

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}

	rs.outcomes.LogModelCall(info.Name, tokens, time.Since(start), true, nil)

	cbCtx = e.callbackContext(rs, CallbackAfterModel, nil)
	cbCtx.Completion = resp.Text

	if err := e.opts.Callbacks.ExecuteCallbacks(ctx, cbCtx); err != nil {
		return "", err
	}

	return resp.Text, nil
}

// dispatch resolves and invokes the requested tool. Unknown tools, tool
// errors and panics become observations; only callback errors are returned.
func (e *Executor) dispatch(ctx context.Context, rs *runState, action Action) (string, error) {
	t, err := e.registry.Resolve(action.Name)
	if err != nil {
		var unknown *core.UnknownToolError
		if errors.As(err, &unknown) {
			e.opts.Logger.Warn("agent.tool.unknown", "agent", e.opts.Name, "run_id", rs.id, "tool", action.Name)

			return fmt.Sprintf("%s is not a valid tool, try one of [%s].", action.Name, strings.Join(unknown.Available, ", ")), nil
		}

		return "", err
	}

	cbCtx := e.callbackContext(rs, CallbackBeforeTool, nil)
	cbCtx.Tool, cbCtx.ToolInput = action.Name, action.Input

	if err := e.opts.Callbacks.ExecuteCallbacks(ctx, cbCtx); err != nil {
		return "", err
	}

	observation, callErr := e.invoke(ctx, rs, t, action.Input)

	cbCtx = e.callbackContext(rs, CallbackAfterTool, callErr)
	cbCtx.Tool, cbCtx.ToolInput, cbCtx.Observation = action.Name, action.Input, observation

	if err := e.opts.Callbacks.ExecuteCallbacks(ctx, cbCtx); err != nil {
		return "", err
	}

	return observation, nil
}

func (e *Executor) invoke(ctx context.Context, rs *runState, t tool.Tool, input string) (observation string, callErr error) {
	ctx, span := e.opts.Tracer.Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("tool.name", t.Name()),
		attribute.String("agent.run_id", rs.id),
	))
	defer span.End()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			callErr = &core.CapabilityError{
				Tool: t.Name(),
				Err:  tool.NewToolError(t.Name(), fmt.Sprintf("panic: %v", r), tool.CodePanic),
			}
			observation = "Error: " + fmt.Sprintf("panic: %v", r)
		}

		if callErr != nil {
			span.RecordError(callErr)
			span.SetStatus(codes.Error, callErr.Error())
			rs.outcomes.LogToolCall(t.Name(), time.Since(start), false, callErr)

			return
		}

		rs.outcomes.LogToolCall(t.Name(), time.Since(start), true, nil)
	}()

	out, err := t.Call(ctx, input)
	if err != nil {
		return "Error: " + errorMessage(err), &core.CapabilityError{Tool: t.Name(), Err: err}
	}

	return out, nil
}

// errorMessage prefers the bare message of a ToolError over its decorated form.
func errorMessage(err error) string {
	var toolErr *tool.ToolError
	if errors.As(err, &toolErr) && toolErr.Message != "" {
		return toolErr.Message
	}

	return err.Error()
}
