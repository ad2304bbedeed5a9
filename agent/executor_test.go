package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/memory"
	"github.com/hupe1980/tourmesh/model"
	"github.com/hupe1980/tourmesh/tool"
)

const (
	echoHello   = "Thought: Do I need to use a tool? Yes\nAction: Echo\nAction Input: hello"
	finalHello  = "Thought: Do I need to use a tool? No\nFinal Answer: hello"
	fixedDate   = "Monday, 2024/07/01"
	testApology = "Sorry, I could not complete your request."
)

func echoTool() tool.Tool {
	return tool.NewFunctionTool("Echo", "Returns its input unchanged.", func(_ context.Context, input string) (string, error) {
		return input, nil
	})
}

func newTestExecutor(t *testing.T, m model.Model, window *memory.Window, tools []tool.Tool, optFns ...func(o *Options)) *Executor {
	t.Helper()

	registry, err := tool.NewRegistry(tools...)
	require.NoError(t, err)

	fns := append([]func(o *Options){func(o *Options) {
		o.Now = func() time.Time { return time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC) }
	}}, optFns...)

	exec, err := NewExecutor(m, registry, window, fns...)
	require.NoError(t, err)

	return exec
}

func TestExecutor_EchoScenario(t *testing.T) {
	m := model.NewMockModel(echoHello, finalHello)
	window := memory.NewWindow(1)
	exec := newTestExecutor(t, m, window, []tool.Tool{echoTool()})

	res, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, 2, res.Iterations)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []core.ActionStep{{Action: "Echo", ActionInput: "hello", Observation: "hello"}}, res.Steps)

	assert.Equal(t, []core.Turn{core.UserTurn("say hello"), core.AssistantTurn("hello")}, window.Turns())

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"\nObservation"}, reqs[0].Stop)
	assert.Contains(t, reqs[1].Prompt, "Action: Echo\nAction Input: hello\nObservation: hello\nThought: ")
	assert.Contains(t, reqs[0].Prompt, "Today is "+fixedDate+".")
}

func TestExecutor_ToolErrorBecomesObservation(t *testing.T) {
	failing := tool.NewFunctionTool("Echo", "Always fails.", func(context.Context, string) (string, error) {
		return "", errors.New("echo service unavailable")
	})

	m := model.NewMockModel(echoHello, "Final Answer: Sorry, Echo is down.")
	exec := newTestExecutor(t, m, nil, []tool.Tool{failing})

	res, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "Sorry, Echo is down.", res.Output)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "Error: echo service unavailable", res.Steps[0].Observation)
	assert.Contains(t, m.Requests()[1].Prompt, "Observation: Error: echo service unavailable")
}

func TestExecutor_ToolPanicBecomesObservation(t *testing.T) {
	panicking := tool.NewFunctionTool("Echo", "Panics.", func(context.Context, string) (string, error) {
		panic("nil map")
	})

	m := model.NewMockModel(echoHello, finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{panicking})

	res, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "Error: panic: nil map", res.Steps[0].Observation)
}

func TestExecutor_IterationCeiling(t *testing.T) {
	m := model.NewMockModel()
	m.SetFallback(func(model.Request) (string, error) { return echoHello, nil })

	window := memory.NewWindow(1)
	exec := newTestExecutor(t, m, window, []tool.Tool{echoTool()}, func(o *Options) { o.MaxIterations = 2 })

	res, err := exec.Run(context.Background(), "loop forever", nil)

	assert.ErrorIs(t, err, core.ErrIterationBudgetExceeded)
	assert.Equal(t, testApology, res.Output)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, 2, res.Iterations)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 0, window.Len(), "memory is only updated on a final answer")
}

func TestExecutor_DefaultCeiling(t *testing.T) {
	m := model.NewMockModel()
	m.SetFallback(func(model.Request) (string, error) { return echoHello, nil })

	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()})

	_, err := exec.Run(context.Background(), "loop forever", nil)
	assert.ErrorIs(t, err, core.ErrIterationBudgetExceeded)
	assert.Equal(t, DefaultMaxIterations, m.Calls())
}

func TestExecutor_UnknownToolIsRecoverable(t *testing.T) {
	m := model.NewMockModel("Action: Search\nAction Input: beaches", finalHello)

	var states []State
	cb := NewFunctionCallback(CallbackOnStateChange, func(_ context.Context, c *CallbackContext) error {
		states = append(states, c.State)
		return nil
	})

	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool(), tool.NewFunctionTool("Weather Forecast", "Weather.", nil)},
		func(o *Options) { o.Callbacks = NewCallbackManager(cb) })

	res, err := exec.Run(context.Background(), "find beaches", nil)
	require.NoError(t, err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "Search is not a valid tool, try one of [Echo, Weather Forecast].", res.Steps[0].Observation)
	assert.Equal(t, []State{
		StateBuildingPrompt, StateAwaitingModel, StateParsing, StateDispatching,
		StateBuildingPrompt, StateAwaitingModel, StateParsing, StateDone,
	}, states)
}

func TestExecutor_MalformedOutputHandled(t *testing.T) {
	m := model.NewMockModel("I should greet the user.", finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()})

	res, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, ExceptionAction, res.Steps[0].Action)
	assert.Equal(t, "Invalid Format: missing 'Action:' or 'Final Answer:' after 'Thought:'", res.Steps[0].Observation)
	assert.Contains(t, m.Requests()[1].Prompt, "Observation: Invalid Format:")
}

func TestExecutor_MalformedOutputFatalWhenNotHandled(t *testing.T) {
	m := model.NewMockModel("Action: Echo")
	window := memory.NewWindow(1)
	exec := newTestExecutor(t, m, window, []tool.Tool{echoTool()}, func(o *Options) { o.HandleParsingErrors = false })

	res, err := exec.Run(context.Background(), "say hello", nil)

	var malformed *core.MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Action: Echo", malformed.Raw)
	assert.ErrorIs(t, err, core.ErrMalformedOutput)
	assert.Equal(t, testApology, res.Output)
	assert.Equal(t, 0, window.Len())
}

func TestExecutor_FinalAnswerTerminatesWithLongScratchpad(t *testing.T) {
	m := model.NewMockModel(echoHello, echoHello, echoHello, "Action: Echo\nAction Input: x\nFinal Answer: done")
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()})

	res, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "done", res.Output)
	assert.Equal(t, 4, m.Calls())
	assert.Len(t, res.Steps, 3)
	assert.Equal(t, 3, strings.Count(FormatSteps(res.Steps), "Observation: "))
}

func TestExecutor_ModelErrorIsTerminal(t *testing.T) {
	m := model.NewMockModel()
	m.AddError(errors.New("connection reset"))

	window := memory.NewWindow(1)
	exec := newTestExecutor(t, m, window, []tool.Tool{echoTool()})

	res, err := exec.Run(context.Background(), "say hello", nil)

	assert.ErrorIs(t, err, core.ErrModel)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, testApology, res.Output)
	assert.Equal(t, 0, window.Len())
}

func TestExecutor_CancelledContext(t *testing.T) {
	m := model.NewMockModel(finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := exec.Run(ctx, "say hello", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
	assert.Equal(t, testApology, res.Output)
}

func TestExecutor_MaxExecutionTime(t *testing.T) {
	slow := tool.NewFunctionTool("Echo", "Slow echo.", func(_ context.Context, input string) (string, error) {
		time.Sleep(30 * time.Millisecond)
		return input, nil
	})

	m := model.NewMockModel(echoHello, finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{slow}, func(o *Options) { o.MaxExecutionTime = 10 * time.Millisecond })

	_, err := exec.Run(context.Background(), "say hello", nil)
	assert.ErrorIs(t, err, core.ErrIterationBudgetExceeded)
	assert.Equal(t, 1, m.Calls())
}

func TestExecutor_VarsReachPromptAndTools(t *testing.T) {
	var seen core.Vars
	probe := tool.NewFunctionTool("Echo", "Reads vars.", func(ctx context.Context, input string) (string, error) {
		seen = core.VarsFromContext(ctx)
		return input, nil
	})

	m := model.NewMockModel(echoHello, finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{probe}, func(o *Options) {
		o.Instruction = NewInstructionFromText("You plan trips to {{.destination}}.")
		o.Locale = "pt"
	})

	_, err := exec.Run(context.Background(), "say hello", core.Vars{core.VarDestination: "Natal"})
	require.NoError(t, err)

	prompt := m.Requests()[0].Prompt
	assert.Contains(t, prompt, "You plan trips to Natal.")
	assert.Contains(t, prompt, "Today is segunda-feira, 2024/07/01.")
	assert.Equal(t, "Natal", seen.Get(core.VarDestination))
	assert.Equal(t, "segunda-feira, 2024/07/01", seen.Get(core.VarCurrentDate))
}

func TestExecutor_ExplicitCurrentDateWins(t *testing.T) {
	m := model.NewMockModel(finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()})

	vars := core.Vars{core.VarCurrentDate: "Friday, 2030/01/04"}
	_, err := exec.Run(context.Background(), "hi", vars)
	require.NoError(t, err)

	assert.Contains(t, m.Requests()[0].Prompt, "Today is Friday, 2030/01/04.")
	assert.Len(t, vars, 1, "caller vars are not mutated")
}

func TestExecutor_MemoryFeedsNextRun(t *testing.T) {
	m := model.NewMockModel(finalHello, "Final Answer: bye")
	exec := newTestExecutor(t, m, memory.NewWindow(1), []tool.Tool{echoTool()})

	_, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)
	_, err = exec.Run(context.Background(), "say bye", nil)
	require.NoError(t, err)

	assert.Contains(t, m.Requests()[1].Prompt, "Human: say hello\nAI: hello")
	assert.Equal(t, []core.Turn{core.UserTurn("say bye"), core.AssistantTurn("bye")}, exec.Memory().Turns())
}

func TestExecutor_ToolCallbacks(t *testing.T) {
	var events []string
	record := func(_ context.Context, c *CallbackContext) error {
		events = append(events, string(c.Type)+":"+c.Tool+":"+c.Observation)
		return nil
	}

	m := model.NewMockModel(echoHello, finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()}, func(o *Options) {
		o.Callbacks = NewCallbackManager(
			NewFunctionCallback(CallbackBeforeTool, record),
			NewFunctionCallback(CallbackAfterTool, record),
		)
	})

	_, err := exec.Run(context.Background(), "say hello", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"before_tool:Echo:", "after_tool:Echo:hello"}, events)
}

func TestExecutor_CallbackErrorFailsRun(t *testing.T) {
	veto := errors.New("prompt rejected")

	m := model.NewMockModel(finalHello)
	exec := newTestExecutor(t, m, nil, []tool.Tool{echoTool()}, func(o *Options) {
		o.Callbacks = NewCallbackManager(NewFunctionCallback(CallbackBeforeModel, func(context.Context, *CallbackContext) error {
			return veto
		}))
	})

	res, err := exec.Run(context.Background(), "say hello", nil)
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, testApology, res.Output)
	assert.Equal(t, 0, m.Calls())
}

func TestNewExecutor_RequiresModelAndRegistry(t *testing.T) {
	registry, err := tool.NewRegistry()
	require.NoError(t, err)

	_, err = NewExecutor(nil, registry, nil)
	assert.Error(t, err)

	_, err = NewExecutor(model.NewMockModel(), nil, nil)
	assert.Error(t, err)
}

func TestExecutor_BrokenInstructionTemplateFailsRun(t *testing.T) {
	m := model.NewMockModel(finalHello)
	exec := newTestExecutor(t, m, nil, nil, func(o *Options) {
		o.Instruction = NewInstructionFromText("You plan trips to {{.destination")
	})

	res, err := exec.Run(context.Background(), "hi", nil)
	assert.ErrorContains(t, err, "render instruction")
	assert.Equal(t, testApology, res.Output)
	assert.Equal(t, 0, m.Calls())
}
