package tool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/internal/util"
)

var (
	_ Tool      = (*FunctionTool)(nil)
	_ Delegator = (*fakeDelegator)(nil)
)

func echoTool(name string) *FunctionTool {
	return NewFunctionTool(name, "Returns its input unchanged.", func(_ context.Context, input string) (string, error) {
		return input, nil
	})
}

type fakeDelegator struct{ *FunctionTool }

func (f *fakeDelegator) DelegatesTo() string { return "Calendar Agent" }

func newDelegator(name string) *fakeDelegator {
	return &fakeDelegator{FunctionTool: echoTool(name)}
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	tool := echoTool("Echo")

	out, err := tool.Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "Echo", tool.Name())
	assert.Equal(t, "Returns its input unchanged.", tool.Description())
}

type msgLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *msgLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *msgLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *msgLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *msgLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *msgLogger) Error(msg string, _ ...any) { l.record(msg) }

func TestFunctionTool_WithLogger(t *testing.T) {
	logger := &msgLogger{}
	ok := NewFunctionTool("Echo", "echo", func(_ context.Context, in string) (string, error) { return in, nil }, WithLogger(logger))
	failing := NewFunctionTool("Broken", "fails", func(context.Context, string) (string, error) {
		return "", errors.New("down")
	}, WithLogger(logger))

	_, err := ok.Call(context.Background(), "hi")
	require.NoError(t, err)
	_, err = failing.Call(context.Background(), "hi")
	require.Error(t, err)

	assert.Equal(t, []string{"tool.call.start", "tool.call.success", "tool.call.start", "tool.call.error"}, logger.msgs)
}

func TestFunctionTool_WithNilLoggerKeepsDefault(t *testing.T) {
	tool := NewFunctionTool("Echo", "echo", func(_ context.Context, in string) (string, error) { return in, nil }, WithLogger(nil))

	out, err := tool.Call(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	called := false
	tool := NewFunctionTool("Dated", "Needs a date.", func(_ context.Context, input string) (string, error) {
		called = true
		return input, nil
	}, func(o *FunctionToolOptions) {
		o.Validate = func(input string) error {
			if input == "" {
				return errors.New("empty input")
			}
			return nil
		}
	})

	_, err := tool.Call(context.Background(), "")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.Equal(t, "Dated", toolErr.Tool)
	assert.False(t, called)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	tool := NewFunctionTool("Failing", "Always fails.", func(context.Context, string) (string, error) {
		return "", boom
	})

	_, err := tool.Call(context.Background(), "x")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_PassesThroughToolError(t *testing.T) {
	custom := NewToolError("Custom", "quota exhausted", "QUOTA")
	tool := NewFunctionTool("Custom", "Custom errors.", func(context.Context, string) (string, error) {
		return "", custom
	})

	_, err := tool.Call(context.Background(), "x")
	assert.Same(t, custom, err)
	assert.Equal(t, "tool error [QUOTA] in Custom: quota exhausted", err.Error())
}

func TestFunctionTool_ConcurrentCalls(t *testing.T) {
	tool := echoTool("Echo")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tool.Call(context.Background(), "ping")
			assert.NoError(t, err)
			assert.Equal(t, "ping", out)
		}()
	}
	wg.Wait()
}

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r, err := NewRegistry(echoTool("Echo"), echoTool("Weather Forecast"))
	require.NoError(t, err)

	got, err := r.Resolve("Weather Forecast")
	require.NoError(t, err)
	assert.Equal(t, "Weather Forecast", got.Name())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Echo", "Weather Forecast"}, r.Names())
}

func TestRegistry_DuplicateName(t *testing.T) {
	r, err := NewRegistry(echoTool("Echo"))
	require.NoError(t, err)

	err = r.Register(echoTool("Echo"))

	var dup *core.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Echo", dup.Name)
	assert.ErrorIs(t, err, core.ErrDuplicateTool)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_EmptyName(t *testing.T) {
	var r Registry
	assert.ErrorIs(t, r.Register(echoTool("")), core.ErrEmptyToolName)
}

func TestRegistry_ResolveIsCaseSensitive(t *testing.T) {
	r, err := NewRegistry(echoTool("Echo"))
	require.NoError(t, err)

	_, err = r.Resolve("echo")

	var unknown *core.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "echo", unknown.Name)
	assert.Equal(t, []string{"Echo"}, unknown.Available)
	assert.ErrorIs(t, err, core.ErrUnknownTool)
}

func TestRegistry_DescribeAll(t *testing.T) {
	multi := NewFunctionTool("Query Knowledge Base", "Searches local guides.\n  Input is a question.", nil)
	r, err := NewRegistry(echoTool("Echo"), multi)
	require.NoError(t, err)

	desc := r.DescribeAll()
	assert.Equal(t,
		"Echo: Returns its input unchanged.\nQuery Knowledge Base: Searches local guides. Input is a question.",
		desc)
	assert.Len(t, strings.Split(desc, "\n"), r.Len())
}

func TestRegistry_DescribeAllEmpty(t *testing.T) {
	var r Registry
	assert.Equal(t, "", r.DescribeAll())
	assert.Empty(t, r.Names())
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	var r Registry
	r.MustRegister(echoTool("Echo"))
	assert.Panics(t, func() { r.MustRegister(echoTool("Echo")) })
}

func TestRegistry_DelegationTargetRejectsDelegators(t *testing.T) {
	var target Registry
	require.NoError(t, target.MarkDelegationTarget())
	assert.True(t, target.IsDelegationTarget())

	err := target.Register(newDelegator("Travel Agent"))
	assert.ErrorIs(t, err, core.ErrCyclicDelegation)

	assert.NoError(t, target.Register(echoTool("Create Calendar")))
}

func TestRegistry_DelegatingRegistryCannotBecomeTarget(t *testing.T) {
	var r Registry
	require.NoError(t, r.Register(newDelegator("Calendar Agent")))

	err := r.MarkDelegationTarget()
	assert.ErrorIs(t, err, core.ErrCyclicDelegation)
	assert.False(t, r.IsDelegationTarget())
	assert.True(t, IsDelegator(newDelegator("x")))
	assert.False(t, IsDelegator(echoTool("x")))
}

// -------------------- DecodeObject Tests --------------------

func TestDecodeObject(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
		},
		"required": []string{"summary"},
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "strict json", input: `{"summary": "Beach day"}`, want: "Beach day"},
		{name: "relaxed json", input: `{'summary': 'Beach day',}`, want: "Beach day"},
		{name: "fenced", input: "```json\n{\"summary\": \"Beach day\"}\n```", want: "Beach day"},
		{name: "array rejected", input: `[{"summary": "a"}]`, wantErr: true},
		{name: "missing field", input: `{"title": "a"}`, wantErr: true},
		{name: "garbage", input: `{summary`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := DecodeObject(tt.input, schema)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj["summary"])
		})
	}
}

func TestDecodeObject_ArrayIsNotAnObject(t *testing.T) {
	_, err := DecodeObject(`[]`, nil)
	assert.ErrorIs(t, err, ErrNotAnObject)

	_, err = DecodeObject(`{"summary": 1}`, map[string]any{
		"properties": map[string]any{"summary": map[string]any{"type": "string"}},
	})
	var vErr *util.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
