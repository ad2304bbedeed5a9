package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Request captures one completion request issued by the agent loop.
//
// The whole ReAct prompt (instructions, tool list, history, scratchpad) is
// rendered into Prompt; Stop carries the sequences at which generation must
// halt so the model never invents its own observations.
type Request struct {
	Instructions string   `json:"instructions,omitempty"` // Optional system message
	Prompt       string   `json:"prompt"`
	Stop         []string `json:"stop,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion returned for a Request.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "stop_sequence", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	// Generate performs one blocking completion.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoScriptedResponse is returned by MockModel when its script is exhausted.
var ErrNoScriptedResponse = errors.New("mock model: no scripted response left")

// MockModel is a lightweight in-memory Model useful for tests & examples.
//
// It replays scripted completions in order and records every request it
// receives. A scripted entry may also be an error, which is returned instead
// of a completion.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []scripted
	fallback func(req Request) (string, error)
	requests []Request
}

type scripted struct {
	text string
	err  error
}

// NewMockModel constructs a MockModel that replays responses in order.
func NewMockModel(responses ...string) *MockModel {
	m := &MockModel{info: Info{Name: "mock", Provider: "mock"}}
	m.AddResponses(responses...)

	return m
}

// AddResponses appends completions to the script.
func (m *MockModel) AddResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range responses {
		m.script = append(m.script, scripted{text: r})
	}
}

// AddError appends a failing call to the script.
func (m *MockModel) AddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, scripted{err: err})
}

// SetFallback installs a generator used once the script is exhausted.
func (m *MockModel) SetFallback(fn func(req Request) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = fn
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)

	var next scripted
	switch {
	case len(m.script) > 0:
		next = m.script[0]
		m.script = m.script[1:]
	case m.fallback != nil:
		fn := m.fallback
		m.mu.Unlock()

		text, err := fn(req)
		if err != nil {
			return nil, err
		}

		return &Response{ID: fmt.Sprintf("mock-%d", n), Text: text, FinishReason: "stop"}, nil
	default:
		next = scripted{err: ErrNoScriptedResponse}
	}
	m.mu.Unlock()

	if next.err != nil {
		return nil, next.err
	}

	return &Response{ID: fmt.Sprintf("mock-%d", n), Text: next.text, FinishReason: "stop"}, nil
}

// Requests returns a copy of all received requests in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
