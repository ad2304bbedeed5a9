package testutil

import "strings"

// CompletionBuilder assembles a ReAct style completion with fluent chaining.
// Example:
//
//	text := NewCompletionBuilder().Thought("Do I need to use a tool? Yes").Action("Echo", "hi").Build()
type CompletionBuilder struct {
	lines []string
}

// NewCompletionBuilder creates an empty builder.
func NewCompletionBuilder() *CompletionBuilder {
	return &CompletionBuilder{}
}

// Thought appends a "Thought:" line (chainable).
func (b *CompletionBuilder) Thought(text string) *CompletionBuilder {
	b.lines = append(b.lines, "Thought: "+text)
	return b
}

// Action appends an "Action:" / "Action Input:" pair (chainable).
func (b *CompletionBuilder) Action(name, input string) *CompletionBuilder {
	b.lines = append(b.lines, "Action: "+name, "Action Input: "+input)
	return b
}

// Final appends a "Final Answer:" line (chainable).
func (b *CompletionBuilder) Final(text string) *CompletionBuilder {
	b.lines = append(b.lines, "Final Answer: "+text)
	return b
}

// Raw appends text verbatim (chainable).
func (b *CompletionBuilder) Raw(text string) *CompletionBuilder {
	b.lines = append(b.lines, text)
	return b
}

// Build joins the lines with newlines.
func (b *CompletionBuilder) Build() string {
	return strings.Join(b.lines, "\n")
}

// ToolCall is shorthand for a completion that calls one tool.
func ToolCall(name, input string) string {
	return NewCompletionBuilder().Thought("Do I need to use a tool? Yes").Action(name, input).Build()
}

// FinalAnswer is shorthand for a completion that answers directly.
func FinalAnswer(text string) string {
	return NewCompletionBuilder().Thought("Do I need to use a tool? No").Final(text).Build()
}
