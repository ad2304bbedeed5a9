package agent

import (
	"fmt"
	"maps"
	"text/template"
	"time"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/internal/util"
)

// Keys the executor always sets when rendering a prompt. Session variables
// cannot override them.
const (
	KeyInstructions = "instructions"
	KeyTools        = "tools"
	KeyToolNames    = "tool_names"
	KeyChatHistory  = "chat_history"
	KeyInput        = "input"
	KeyScratchpad   = "agent_scratchpad"
)

// DefaultReActTemplate is the conversational ReAct prompt used when no
// template is configured.
const DefaultReActTemplate = `{{.instructions}}

TOOLS:
------

You have access to the following tools:

{{.tools}}

To use a tool, please use the following format:

Thought: Do I need to use a tool? Yes
Action: the action to take, should be one of [{{.tool_names}}]
Action Input: the input to the action
Observation: the result of the action

When you have a response to say to the Human, or if you do not need to use a tool, you MUST use the format:

Thought: Do I need to use a tool? No
Final Answer: [your response here]

Today is {{.current_date}}.{{if .destination}} The selected destination is {{.destination}}.{{end}}

Begin!

Previous conversation history:
{{.chat_history}}

New input: {{.input}}
{{.agent_scratchpad}}`

// PromptTemplate is a compiled prompt. Missing keys render as "".
type PromptTemplate struct {
	tmpl *template.Template
}

// NewPromptTemplate compiles text.
func NewPromptTemplate(text string) (*PromptTemplate, error) {
	tmpl, err := util.ParseTemplate("react", text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &PromptTemplate{tmpl: tmpl}, nil
}

// MustPromptTemplate is like NewPromptTemplate but panics on error.
func MustPromptTemplate(text string) *PromptTemplate {
	p, err := NewPromptTemplate(text)
	if err != nil {
		panic(err)
	}

	return p
}

// PromptInput carries everything a prompt is built from.
type PromptInput struct {
	Instructions string
	Tools        string
	ToolNames    string
	ChatHistory  string
	Input        string
	Scratchpad   string
	Vars         core.Vars
}

// Render executes the template.
func (p *PromptTemplate) Render(in PromptInput) (string, error) {
	values := make(map[string]string, len(in.Vars)+6)
	maps.Copy(values, in.Vars)

	values[KeyInstructions] = in.Instructions
	values[KeyTools] = in.Tools
	values[KeyToolNames] = in.ToolNames
	values[KeyChatHistory] = in.ChatHistory
	values[KeyInput] = in.Input
	values[KeyScratchpad] = in.Scratchpad

	out, err := util.ExecuteTemplate(p.tmpl, values)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return out, nil
}

var weekdaysPT = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

// CurrentDate renders t as "weekday, YYYY/MM/DD". Locale "pt" uses
// Portuguese weekday names; anything else uses English.
func CurrentDate(t time.Time, locale string) string {
	weekday := t.Weekday().String()
	if locale == "pt" {
		weekday = weekdaysPT[t.Weekday()]
	}

	return weekday + ", " + t.Format("2006/01/02")
}
