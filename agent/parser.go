package agent

import (
	"strings"
)

// Markers of the action grammar. Matching is case-sensitive at the start of
// a line, after optional leading blanks.
const (
	MarkerFinalAnswer = "Final Answer:"
	MarkerAction      = "Action:"
	MarkerActionInput = "Action Input:"
	MarkerObservation = "Observation:"
	MarkerThought     = "Thought:"
)

var markers = []string{MarkerFinalAnswer, MarkerActionInput, MarkerAction, MarkerObservation, MarkerThought}

// ParseResult is the outcome of parsing one model completion. It is one of
// FinalAnswer, Action or Malformed.
type ParseResult interface {
	isParseResult()
}

// FinalAnswer ends the run with Text as the answer.
type FinalAnswer struct {
	Text string
}

// Action requests the invocation of the tool Name with Input.
type Action struct {
	Name  string
	Input string
}

// Malformed is a completion that does not follow the grammar.
type Malformed struct {
	Raw    string
	Reason string
}

func (FinalAnswer) isParseResult() {}
func (Action) isParseResult()      {}
func (Malformed) isParseResult()   {}

type markedLine struct {
	marker string // empty for continuation lines
	rest   string
}

func splitMarkedLines(text string) []markedLine {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]markedLine, len(raw))

	for i, l := range raw {
		trimmed := strings.TrimLeft(l, " \t")
		lines[i] = markedLine{rest: l}

		for _, m := range markers {
			if strings.HasPrefix(trimmed, m) {
				lines[i] = markedLine{marker: m, rest: trimmed[len(m):]}
				break
			}
		}
	}

	return lines
}

// ParseOutput converts a raw completion into a ParseResult. It never panics
// and never fails: text outside the grammar yields Malformed.
//
// A final answer wins over an action in the same completion. The action input
// runs until the next marker line or the end of the text and keeps embedded
// newlines, so multi-line JSON survives.
func ParseOutput(text string) ParseResult {
	lines := splitMarkedLines(text)

	for i, l := range lines {
		if l.marker != MarkerFinalAnswer {
			continue
		}

		parts := []string{l.rest}
		for _, next := range lines[i+1:] {
			if next.marker != "" {
				parts = append(parts, next.marker+next.rest)
			} else {
				parts = append(parts, next.rest)
			}
		}

		answer := strings.TrimSpace(strings.Join(parts, "\n"))
		if answer == "" {
			return Malformed{Raw: text, Reason: "missing text after 'Final Answer:'"}
		}

		return FinalAnswer{Text: answer}
	}

	actionAt := -1
	for i, l := range lines {
		if l.marker == MarkerAction {
			actionAt = i
			break
		}
	}

	if actionAt < 0 {
		return Malformed{Raw: text, Reason: "missing 'Action:' or 'Final Answer:' after 'Thought:'"}
	}

	name := trimQuotes(strings.TrimSpace(lines[actionAt].rest))
	if name == "" {
		return Malformed{Raw: text, Reason: "missing tool name after 'Action:'"}
	}

	for i := actionAt + 1; i < len(lines); i++ {
		if lines[i].marker != MarkerActionInput {
			continue
		}

		parts := []string{lines[i].rest}
		for _, next := range lines[i+1:] {
			if next.marker != "" {
				break
			}
			parts = append(parts, next.rest)
		}

		input := trimQuotes(strings.TrimSpace(strings.Join(parts, "\n")))

		return Action{Name: name, Input: input}
	}

	return Malformed{Raw: text, Reason: "missing 'Action Input:' after 'Action:'"}
}

// trimQuotes strips one pair of matching surrounding quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}

	return s
}
