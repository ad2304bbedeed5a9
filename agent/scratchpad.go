package agent

import (
	"strings"

	"github.com/hupe1980/tourmesh/core"
)

// Scratchpad is the append-only transcript of the current run.
type Scratchpad struct {
	steps []core.ActionStep
}

// Append records a completed step.
func (s *Scratchpad) Append(step core.ActionStep) {
	s.steps = append(s.steps, step)
}

// Len returns the number of recorded steps.
func (s *Scratchpad) Len() int { return len(s.steps) }

// Steps returns a copy of the recorded steps in call order.
func (s *Scratchpad) Steps() []core.ActionStep {
	out := make([]core.ActionStep, len(s.steps))
	copy(out, s.steps)

	return out
}

// Format renders the steps for the next prompt. An empty scratchpad renders "".
func (s *Scratchpad) Format() string {
	return FormatSteps(s.steps)
}

// FormatSteps renders each step as
//
//	Action: <name>
//	Action Input: <input>
//	Observation: <observation>
//	Thought: 
//
// in call order, one block per line group. The transcript ends with the
// open "Thought: " the model continues from.
func FormatSteps(steps []core.ActionStep) string {
	var b strings.Builder
	for i, st := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(MarkerAction + " " + st.Action + "\n")
		b.WriteString(MarkerActionInput + " " + st.ActionInput + "\n")
		b.WriteString(MarkerObservation + " " + st.Observation + "\n")
		b.WriteString(MarkerThought + " ")
	}

	return b.String()
}
