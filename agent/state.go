package agent

// State is the position of a run in the reasoning-action loop.
type State int

const (
	// StateBuildingPrompt assembles the next prompt.
	StateBuildingPrompt State = iota
	// StateAwaitingModel waits for the model completion.
	StateAwaitingModel
	// StateParsing converts the completion into a ParseResult.
	StateParsing
	// StateDispatching invokes a tool or synthesizes a corrective observation.
	StateDispatching
	// StateDone holds a final answer.
	StateDone
	// StateFailed holds a terminal error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuildingPrompt:
		return "building_prompt"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateParsing:
		return "parsing"
	case StateDispatching:
		return "dispatching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
