package core

// ActionStep records one dispatching iteration of a reasoning run: the action
// the model requested, the raw action input and the observation that was fed
// back. Steps are append-only and never mutated after creation.
type ActionStep struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Observation string `json:"observation"`
}
