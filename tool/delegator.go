package tool

// Delegator is implemented by tools that hand a sub-task to another agent.
//
// The registry uses it to keep delegation acyclic: a registry that is itself
// the target of a delegation refuses Delegator tools.
type Delegator interface {
	Tool

	// DelegatesTo returns the name of the agent that receives the sub-task.
	DelegatesTo() string
}

// IsDelegator reports whether t hands work to another agent.
func IsDelegator(t Tool) bool {
	_, ok := t.(Delegator)
	return ok
}
