package tool

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/tourmesh/core"
)

// Registry is an ordered, name-indexed set of tools available to one agent.
//
// Registration happens at startup; lookups are safe for concurrent use.
// Names are matched exactly and case-sensitively.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	target bool // tools of this registry are reached through a delegation
}

// NewRegistry creates a registry pre-populated with tools. It fails on the
// first registration error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds t to the registry.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return core.ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tools == nil {
		r.tools = make(map[string]Tool)
	}

	if _, exists := r.tools[name]; exists {
		return &core.DuplicateNameError{Name: name}
	}

	if r.target && IsDelegator(t) {
		return fmt.Errorf("%w: %q is registered on a delegation target", core.ErrCyclicDelegation, name)
	}

	r.tools[name] = t
	r.order = append(r.order, name)

	return nil
}

// MustRegister registers all tools and panics on the first error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, &core.UnknownToolError{Name: name, Available: r.namesLocked()}
	}

	return t, nil
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// DescribeAll renders one "name: description" line per tool in registration
// order. Multi-line descriptions are collapsed so each tool stays on one line.
func (r *Registry) DescribeAll() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, len(r.order))
	for _, name := range r.order {
		desc := strings.Join(strings.Fields(r.tools[name].Description()), " ")
		lines = append(lines, name+": "+desc)
	}

	return strings.Join(lines, "\n")
}

// MarkDelegationTarget flags the registry as belonging to an agent that other
// agents delegate to. It fails when the registry already holds a Delegator.
func (r *Registry) MarkDelegationTarget() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if IsDelegator(r.tools[name]) {
			return fmt.Errorf("%w: registry already delegates through %q", core.ErrCyclicDelegation, name)
		}
	}

	r.target = true

	return nil
}

// IsDelegationTarget reports whether MarkDelegationTarget succeeded.
func (r *Registry) IsDelegationTarget() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.target
}
