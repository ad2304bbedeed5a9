package agent

import "github.com/hupe1980/tourmesh/core"

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from session variables, environment, etc.
type Provider interface {
	Instruction(vars core.Vars) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(vars core.Vars) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(vars core.Vars) (string, error) { return f(vars) }

// Instruction represents either a static instruction string or a dynamic provider.
// Static text may reference session variables ({{.destination}}).
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(vars core.Vars) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(vars core.Vars) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(vars)
	}
	return i.text, nil
}
