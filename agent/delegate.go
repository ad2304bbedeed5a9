package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/tool"
)

// DelegateTool exposes another executor as a tool. Calling it runs the target
// synchronously on the action input with a fresh scratchpad and returns the
// target's answer as the observation.
//
// Both executors should hold the same memory window so the delegated exchange
// is visible to the delegating agent.
type DelegateTool struct {
	name        string
	description string
	target      *Executor
}

var _ tool.Delegator = (*DelegateTool)(nil)

// NewDelegateTool creates a delegation entry targeting target.
//
// The target's registry becomes a delegation target: it refuses delegate
// tools from then on, and a target that already delegates is rejected with
// core.ErrCyclicDelegation. Registering the result on the target's own
// registry fails the same way, so A->A and A->B->A cannot be built.
func NewDelegateTool(name, description string, target *Executor) (*DelegateTool, error) {
	if target == nil {
		return nil, errors.New("agent: delegation target is required")
	}

	if err := target.registry.MarkDelegationTarget(); err != nil {
		return nil, fmt.Errorf("delegate %q to %q: %w", name, target.Name(), err)
	}

	return &DelegateTool{
		name:        name,
		description: description,
		target:      target,
	}, nil
}

// Name returns the tool name.
func (d *DelegateTool) Name() string { return d.name }

// Description returns the tool description.
func (d *DelegateTool) Description() string { return d.description }

// DelegatesTo returns the target agent name.
func (d *DelegateTool) DelegatesTo() string { return d.target.Name() }

// Call runs the target with the session variables found in ctx. A failed
// nested run yields its apology text so the delegating agent can react;
// only cancellation is returned as an error.
func (d *DelegateTool) Call(ctx context.Context, input string) (string, error) {
	res, err := d.target.Run(ctx, input, core.VarsFromContext(ctx))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		d.target.opts.Logger.Warn("agent.delegate.failed",
			"tool", d.name,
			"target", d.target.Name(),
			"error", err.Error(),
		)
	}

	return res.Output, nil
}
