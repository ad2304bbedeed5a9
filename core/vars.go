package core

import (
	"context"
	"maps"
)

// Well known session variables consumed by prompts and tools.
const (
	VarDestination = "destination"
	VarCurrentDate = "current_date"
)

// Vars carries ambient session variables (destination, current date, ...)
// into prompt building and tool invocations. Missing keys read as "".
type Vars map[string]string

// Get returns the value for key or "" when absent.
func (v Vars) Get(key string) string {
	if v == nil {
		return ""
	}
	return v[key]
}

// Clone returns a shallow copy that is safe to mutate.
func (v Vars) Clone() Vars {
	out := make(Vars, len(v))
	maps.Copy(out, v)
	return out
}

// Merge returns a copy of v overlaid with the non-empty values of other.
func (v Vars) Merge(other Vars) Vars {
	out := v.Clone()
	for k, val := range other {
		if val != "" {
			out[k] = val
		}
	}
	return out
}

type varsKey struct{}

// WithVars attaches session variables to ctx so tools can read them.
func WithVars(ctx context.Context, vars Vars) context.Context {
	return context.WithValue(ctx, varsKey{}, vars)
}

// VarsFromContext returns the variables attached by WithVars. It never
// returns nil.
func VarsFromContext(ctx context.Context) Vars {
	if ctx == nil {
		return Vars{}
	}
	if v, ok := ctx.Value(varsKey{}).(Vars); ok && v != nil {
		return v
	}
	return Vars{}
}
