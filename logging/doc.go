// Package logging provides a minimal logging interface and adapters for tourmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, tools and toolkits use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with component/session/run attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	exec, err := agent.NewExecutor(m, registry, window, func(o *agent.Options) { o.Logger = logger })
//
// The interface is intentionally minimal so any structured logger can be plugged in.
package logging
