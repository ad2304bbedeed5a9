// Package core provides the foundational domain types and error taxonomy
// shared by tourmesh packages. It defines the small contracts used across the
// reasoning loop:
//
//   - Turns (user / assistant entries of the conversational memory)
//   - ActionSteps (action, action input and observation triples of a run)
//   - Vars (ambient session variables such as the selected destination)
//   - IterationLimiter (the hard ceiling on model calls per run)
//   - Sentinel and typed errors for registry, dispatch and loop failures
//
// The package intentionally keeps implementation concerns (model transports,
// tool backends, concrete agents) out of scope so that every other package can
// depend on it without introducing cycles.
package core
