// Package agent implements the reasoning-action executor: a bounded loop that
// renders a ReAct prompt, asks a model for the next step, parses the
// completion and dispatches the chosen tool until a final answer is reached.
//
// The package provides:
//
//  1. Executor, the loop itself, with iteration and time ceilings,
//     recoverable parsing errors, callbacks and tracing
//  2. ParseOutput, which classifies a completion as a final answer, an
//     action or malformed text
//  3. Scratchpad, the per-run record of steps rendered back into the prompt
//  4. DelegateTool, which exposes another executor as a tool
//
// Execution Model:
//   - Each Run owns a fresh scratchpad and iteration budget
//   - Executors of one conversation share a memory.Window; a delegated run
//     appends its own exchange to it
//   - Session variables travel in the context (core.WithVars) so tools and
//     delegated runs see the same destination and date
package agent
