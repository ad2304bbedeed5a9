package agent

import (
	"time"

	"github.com/hupe1980/tourmesh/logging"
)

// outcomeLogger records the result of a run, a model call or a tool call.
// *logging.StructuredLogger satisfies it directly.
type outcomeLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
	LogModelCall(model string, tokens int, dur time.Duration, success bool, err error)
	LogRun(agent string, iterations, steps int, dur time.Duration, success bool, err error)
}

func newOutcomeLogger(logger logging.Logger, runID string) outcomeLogger {
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		return sl.WithRun(runID)
	}

	return &kvOutcomeLogger{logger: logger, runID: runID}
}

// kvOutcomeLogger writes the same records through a plain Logger.
type kvOutcomeLogger struct {
	logger logging.Logger
	runID  string
}

func (l *kvOutcomeLogger) emit(msg string, success bool, err error, args ...any) {
	args = append(args, "run_id", l.runID, "success", success)
	if success {
		l.logger.Info(msg+".completed", args...)
		return
	}

	if err != nil {
		args = append(args, "error", err.Error())
	}

	l.logger.Error(msg+".failed", args...)
}

func (l *kvOutcomeLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	l.emit("tool.call", success, err, "tool_name", tool, "duration", dur)
}

func (l *kvOutcomeLogger) LogModelCall(model string, tokens int, dur time.Duration, success bool, err error) {
	l.emit("model.call", success, err, "model", model, "token_count", tokens, "duration", dur)
}

func (l *kvOutcomeLogger) LogRun(agent string, iterations, steps int, dur time.Duration, success bool, err error) {
	l.emit("agent.run", success, err, "agent", agent, "iterations", iterations, "step_count", steps, "duration", dur)
}
