package analysis

import (
	"log/slog"

	"github.com/sarchlab/milbus/bus"
)

// IterationLogger is a hook that logs every step of the response time
// iteration at debug level.
type IterationLogger struct {
	logger *slog.Logger
}

// NewIterationLogger returns a new IterationLogger which will write into the
// logger.
func NewIterationLogger(logger *slog.Logger) *IterationLogger {
	return &IterationLogger{logger: logger}
}

// Func writes the iteration information into the logger
func (h *IterationLogger) Func(ctx bus.HookCtx) {
	m, ok := ctx.Item.(*bus.Message)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosWCRTIteration:
		it := ctx.Detail.(Iteration)
		h.logger.Debug("wcrt iteration",
			"message", m.Name,
			"k", it.K,
			"w_us", float64(it.W))
	case HookPosWCRTDone:
		res := ctx.Detail.(Result)
		h.logger.Debug("wcrt done",
			"message", m.Name,
			"iterations", res.Iterations,
			"wcrt_us", float64(res.WCRT),
			"converged", res.Converged)
	}
}
