package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sarchlab/milbus/bus"
)

// Result is the outcome of the response time iteration of one message.
type Result struct {
	WCRT       bus.VTimeInUs
	Iterations int
	Converged  bool
}

// A NonConvergenceError reports a message whose response time iteration was
// stopped before reaching a fixed point.
type NonConvergenceError struct {
	Name       string
	Iterations int
	LastW      bus.VTimeInUs
	Horizon    bus.VTimeInUs
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf(
		"%s: message %s: stopped after %d iterations at %.3fus (horizon %.3fus)",
		bus.ErrNonConvergentAnalysis, e.Name, e.Iterations, e.LastW, e.Horizon)
}

// Unwrap allows errors.Is(err, bus.ErrNonConvergentAnalysis).
func (e *NonConvergenceError) Unwrap() error {
	return bus.ErrNonConvergentAnalysis
}

// A ResponseTimeAnalyzer computes the worst-case response time of messages
// sharing a non-preemptive fixed-priority bus.
//
// The response time of message m is the fixed point of
//
//	W(0)   = 0
//	W(k+1) = C(m) + B(m) + sum over h != m with prio(h) <= prio(m) of
//	         C(h) * ceil(W(k) / T(h))
//
// where B(m) is the longest transmission among messages of strictly lower
// priority. The iteration stops without a fixed point once it runs more than
// maxIterations steps or W exceeds horizonFactor times the period of m.
type ResponseTimeAnalyzer struct {
	*bus.HookableBase

	maxIterations int
	horizonFactor float64
	numWorkers    int
	logger        *slog.Logger
}

// BlockingTerm returns the longest transmission delay among the messages with
// a strictly lower priority than m.
func (a *ResponseTimeAnalyzer) BlockingTerm(
	m *bus.Message,
	all []*bus.Message,
) bus.VTimeInUs {
	var maxC bus.VTimeInUs

	for _, l := range all {
		if l.Priority() > m.Priority() && l.TransmissionDelay() > maxC {
			maxC = l.TransmissionDelay()
		}
	}

	return maxC
}

// Interference returns the bus time taken, within a window of length w, by the
// messages other than m that have an equal or higher priority.
func (a *ResponseTimeAnalyzer) Interference(
	m *bus.Message,
	all []*bus.Message,
	w bus.VTimeInUs,
) bus.VTimeInUs {
	var sum bus.VTimeInUs

	for _, h := range all {
		if h == m || h.Priority() > m.Priority() {
			continue
		}

		n := h.Frequency.ReleasesWithin(w)
		sum += h.TransmissionDelay() * bus.VTimeInUs(n)
	}

	return sum
}

// Horizon returns the value of W beyond which the iteration of m is abandoned.
func (a *ResponseTimeAnalyzer) Horizon(m *bus.Message) bus.VTimeInUs {
	return bus.VTimeInUs(a.horizonFactor) * m.Period()
}

// WCRT runs the response time iteration of m. All messages must have their
// transmission delay and priority set. If the iteration is abandoned, the
// returned Result holds the last iterate and the error is a
// *NonConvergenceError.
func (a *ResponseTimeAnalyzer) WCRT(
	m *bus.Message,
	all []*bus.Message,
) (Result, error) {
	c := m.TransmissionDelay()
	b := a.BlockingTerm(m, all)
	horizon := a.Horizon(m)

	var prev bus.VTimeInUs
	for k := 1; ; k++ {
		curr := c + b + a.Interference(m, all, prev)

		a.InvokeHook(bus.HookCtx{
			Domain: a,
			Pos:    HookPosWCRTIteration,
			Item:   m,
			Detail: Iteration{K: k, W: curr},
		})

		if curr == prev {
			return a.finish(m, Result{WCRT: curr, Iterations: k, Converged: true}), nil
		}

		if k >= a.maxIterations || curr > horizon {
			res := a.finish(m, Result{WCRT: curr, Iterations: k})

			return res, &NonConvergenceError{
				Name:       m.Name,
				Iterations: k,
				LastW:      curr,
				Horizon:    horizon,
			}
		}

		prev = curr
	}
}

func (a *ResponseTimeAnalyzer) finish(m *bus.Message, res Result) Result {
	a.InvokeHook(bus.HookCtx{
		Domain: a,
		Pos:    HookPosWCRTDone,
		Item:   m,
		Detail: res,
	})

	return res
}

// AnalyzeAll computes the response time of every message and writes it into
// the messages once all of them are computed. The iterations of different
// messages run concurrently. Non-converging messages still receive their last
// iterate, and the returned error joins their *NonConvergenceError values. If
// the context is cancelled, no message is modified and the context error is
// returned.
func (a *ResponseTimeAnalyzer) AnalyzeAll(
	ctx context.Context,
	msgs []*bus.Message,
) error {
	if len(msgs) == 0 {
		return bus.ErrEmptyMessageSet
	}

	a.phaseMustBeReady(msgs)

	results := make([]Result, len(msgs))
	errs := make([]error, len(msgs))

	jobs := make(chan int)
	wg := sync.WaitGroup{}

	numWorkers := min(a.numWorkers, len(msgs))
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				results[i], errs[i] = a.WCRT(msgs[i], msgs)
			}
		}()
	}

	cancelled := false
	for i := range msgs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		jobs <- i
	}

	close(jobs)
	wg.Wait()

	if cancelled {
		return ctx.Err()
	}

	for i, m := range msgs {
		m.SetWCRT(results[i].WCRT, results[i].Converged)

		a.logger.Debug("response time computed",
			"message", m.Name,
			"wcrt_us", float64(results[i].WCRT),
			"iterations", results[i].Iterations,
			"converged", results[i].Converged)
	}

	return errors.Join(errs...)
}

func (a *ResponseTimeAnalyzer) phaseMustBeReady(msgs []*bus.Message) {
	for _, m := range msgs {
		if !m.HasTransmissionDelay() || !m.HasPriority() {
			panic(fmt.Sprintf(
				"message %s must have its delay and priority set "+
					"before the response time analysis", m.Name))
		}
	}
}

// ResponseTimeAnalyzerBuilder can build ResponseTimeAnalyzers.
type ResponseTimeAnalyzerBuilder struct {
	maxIterations int
	horizonFactor float64
	numWorkers    int
	logger        *slog.Logger
}

// Default termination policy of the response time iteration.
const (
	DefaultMaxIterations = 1000
	DefaultHorizonFactor = 2.0
)

// MakeResponseTimeAnalyzerBuilder creates a builder with default parameters.
func MakeResponseTimeAnalyzerBuilder() ResponseTimeAnalyzerBuilder {
	return ResponseTimeAnalyzerBuilder{
		maxIterations: DefaultMaxIterations,
		horizonFactor: DefaultHorizonFactor,
		numWorkers:    runtime.NumCPU(),
	}
}

// WithMaxIterations sets the number of iterations after which the analysis of
// a message is abandoned.
func (b ResponseTimeAnalyzerBuilder) WithMaxIterations(
	n int,
) ResponseTimeAnalyzerBuilder {
	b.maxIterations = n
	return b
}

// WithHorizonFactor sets the multiple of its own period beyond which the
// response time of a message is considered unbounded.
func (b ResponseTimeAnalyzerBuilder) WithHorizonFactor(
	f float64,
) ResponseTimeAnalyzerBuilder {
	b.horizonFactor = f
	return b
}

// WithNumWorkers sets the number of messages analyzed concurrently.
func (b ResponseTimeAnalyzerBuilder) WithNumWorkers(
	n int,
) ResponseTimeAnalyzerBuilder {
	b.numWorkers = n
	return b
}

// WithLogger sets the logger. slog.Default() is used if not set.
func (b ResponseTimeAnalyzerBuilder) WithLogger(
	logger *slog.Logger,
) ResponseTimeAnalyzerBuilder {
	b.logger = logger
	return b
}

func (b ResponseTimeAnalyzerBuilder) parametersMustBeValid() {
	if b.maxIterations < 1 {
		panic("max iterations must be at least 1")
	}

	if !(b.horizonFactor >= 1) {
		panic("horizon factor must be at least 1")
	}

	if b.numWorkers < 1 {
		panic("number of workers must be at least 1")
	}
}

// Build creates a ResponseTimeAnalyzer.
func (b ResponseTimeAnalyzerBuilder) Build() *ResponseTimeAnalyzer {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ResponseTimeAnalyzer{
		HookableBase:  bus.NewHookableBase(),
		maxIterations: b.maxIterations,
		horizonFactor: b.horizonFactor,
		numWorkers:    b.numWorkers,
		logger:        logger,
	}
}
