// Package analysis provides the Rate-Monotonic schedulability analysis of
// periodic messages sharing a bus.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/rs/xid"
	"github.com/sarchlab/milbus/bus"
)

// MessageResult is the flat output record of one analyzed message.
type MessageResult struct {
	Name              string
	Frequency         float64
	PayloadWords      int
	Sender            string
	Receiver          string
	TransmissionDelay float64
	Priority          int
	WCRT              float64
	AccessDelay       float64
	Converged         bool
	Verdict           bus.Verdict
}

// A RunReport holds the outcome of one analysis run.
type RunReport struct {
	RunID         string
	BusController string
	LinkSpeed     float64

	// Messages are ordered from the most urgent to the least urgent.
	Messages    []*bus.Message
	Utilization UtilizationResult
}

// AllSchedulable tells if every message passed the exact test.
func (r *RunReport) AllSchedulable() bool {
	for _, m := range r.Messages {
		if m.Verdict() != bus.Schedulable {
			return false
		}
	}

	return true
}

// NonConvergent returns the messages whose response time iteration was
// abandoned.
func (r *RunReport) NonConvergent() []*bus.Message {
	var msgs []*bus.Message
	for _, m := range r.Messages {
		if !m.Converged() {
			msgs = append(msgs, m)
		}
	}

	return msgs
}

// Results returns one output record per message, in priority order.
func (r *RunReport) Results() []MessageResult {
	results := make([]MessageResult, 0, len(r.Messages))
	for _, m := range r.Messages {
		results = append(results, MessageResult{
			Name:              m.Name,
			Frequency:         float64(m.Frequency),
			PayloadWords:      m.PayloadWords,
			Sender:            m.Sender,
			Receiver:          m.Receiver,
			TransmissionDelay: float64(m.TransmissionDelay()),
			Priority:          m.Priority(),
			WCRT:              float64(m.WCRT()),
			AccessDelay:       float64(m.AccessDelay()),
			Converged:         m.Converged(),
			Verdict:           m.Verdict(),
		})
	}

	return results
}

// An Analyzer runs the full pipeline: transmission delays, priorities,
// response times and verdicts.
type Analyzer struct {
	*bus.HookableBase

	delayCalculator *bus.DelayCalculator
	priorities      *PriorityAssigner
	responseTimes   *ResponseTimeAnalyzer
	checker         *SchedulabilityChecker
	logger          *slog.Logger
}

// AcceptHook registers a hook with the analyzer and every phase of the
// analysis.
func (a *Analyzer) AcceptHook(hook bus.Hook) {
	a.HookableBase.AcceptHook(hook)
	a.priorities.AcceptHook(hook)
	a.responseTimes.AcceptHook(hook)
	a.checker.AcceptHook(hook)
}

// DelayCalculator returns the delay calculator used by the analyzer.
func (a *Analyzer) DelayCalculator() *bus.DelayCalculator {
	return a.delayCalculator
}

// Analyze runs the analysis over a batch of descriptors. The batch is
// rejected as a whole if any descriptor is malformed or if two descriptors
// share a name. When some response times do not converge, the report is
// still returned, together with an error wrapping
// bus.ErrNonConvergentAnalysis.
func (a *Analyzer) Analyze(
	ctx context.Context,
	descs []bus.Descriptor,
) (*RunReport, error) {
	msgs, err := a.messages(descs)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:         xid.New().String(),
		BusController: a.delayCalculator.BusController(),
		LinkSpeed:     a.delayCalculator.LinkSpeed(),
	}

	a.InvokeHook(bus.HookCtx{
		Domain: a,
		Pos:    HookPosRunStart,
		Item:   report.RunID,
	})

	err = a.delayCalculator.Annotate(msgs)
	if err != nil {
		return nil, err
	}

	report.Messages, err = a.priorities.Assign(msgs)
	if err != nil {
		return nil, err
	}

	convergenceErr := a.responseTimes.AnalyzeAll(ctx, report.Messages)
	if convergenceErr != nil &&
		!errors.Is(convergenceErr, bus.ErrNonConvergentAnalysis) {
		return nil, convergenceErr
	}

	err = a.checker.CheckAll(report.Messages)
	if err != nil {
		return nil, err
	}

	report.Utilization, err = a.checker.Utilization(report.Messages)
	if err != nil {
		return nil, err
	}

	a.logReport(report)

	a.InvokeHook(bus.HookCtx{
		Domain: a,
		Pos:    HookPosRunEnd,
		Item:   report,
	})

	return report, convergenceErr
}

func (a *Analyzer) messages(descs []bus.Descriptor) ([]*bus.Message, error) {
	if len(descs) == 0 {
		return nil, bus.ErrEmptyMessageSet
	}

	var errs []error

	msgs := make([]*bus.Message, 0, len(descs))
	names := make(map[string]bool)

	for _, d := range descs {
		m, err := bus.NewMessage(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if names[d.Name] {
			errs = append(errs, &bus.DescriptorError{
				Name:   d.Name,
				Field:  "name",
				Reason: "is used by more than one message",
			})

			continue
		}

		names[d.Name] = true
		msgs = append(msgs, m)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return msgs, nil
}

func (a *Analyzer) logReport(r *RunReport) {
	numSchedulable := 0
	for _, m := range r.Messages {
		if m.Verdict() == bus.Schedulable {
			numSchedulable++
		}
	}

	for _, m := range r.NonConvergent() {
		a.logger.Warn("response time did not converge",
			"run", r.RunID,
			"message", m.Name,
			"last_w_us", float64(m.WCRT()),
			"period_us", float64(m.Period()))
	}

	a.logger.Info("analysis complete",
		"run", r.RunID,
		"messages", len(r.Messages),
		"schedulable", numSchedulable,
		"utilization", r.Utilization.Value,
		"utilization_test", r.Utilization.Conclusion.String())
}

// AnalyzerBuilder can build Analyzers.
type AnalyzerBuilder struct {
	busController string
	linkSpeed     float64
	maxIterations int
	horizonFactor float64
	numWorkers    int
	logger        *slog.Logger
}

// MakeAnalyzerBuilder creates a builder with default parameters.
func MakeAnalyzerBuilder() AnalyzerBuilder {
	return AnalyzerBuilder{
		busController: bus.DefaultBusController,
		linkSpeed:     1,
		maxIterations: DefaultMaxIterations,
		horizonFactor: DefaultHorizonFactor,
		numWorkers:    runtime.NumCPU(),
	}
}

// WithBusController sets the name of the bus controller node.
func (b AnalyzerBuilder) WithBusController(name string) AnalyzerBuilder {
	b.busController = name
	return b
}

// WithLinkSpeed sets the link speed in Mbit/s.
func (b AnalyzerBuilder) WithLinkSpeed(speed float64) AnalyzerBuilder {
	b.linkSpeed = speed
	return b
}

// WithMaxIterations sets the iteration cap of the response time analysis.
func (b AnalyzerBuilder) WithMaxIterations(n int) AnalyzerBuilder {
	b.maxIterations = n
	return b
}

// WithHorizonFactor sets the multiple of the period beyond which a response
// time is considered unbounded.
func (b AnalyzerBuilder) WithHorizonFactor(f float64) AnalyzerBuilder {
	b.horizonFactor = f
	return b
}

// WithNumWorkers sets the number of response times computed concurrently.
func (b AnalyzerBuilder) WithNumWorkers(n int) AnalyzerBuilder {
	b.numWorkers = n
	return b
}

// WithLogger sets the logger. slog.Default() is used if not set.
func (b AnalyzerBuilder) WithLogger(logger *slog.Logger) AnalyzerBuilder {
	b.logger = logger
	return b
}

// Build creates an Analyzer.
func (b AnalyzerBuilder) Build() *Analyzer {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	delayCalculator := bus.MakeDelayCalculatorBuilder().
		WithBusController(b.busController).
		WithLinkSpeed(b.linkSpeed).
		Build()

	responseTimes := MakeResponseTimeAnalyzerBuilder().
		WithMaxIterations(b.maxIterations).
		WithHorizonFactor(b.horizonFactor).
		WithNumWorkers(b.numWorkers).
		WithLogger(logger).
		Build()

	return &Analyzer{
		HookableBase:    bus.NewHookableBase(),
		delayCalculator: delayCalculator,
		priorities:      NewPriorityAssigner(),
		responseTimes:   responseTimes,
		checker:         NewSchedulabilityChecker(),
		logger:          logger,
	}
}

// String describes the analyzer configuration.
func (a *Analyzer) String() string {
	return fmt.Sprintf("analyzer(bc=%s, link=%gMbit/s, max_iter=%d, horizon=%gT)",
		a.delayCalculator.BusController(),
		a.delayCalculator.LinkSpeed(),
		a.responseTimes.maxIterations,
		a.responseTimes.horizonFactor)
}
