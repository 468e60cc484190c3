// Package tracing records analysis runs into a data recorder.
package tracing

import (
	"sync"

	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
	"github.com/sarchlab/milbus/datarecording"
)

// Tables written by the DBTracer.
const (
	RunTable       = "milbus_runs"
	MessageTable   = "milbus_messages"
	IterationTable = "milbus_iterations"
)

// RunEntry is the summary of one analysis run.
type RunEntry struct {
	RunID           string  `json:"run_id"`
	BusController   string  `json:"bus_controller"`
	LinkSpeed       float64 `json:"link_speed"`
	NumMessages     int     `json:"num_messages"`
	TotalDelay      float64 `json:"total_delay"`
	ShortestPeriod  float64 `json:"shortest_period"`
	Utilization     float64 `json:"utilization"`
	UtilizationTest string  `json:"utilization_test"`
	AllSchedulable  bool    `json:"all_schedulable"`
}

// MessageEntry is the analysis result of one message in a run.
type MessageEntry struct {
	RunID             string  `json:"run_id"`
	Name              string  `json:"name"`
	Frequency         float64 `json:"frequency"`
	PayloadWords      int     `json:"payload_words"`
	Sender            string  `json:"sender"`
	Receiver          string  `json:"receiver"`
	TransmissionDelay float64 `json:"transmission_delay"`
	Priority          int     `json:"priority"`
	WCRT              float64 `json:"wcrt"`
	AccessDelay       float64 `json:"access_delay"`
	Converged         bool    `json:"converged"`
	Verdict           string  `json:"verdict"`
}

// IterationEntry is one step of the response time iteration of a message.
type IterationEntry struct {
	RunID   string  `json:"run_id"`
	Message string  `json:"message"`
	K       int     `json:"k"`
	W       float64 `json:"w"`
}

// DBTracer is a hook that stores analysis runs into a DataRecorder. It must
// be registered with an analysis.Analyzer. Iterations are only recorded when
// traceIterations is set.
type DBTracer struct {
	mu              sync.Mutex
	backend         datarecording.DataRecorder
	traceIterations bool
	runID           string
}

// NewDBTracer creates a DBTracer and the tables it writes into.
func NewDBTracer(
	backend datarecording.DataRecorder,
	traceIterations bool,
) *DBTracer {
	t := &DBTracer{
		backend:         backend,
		traceIterations: traceIterations,
	}

	backend.CreateTable(RunTable, RunEntry{})
	backend.CreateTable(MessageTable, MessageEntry{})

	if traceIterations {
		backend.CreateTable(IterationTable, IterationEntry{})
	}

	return t
}

// Func records the information carried by the hook context.
func (t *DBTracer) Func(ctx bus.HookCtx) {
	switch ctx.Pos {
	case analysis.HookPosRunStart:
		t.startRun(ctx.Item.(string))
	case analysis.HookPosWCRTIteration:
		if t.traceIterations {
			t.recordIteration(ctx.Item.(*bus.Message), ctx.Detail.(analysis.Iteration))
		}
	case analysis.HookPosRunEnd:
		t.RecordReport(ctx.Item.(*analysis.RunReport))
	}
}

func (t *DBTracer) startRun(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runID = runID
}

func (t *DBTracer) recordIteration(m *bus.Message, it analysis.Iteration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.InsertData(IterationTable, IterationEntry{
		RunID:   t.runID,
		Message: m.Name,
		K:       it.K,
		W:       float64(it.W),
	})
}

// RecordReport writes the summary and the per-message results of a report and
// flushes the backend.
func (t *DBTracer) RecordReport(r *analysis.RunReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.InsertData(RunTable, RunEntry{
		RunID:           r.RunID,
		BusController:   r.BusController,
		LinkSpeed:       r.LinkSpeed,
		NumMessages:     len(r.Messages),
		TotalDelay:      float64(r.Utilization.TotalDelay),
		ShortestPeriod:  float64(r.Utilization.ShortestPeriod),
		Utilization:     r.Utilization.Value,
		UtilizationTest: r.Utilization.Conclusion.String(),
		AllSchedulable:  r.AllSchedulable(),
	})

	for _, res := range r.Results() {
		t.backend.InsertData(MessageTable, MessageEntry{
			RunID:             r.RunID,
			Name:              res.Name,
			Frequency:         res.Frequency,
			PayloadWords:      res.PayloadWords,
			Sender:            res.Sender,
			Receiver:          res.Receiver,
			TransmissionDelay: res.TransmissionDelay,
			Priority:          res.Priority,
			WCRT:              res.WCRT,
			AccessDelay:       res.AccessDelay,
			Converged:         res.Converged,
			Verdict:           res.Verdict.String(),
		})
	}

	t.backend.Flush()
}
