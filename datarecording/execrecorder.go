package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTable is the table that holds the execution information of each run.
const ExecTable = "exec_info"

// AnalysisRunProperty names the property that links an execution to the
// analysis runs it performed.
const AnalysisRunProperty = "Analysis Run"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	RunID    string
	Property string
	Value    string
}

// An ExecRecorder records when and how the program ran.
type ExecRecorder struct {
	runID    string
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes into the given
// recorder.
func NewExecRecorder(recorder DataRecorder, runID string) *ExecRecorder {
	e := &ExecRecorder{
		runID:    runID,
		recorder: recorder,
	}

	e.recorder.CreateTable(ExecTable, ExecInfo{})

	return e
}

// Record adds a property of the execution. It is written at End.
func (e *ExecRecorder) Record(property, value string) {
	e.entries = append(e.entries, ExecInfo{
		RunID:    e.runID,
		Property: property,
		Value:    value,
	})
}

// Start logs the current execution.
func (e *ExecRecorder) Start() {
	e.Record("Start Time", time.Now().Format("2006-01-02 15:04:05.000000000"))
	e.Record("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Record("Working Directory", cwd)
}

// End writes the execution information along with the exit time.
func (e *ExecRecorder) End() {
	e.Record("End Time", time.Now().Format("2006-01-02 15:04:05.000000000"))

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
