package analysis

import "github.com/sarchlab/milbus/bus"

// HookPosRunStart is triggered when an analysis run starts, once the batch is
// validated. The item is the run ID.
var HookPosRunStart = &bus.HookPos{Name: "RunStart"}

// HookPosRunEnd is triggered when an analysis run produced its report. The
// item is the *RunReport.
var HookPosRunEnd = &bus.HookPos{Name: "RunEnd"}

// HookPosPriorityAssigned is triggered after a message receives its priority.
// The item is the *bus.Message.
var HookPosPriorityAssigned = &bus.HookPos{Name: "PriorityAssigned"}

// HookPosWCRTIteration is triggered after each step of the response time
// iteration. The item is the *bus.Message and the detail is an Iteration.
var HookPosWCRTIteration = &bus.HookPos{Name: "WCRTIteration"}

// HookPosWCRTDone is triggered when the response time iteration of a message
// stops. The item is the *bus.Message and the detail is a Result.
var HookPosWCRTDone = &bus.HookPos{Name: "WCRTDone"}

// HookPosVerdict is triggered after a message receives its verdict. The item
// is the *bus.Message.
var HookPosVerdict = &bus.HookPos{Name: "Verdict"}

// Iteration is one step of the response time iteration.
type Iteration struct {
	K int
	W bus.VTimeInUs
}
