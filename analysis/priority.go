package analysis

import (
	"sort"

	"github.com/sarchlab/milbus/bus"
)

// A PriorityAssigner assigns Rate-Monotonic priorities. Messages with a higher
// frequency get a more urgent (numerically lower) priority and messages with
// the same frequency share one priority.
type PriorityAssigner struct {
	*bus.HookableBase
}

// NewPriorityAssigner creates a PriorityAssigner.
func NewPriorityAssigner() *PriorityAssigner {
	return &PriorityAssigner{
		HookableBase: bus.NewHookableBase(),
	}
}

// Assign sets the priority of every message and returns the messages ordered
// from the most urgent to the least urgent. The input slice is not reordered.
func (a *PriorityAssigner) Assign(msgs []*bus.Message) ([]*bus.Message, error) {
	if len(msgs) == 0 {
		return nil, bus.ErrEmptyMessageSet
	}

	ordered := make([]*bus.Message, len(msgs))
	copy(ordered, msgs)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Frequency > ordered[j].Frequency
	})

	priority := 1
	for i, m := range ordered {
		if i > 0 && m.Frequency != ordered[i-1].Frequency {
			priority++
		}

		m.SetPriority(priority)

		a.InvokeHook(bus.HookCtx{
			Domain: a,
			Pos:    HookPosPriorityAssigned,
			Item:   m,
		})
	}

	return ordered, nil
}
