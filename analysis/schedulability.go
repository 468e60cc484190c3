package analysis

import (
	"fmt"

	"github.com/sarchlab/milbus/bus"
)

// UtilizationConclusion is what the sufficient utilization test allows to
// conclude about a message set.
type UtilizationConclusion int

// The utilization test never proves that a set is not schedulable. Above the
// bound it is only inconclusive.
const (
	UtilizationConsistent UtilizationConclusion = iota
	UtilizationInconclusive
)

func (c UtilizationConclusion) String() string {
	switch c {
	case UtilizationConsistent:
		return "consistent"
	case UtilizationInconclusive:
		return "inconclusive"
	default:
		return fmt.Sprintf("UtilizationConclusion(%d)", int(c))
	}
}

// UtilizationResult is the outcome of the sufficient utilization test.
type UtilizationResult struct {
	TotalDelay     bus.VTimeInUs
	ShortestPeriod bus.VTimeInUs
	Value          float64
	Conclusion     UtilizationConclusion
}

// ShortestPeriod returns the period of the message with the highest frequency.
func ShortestPeriod(msgs []*bus.Message) (bus.VTimeInUs, error) {
	if len(msgs) == 0 {
		return 0, bus.ErrEmptyMessageSet
	}

	maxFreq := msgs[0].Frequency
	for _, m := range msgs[1:] {
		if m.Frequency > maxFreq {
			maxFreq = m.Frequency
		}
	}

	return maxFreq.Period(), nil
}

// TotalDelay returns the sum of the transmission delays of the messages.
func TotalDelay(msgs []*bus.Message) bus.VTimeInUs {
	var sum bus.VTimeInUs
	for _, m := range msgs {
		sum += m.TransmissionDelay()
	}

	return sum
}

// A SchedulabilityChecker runs the exact per-message deadline test and the
// aggregate utilization test.
type SchedulabilityChecker struct {
	*bus.HookableBase
}

// NewSchedulabilityChecker creates a SchedulabilityChecker.
func NewSchedulabilityChecker() *SchedulabilityChecker {
	return &SchedulabilityChecker{
		HookableBase: bus.NewHookableBase(),
	}
}

// Verdict returns the exact test outcome of a message whose response time is
// set. A message meets its deadline if its response time converged and does
// not exceed its period.
func (c *SchedulabilityChecker) Verdict(m *bus.Message) bus.Verdict {
	if !m.Converged() {
		return bus.NotSchedulable
	}

	if m.WCRT() <= m.Period() {
		return bus.Schedulable
	}

	return bus.NotSchedulable
}

// CheckAll sets the verdict of every message.
func (c *SchedulabilityChecker) CheckAll(msgs []*bus.Message) error {
	if len(msgs) == 0 {
		return bus.ErrEmptyMessageSet
	}

	for _, m := range msgs {
		m.SetVerdict(c.Verdict(m))

		c.InvokeHook(bus.HookCtx{
			Domain: c,
			Pos:    HookPosVerdict,
			Item:   m,
		})
	}

	return nil
}

// Utilization runs the sufficient test that compares the total transmission
// demand with the shortest period of the set.
func (c *SchedulabilityChecker) Utilization(
	msgs []*bus.Message,
) (UtilizationResult, error) {
	shortest, err := ShortestPeriod(msgs)
	if err != nil {
		return UtilizationResult{}, err
	}

	total := TotalDelay(msgs)
	res := UtilizationResult{
		TotalDelay:     total,
		ShortestPeriod: shortest,
		Value:          float64(total / shortest),
		Conclusion:     UtilizationConsistent,
	}

	if res.Value > 1 {
		res.Conclusion = UtilizationInconclusive
	}

	return res, nil
}
