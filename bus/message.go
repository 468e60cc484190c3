package bus

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Verdict is the outcome of the exact schedulability test of one message.
type Verdict int

// Possible verdicts. VerdictUnknown is held by messages that have not been
// checked yet.
const (
	VerdictUnknown Verdict = iota
	Schedulable
	NotSchedulable
)

func (v Verdict) String() string {
	switch v {
	case Schedulable:
		return "schedulable"
	case NotSchedulable:
		return "not schedulable"
	default:
		return "unknown"
	}
}

// ParseVerdict converts the text form produced by Verdict.String back into a
// Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "schedulable":
		return Schedulable, nil
	case "not schedulable", "not_schedulable":
		return NotSchedulable, nil
	case "", "unknown":
		return VerdictUnknown, nil
	default:
		return VerdictUnknown, fmt.Errorf("unknown verdict %q", s)
	}
}

// A Descriptor is the raw description of a periodic message, as supplied by a
// descriptor source.
type Descriptor struct {
	Name         string
	Sender       string
	Receiver     string
	PayloadWords int
	Frequency    Freq
}

// Validate reports every field of the descriptor that cannot be analyzed. The
// returned error is nil or a join of *DescriptorError values.
func (d Descriptor) Validate() error {
	var errs []error

	report := func(field, reason string) {
		errs = append(errs, &DescriptorError{
			Name:   d.Name,
			Field:  field,
			Reason: reason,
		})
	}

	if strings.TrimSpace(d.Name) == "" {
		report("name", "is missing")
	}

	if strings.TrimSpace(d.Sender) == "" {
		report("sender", "is missing")
	}

	if strings.TrimSpace(d.Receiver) == "" {
		report("receiver", "is missing")
	}

	if d.PayloadWords <= 0 {
		report("payload", fmt.Sprintf("must be positive, got %d", d.PayloadWords))
	}

	f := float64(d.Frequency)
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		report("frequency", fmt.Sprintf("must be positive, got %g", f))
	}

	return errors.Join(errs...)
}

const (
	fieldDelay = 1 << iota
	fieldPriority
	fieldWCRT
	fieldVerdict
)

// A Message is a periodic message that is enriched by the analysis phases.
// The transmission delay, the priority, the response time and the verdict can
// each be written only once.
type Message struct {
	Descriptor

	transmissionDelay VTimeInUs
	priority          int
	wcrt              VTimeInUs
	converged         bool
	verdict           Verdict

	written int
}

// NewMessage validates a descriptor and creates a message from it.
func NewMessage(d Descriptor) (*Message, error) {
	err := d.Validate()
	if err != nil {
		return nil, err
	}

	return &Message{Descriptor: d}, nil
}

// Period returns the period of the message.
func (m *Message) Period() VTimeInUs {
	return m.Frequency.Period()
}

func (m *Message) writeOnce(field int, what string) {
	if m.written&field != 0 {
		panic(fmt.Sprintf("%s of message %s is already set", what, m.Name))
	}

	m.written |= field
}

func (m *Message) mustHave(field int, what string) {
	if m.written&field == 0 {
		panic(fmt.Sprintf("%s of message %s is not set", what, m.Name))
	}
}

// SetTransmissionDelay records the time the message occupies the bus.
func (m *Message) SetTransmissionDelay(d VTimeInUs) {
	m.writeOnce(fieldDelay, "transmission delay")
	m.transmissionDelay = d
}

// HasTransmissionDelay tells if the transmission delay is set.
func (m *Message) HasTransmissionDelay() bool {
	return m.written&fieldDelay != 0
}

// TransmissionDelay returns the time the message occupies the bus.
func (m *Message) TransmissionDelay() VTimeInUs {
	m.mustHave(fieldDelay, "transmission delay")
	return m.transmissionDelay
}

// SetPriority records the fixed priority of the message. 1 is the most urgent.
func (m *Message) SetPriority(p int) {
	if p < 1 {
		panic(fmt.Sprintf("priority %d of message %s is not positive", p, m.Name))
	}

	m.writeOnce(fieldPriority, "priority")
	m.priority = p
}

// HasPriority tells if the priority is set.
func (m *Message) HasPriority() bool {
	return m.written&fieldPriority != 0
}

// Priority returns the priority of the message.
func (m *Message) Priority() int {
	m.mustHave(fieldPriority, "priority")
	return m.priority
}

// SetWCRT records the worst-case response time. When converged is false, wcrt
// is the last iterate computed before the analysis gave up.
func (m *Message) SetWCRT(wcrt VTimeInUs, converged bool) {
	m.writeOnce(fieldWCRT, "response time")
	m.wcrt = wcrt
	m.converged = converged
}

// HasWCRT tells if the response time is set.
func (m *Message) HasWCRT() bool {
	return m.written&fieldWCRT != 0
}

// WCRT returns the worst-case response time.
func (m *Message) WCRT() VTimeInUs {
	m.mustHave(fieldWCRT, "response time")
	return m.wcrt
}

// Converged tells if the response time analysis reached a fixed point.
func (m *Message) Converged() bool {
	m.mustHave(fieldWCRT, "response time")
	return m.converged
}

// AccessDelay returns the part of the response time spent waiting for the
// bus.
func (m *Message) AccessDelay() VTimeInUs {
	return m.WCRT() - m.TransmissionDelay()
}

// SetVerdict records the outcome of the exact schedulability test.
func (m *Message) SetVerdict(v Verdict) {
	m.writeOnce(fieldVerdict, "verdict")
	m.verdict = v
}

// Verdict returns the outcome of the exact schedulability test, or
// VerdictUnknown if the message is not checked yet.
func (m *Message) Verdict() Verdict {
	return m.verdict
}
