package bus

import (
	"fmt"
	"strings"
)

// Frame layout constants of the bus protocol.
const (
	// BitsPerWord is the number of bits a 16-bit data word takes on the wire,
	// sync and parity included.
	BitsPerWord = 20

	// OverheadBCRT is the command, status and gap overhead, in bits, of a
	// transaction between the bus controller and a remote terminal.
	OverheadBCRT = 56

	// OverheadRTRT is the overhead, in bits, of a remote terminal to remote
	// terminal transaction relayed by the bus controller.
	OverheadRTRT = 106
)

// DefaultBusController is the name of the bus controller node when none is
// configured.
const DefaultBusController = "SXJJ"

// A DelayCalculator computes how long a message occupies the bus.
type DelayCalculator struct {
	busController string
	linkSpeed     float64
}

// BusController returns the name of the bus controller node.
func (c *DelayCalculator) BusController() string {
	return c.busController
}

// LinkSpeed returns the link speed in Mbit/s.
func (c *DelayCalculator) LinkSpeed() float64 {
	return c.linkSpeed
}

// Overhead returns the protocol overhead, in bits, of the transaction that
// carries the message.
func (c *DelayCalculator) Overhead(d Descriptor) int {
	if d.Sender == c.busController || d.Receiver == c.busController {
		return OverheadBCRT
	}

	return OverheadRTRT
}

// FrameBits returns the total number of bits of the transaction that carries
// the message.
func (c *DelayCalculator) FrameBits(d Descriptor) (int, error) {
	if d.PayloadWords <= 0 {
		return 0, &DescriptorError{
			Name:   d.Name,
			Field:  "payload",
			Reason: fmt.Sprintf("must be positive, got %d", d.PayloadWords),
		}
	}

	return BitsPerWord*d.PayloadWords + c.Overhead(d), nil
}

// Delay returns the transmission delay of the message.
func (c *DelayCalculator) Delay(d Descriptor) (VTimeInUs, error) {
	bits, err := c.FrameBits(d)
	if err != nil {
		return 0, err
	}

	return VTimeInUs(float64(bits) / c.linkSpeed), nil
}

// Annotate sets the transmission delay of every message. No message is
// modified if any of them cannot be handled.
func (c *DelayCalculator) Annotate(msgs []*Message) error {
	delays := make([]VTimeInUs, len(msgs))

	for i, m := range msgs {
		d, err := c.Delay(m.Descriptor)
		if err != nil {
			return err
		}

		delays[i] = d
	}

	for i, m := range msgs {
		m.SetTransmissionDelay(delays[i])
	}

	return nil
}

// DelayCalculatorBuilder can build DelayCalculators.
type DelayCalculatorBuilder struct {
	busController string
	linkSpeed     float64
}

// MakeDelayCalculatorBuilder creates a builder with the default bus controller
// and a link speed of 1 Mbit/s.
func MakeDelayCalculatorBuilder() DelayCalculatorBuilder {
	return DelayCalculatorBuilder{
		busController: DefaultBusController,
		linkSpeed:     1,
	}
}

// WithBusController sets the name of the bus controller node.
func (b DelayCalculatorBuilder) WithBusController(
	name string,
) DelayCalculatorBuilder {
	b.busController = name
	return b
}

// WithLinkSpeed sets the link speed in Mbit/s.
func (b DelayCalculatorBuilder) WithLinkSpeed(
	speed float64,
) DelayCalculatorBuilder {
	b.linkSpeed = speed
	return b
}

func (b DelayCalculatorBuilder) parametersMustBeValid() {
	if strings.TrimSpace(b.busController) == "" {
		panic("bus controller name cannot be empty")
	}

	if !(b.linkSpeed > 0) {
		panic(fmt.Sprintf("link speed must be positive, got %g", b.linkSpeed))
	}
}

// Build creates a DelayCalculator.
func (b DelayCalculatorBuilder) Build() *DelayCalculator {
	b.parametersMustBeValid()

	return &DelayCalculator{
		busController: b.busController,
		linkSpeed:     b.linkSpeed,
	}
}
