package bus

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DelayCalculator", func() {
	var calc *DelayCalculator

	BeforeEach(func() {
		calc = MakeDelayCalculatorBuilder().
			WithBusController("BC").
			Build()
	})

	It("should use the short overhead when the bus controller sends", func() {
		d := Descriptor{Name: "m", Sender: "BC", Receiver: "RT1",
			PayloadWords: 10, Frequency: 10}

		bits, err := calc.FrameBits(d)
		Expect(err).ToNot(HaveOccurred())
		Expect(bits).To(Equal(256))

		delay, err := calc.Delay(d)
		Expect(err).ToNot(HaveOccurred())
		Expect(delay).To(Equal(VTimeInUs(256)))
	})

	It("should use the short overhead when the bus controller receives", func() {
		d := Descriptor{Name: "m", Sender: "RT1", Receiver: "BC",
			PayloadWords: 1, Frequency: 10}

		Expect(calc.Overhead(d)).To(Equal(OverheadBCRT))
	})

	It("should use the double overhead between remote terminals", func() {
		d := Descriptor{Name: "m", Sender: "RT1", Receiver: "RT2",
			PayloadWords: 10, Frequency: 10}

		delay, err := calc.Delay(d)
		Expect(err).ToNot(HaveOccurred())
		Expect(delay).To(Equal(VTimeInUs(306)))
	})

	It("should scale with the link speed", func() {
		fast := MakeDelayCalculatorBuilder().
			WithBusController("BC").
			WithLinkSpeed(2).
			Build()

		delay, err := fast.Delay(Descriptor{Name: "m", Sender: "BC",
			Receiver: "RT1", PayloadWords: 10, Frequency: 10})
		Expect(err).ToNot(HaveOccurred())
		Expect(delay).To(Equal(VTimeInUs(128)))
	})

	It("should default to the original bus controller name", func() {
		c := MakeDelayCalculatorBuilder().Build()

		Expect(c.BusController()).To(Equal(DefaultBusController))
		Expect(c.LinkSpeed()).To(Equal(1.0))
	})

	It("should reject a missing payload", func() {
		_, err := calc.Delay(Descriptor{Name: "m", Sender: "BC",
			Receiver: "RT1", Frequency: 10})

		Expect(errors.Is(err, ErrMalformedDescriptor)).To(BeTrue())

		var descErr *DescriptorError
		Expect(errors.As(err, &descErr)).To(BeTrue())
		Expect(descErr.Field).To(Equal("payload"))
	})

	It("should panic on invalid builder parameters", func() {
		Expect(func() {
			MakeDelayCalculatorBuilder().WithLinkSpeed(0).Build()
		}).To(Panic())
		Expect(func() {
			MakeDelayCalculatorBuilder().WithBusController(" ").Build()
		}).To(Panic())
	})

	It("should annotate all messages or none", func() {
		good := &Message{Descriptor: Descriptor{Name: "a", Sender: "BC",
			Receiver: "RT1", PayloadWords: 2, Frequency: 10}}
		bad := &Message{Descriptor: Descriptor{Name: "b", Sender: "BC",
			Receiver: "RT1", Frequency: 10}}

		err := calc.Annotate([]*Message{good, bad})
		Expect(err).To(HaveOccurred())
		Expect(good.HasTransmissionDelay()).To(BeFalse())

		err = calc.Annotate([]*Message{good})
		Expect(err).ToNot(HaveOccurred())
		Expect(good.TransmissionDelay()).To(Equal(VTimeInUs(96)))
	})
})
