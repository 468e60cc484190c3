package analysis

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/milbus/bus"
)

var _ = Describe("SchedulabilityChecker", func() {
	var checker *SchedulabilityChecker

	BeforeEach(func() {
		checker = NewSchedulabilityChecker()
	})

	It("should accept a response time equal to the period", func() {
		msgs := prioritizedMessages(bus.Descriptor{Name: "edge", Sender: "BC",
			Receiver: "RT1", PayloadWords: 10, Frequency: 3906.25})
		m := msgs[0]
		m.SetWCRT(m.Period(), true)

		Expect(m.Period()).To(Equal(bus.VTimeInUs(256)))
		Expect(checker.Verdict(m)).To(Equal(bus.Schedulable))
	})

	It("should reject a response time longer than the period", func() {
		msgs := prioritizedMessages(bus.Descriptor{Name: "late", Sender: "BC",
			Receiver: "RT1", PayloadWords: 10, Frequency: 100})
		m := msgs[0]
		m.SetWCRT(m.Period()+1, true)

		Expect(checker.Verdict(m)).To(Equal(bus.NotSchedulable))
	})

	It("should reject a non-converged message", func() {
		msgs := prioritizedMessages(bus.Descriptor{Name: "lost", Sender: "BC",
			Receiver: "RT1", PayloadWords: 10, Frequency: 100})
		m := msgs[0]
		m.SetWCRT(1, false)

		Expect(checker.Verdict(m)).To(Equal(bus.NotSchedulable))
	})

	It("should compute the shortest period and total delay", func() {
		msgs := annotatedMessages(mixedTraffic()...)

		shortest, err := ShortestPeriod(msgs)

		Expect(err).ToNot(HaveOccurred())
		Expect(shortest).To(Equal(bus.VTimeInUs(10000)))
		Expect(TotalDelay(msgs)).To(Equal(bus.VTimeInUs(1374)))
	})

	It("should be consistent below the utilization bound", func() {
		msgs := annotatedMessages(mixedTraffic()...)

		res, err := checker.Utilization(msgs)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Value).To(BeNumerically("~", 0.1374, 1e-12))
		Expect(res.Conclusion).To(Equal(UtilizationConsistent))
	})

	It("should be inconclusive above the bound even if all messages pass", func() {
		msgs := prioritizedMessages(
			bus.Descriptor{Name: "x", Sender: "BC", Receiver: "RT1", PayloadWords: 40, Frequency: 1000},
			bus.Descriptor{Name: "y", Sender: "RT1", Receiver: "RT2", PayloadWords: 20, Frequency: 10},
		)
		rta := MakeResponseTimeAnalyzerBuilder().Build()
		Expect(rta.AnalyzeAll(context.Background(), msgs)).To(Succeed())
		Expect(checker.CheckAll(msgs)).To(Succeed())

		res, err := checker.Utilization(msgs)

		Expect(err).ToNot(HaveOccurred())
		Expect(res.Value).To(BeNumerically("~", 1.362, 1e-12))
		Expect(res.Conclusion).To(Equal(UtilizationInconclusive))
		Expect(res.Conclusion.String()).To(Equal("inconclusive"))
		Expect(byName(msgs)["y"].Verdict()).To(Equal(bus.Schedulable))
		Expect(byName(msgs)["x"].Verdict()).To(Equal(bus.NotSchedulable))
	})

	It("should reject empty sets", func() {
		_, err := ShortestPeriod(nil)
		Expect(err).To(MatchError(bus.ErrEmptyMessageSet))

		_, err = checker.Utilization(nil)
		Expect(err).To(MatchError(bus.ErrEmptyMessageSet))

		Expect(checker.CheckAll(nil)).To(MatchError(bus.ErrEmptyMessageSet))
	})
})
