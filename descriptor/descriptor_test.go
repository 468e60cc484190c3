package descriptor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<fichier>
   <message>
      <nom>M_NAV</nom>
      <frequence>50</frequence>
      <taille_mes>10</taille_mes>
      <emetteur>SXJJ</emetteur>
      <recepteur>RT1</recepteur>
   </message>
   <message>
      <nom>M_STATUS</nom>
      <frequence>12.5</frequence>
      <taille_mes>4</taille_mes>
      <emetteur>RT2</emetteur>
      <recepteur>RT3</recepteur>
   </message>
</fichier>
`

const sampleYAML = `messages:
  - name: M_NAV
    sender: SXJJ
    receiver: RT1
    payload_words: 10
    frequency: 50
  - name: M_STATUS
    sender: RT2
    receiver: RT3
    payload_words: 4
    frequency: 12.5
`

var sampleDescriptors = []bus.Descriptor{
	{Name: "M_NAV", Sender: "SXJJ", Receiver: "RT1", PayloadWords: 10, Frequency: 50},
	{Name: "M_STATUS", Sender: "RT2", Receiver: "RT3", PayloadWords: 4, Frequency: 12.5},
}

var sampleResults = []analysis.MessageResult{
	{
		Name:              "M_NAV",
		Frequency:         50,
		PayloadWords:      10,
		Sender:            "SXJJ",
		Receiver:          "RT1",
		TransmissionDelay: 256,
		Priority:          1,
		WCRT:              442,
		AccessDelay:       186,
		Converged:         true,
		Verdict:           bus.Schedulable,
	},
	{
		Name:              "M_STATUS",
		Frequency:         12.5,
		PayloadWords:      4,
		Sender:            "RT2",
		Receiver:          "RT3",
		TransmissionDelay: 186,
		Priority:          2,
		WCRT:              90000.5,
		AccessDelay:       89814.5,
		Converged:         false,
		Verdict:           bus.NotSchedulable,
	},
}

var _ = Describe("Format", func() {
	It("should be derived from the extension", func() {
		Expect(FormatFromPath("a/b/input.xml")).To(Equal(FormatXML))
		Expect(FormatFromPath("input.YAML")).To(Equal(FormatYAML))
		Expect(FormatFromPath("input.yml")).To(Equal(FormatYAML))
		Expect(FormatFromPath("out.csv")).To(Equal(FormatCSV))
		Expect(FormatFromPath("out.json")).To(Equal(FormatUnknown))
	})

	It("should refuse to read CSV", func() {
		_, err := Read(strings.NewReader(""), FormatCSV)
		Expect(errors.Is(err, ErrUnsupportedFormat)).To(BeTrue())
	})
})

var _ = Describe("XML", func() {
	It("should read descriptors", func() {
		descs, err := Read(strings.NewReader(sampleXML), FormatXML)

		Expect(err).ToNot(HaveOccurred())
		Expect(descs).To(Equal(sampleDescriptors))
	})

	It("should report fields that are not numbers", func() {
		input := strings.Replace(sampleXML,
			"<frequence>50</frequence>", "<frequence>fast</frequence>", 1)
		input = strings.Replace(input,
			"<taille_mes>4</taille_mes>", "<taille_mes>4.5</taille_mes>", 1)

		_, err := Read(strings.NewReader(input), FormatXML)

		Expect(errors.Is(err, bus.ErrMalformedDescriptor)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("M_NAV"))
		Expect(err.Error()).To(ContainSubstring("frequence"))
		Expect(err.Error()).To(ContainSubstring("M_STATUS"))
		Expect(err.Error()).To(ContainSubstring("taille_mes"))

		var descErr *bus.DescriptorError
		Expect(errors.As(err, &descErr)).To(BeTrue())
	})

	It("should reject an unexpected root element", func() {
		_, err := Read(strings.NewReader("<messages></messages>"), FormatXML)

		Expect(errors.Is(err, bus.ErrMalformedDescriptor)).To(BeTrue())
	})

	It("should write results without priorities", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatXML, sampleResults, WriteOptions{OmitPriority: true})

		Expect(err).ToNot(HaveOccurred())
		out := buf.String()
		Expect(out).To(HavePrefix("<fichier>\n   <message>\n      <nom>M_NAV</nom>"))
		Expect(out).To(ContainSubstring("<DT>256</DT>"))
		Expect(out).To(ContainSubstring("<DBEB>90000.5</DBEB>"))
		Expect(out).To(ContainSubstring("<DMAC>186</DMAC>"))
		Expect(out).To(ContainSubstring("<Test>schedulable</Test>"))
		Expect(out).To(ContainSubstring("<Test>not schedulable</Test>"))
		Expect(out).ToNot(ContainSubstring("priority"))
	})

	It("should mark response times that did not converge", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatXML, sampleResults, WriteOptions{OmitPriority: true})

		Expect(err).ToNot(HaveOccurred())
		out := buf.String()
		Expect(strings.Count(out, "<converged>false</converged>")).To(Equal(1))
		Expect(out).ToNot(ContainSubstring("<converged>true</converged>"))
		Expect(out).To(ContainSubstring(
			"<Test>not schedulable</Test>\n      <converged>false</converged>"))
	})

	It("should write priorities when asked", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatXML, sampleResults, WriteOptions{})

		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("<priority>2</priority>"))
	})

	It("should read back the descriptors of written results", func() {
		buf := new(bytes.Buffer)
		Expect(Write(buf, FormatXML, sampleResults, WriteOptions{})).To(Succeed())

		descs, err := Read(buf, FormatXML)

		Expect(err).ToNot(HaveOccurred())
		Expect(descs).To(Equal(sampleDescriptors))
	})
})

var _ = Describe("YAML", func() {
	It("should read descriptors", func() {
		descs, err := Read(strings.NewReader(sampleYAML), FormatYAML)

		Expect(err).ToNot(HaveOccurred())
		Expect(descs).To(Equal(sampleDescriptors))
	})

	It("should reject unknown fields", func() {
		input := strings.Replace(sampleYAML, "frequency: 50", "rate: 50", 1)

		_, err := Read(strings.NewReader(input), FormatYAML)

		Expect(errors.Is(err, bus.ErrMalformedDescriptor)).To(BeTrue())
	})

	It("should write results", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatYAML, sampleResults, WriteOptions{OmitPriority: true})

		Expect(err).ToNot(HaveOccurred())
		out := buf.String()
		Expect(out).To(ContainSubstring("wcrt_us: 442"))
		Expect(out).To(ContainSubstring("verdict: not schedulable"))
		Expect(out).To(ContainSubstring("converged: false"))
		Expect(out).ToNot(ContainSubstring("priority"))
	})
})

var _ = Describe("CSV", func() {
	It("should write one row per result", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatCSV, sampleResults, WriteOptions{})

		Expect(err).ToNot(HaveOccurred())
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(Equal([]string{
			"Name,Frequency,PayloadWords,Sender,Receiver,TransmissionDelay," +
				"Priority,WCRT,AccessDelay,Converged,Verdict",
			"M_NAV,50,10,SXJJ,RT1,256,1,442,186,true,schedulable",
			"M_STATUS,12.5,4,RT2,RT3,186,2,90000.5,89814.5,false,not schedulable",
		}))
	})

	It("should drop the priority column", func() {
		buf := new(bytes.Buffer)

		err := Write(buf, FormatCSV, sampleResults, WriteOptions{OmitPriority: true})

		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).ToNot(ContainSubstring("Priority"))
	})
})

var _ = Describe("Files", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should read a descriptor file", func() {
		path := filepath.Join(dir, "input.xml")
		Expect(os.WriteFile(path, []byte(sampleXML), 0o644)).To(Succeed())

		descs, err := ReadFile(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(descs).To(HaveLen(2))
	})

	It("should write a result file", func() {
		path := filepath.Join(dir, "results.yaml")

		err := WriteFile(path, sampleResults, WriteOptions{})

		Expect(err).ToNot(HaveOccurred())
		data, err := os.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("name: M_STATUS"))
	})

	It("should refuse unknown extensions", func() {
		err := WriteFile(filepath.Join(dir, "results.json"), sampleResults,
			WriteOptions{})

		Expect(errors.Is(err, ErrUnsupportedFormat)).To(BeTrue())
	})
})
