package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
)

// The XML layout has a <fichier> root with one <message> element per
// message. Field names are kept from the files produced by the bus
// integration tools.
type xmlFile struct {
	XMLName  xml.Name     `xml:"fichier"`
	Messages []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	Name         string `xml:"nom"`
	Frequency    string `xml:"frequence"`
	PayloadWords string `xml:"taille_mes"`
	Sender       string `xml:"emetteur"`
	Receiver     string `xml:"recepteur"`
}

type xmlResultFile struct {
	XMLName  xml.Name    `xml:"fichier"`
	Messages []xmlResult `xml:"message"`
}

type xmlResult struct {
	Name              string `xml:"nom"`
	Frequency         string `xml:"frequence"`
	PayloadWords      int    `xml:"taille_mes"`
	Sender            string `xml:"emetteur"`
	Receiver          string `xml:"recepteur"`
	TransmissionDelay string `xml:"DT"`
	Priority          *int   `xml:"priority,omitempty"`
	WCRT              string `xml:"DBEB"`
	AccessDelay       string `xml:"DMAC"`
	Verdict           string `xml:"Test"`
	Converged         *bool  `xml:"converged,omitempty"`
}

func readXML(r io.Reader) ([]bus.Descriptor, error) {
	var file xmlFile

	err := xml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decoding xml: %w: %w", bus.ErrMalformedDescriptor, err)
	}

	var errs []error

	descs := make([]bus.Descriptor, 0, len(file.Messages))
	for _, m := range file.Messages {
		d, err := m.descriptor()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		descs = append(descs, d)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return descs, nil
}

func (m xmlMessage) descriptor() (bus.Descriptor, error) {
	name := strings.TrimSpace(m.Name)

	freq, err := strconv.ParseFloat(strings.TrimSpace(m.Frequency), 64)
	if err != nil {
		return bus.Descriptor{}, malformed(name, "frequence", "is not a number")
	}

	words, err := strconv.Atoi(strings.TrimSpace(m.PayloadWords))
	if err != nil {
		return bus.Descriptor{}, malformed(name, "taille_mes", "is not an integer")
	}

	return bus.Descriptor{
		Name:         name,
		Sender:       strings.TrimSpace(m.Sender),
		Receiver:     strings.TrimSpace(m.Receiver),
		PayloadWords: words,
		Frequency:    bus.Freq(freq),
	}, nil
}

func writeXML(
	w io.Writer,
	results []analysis.MessageResult,
	opts WriteOptions,
) error {
	file := xmlResultFile{Messages: make([]xmlResult, 0, len(results))}

	for _, r := range results {
		entry := xmlResult{
			Name:              r.Name,
			Frequency:         formatFloat(r.Frequency),
			PayloadWords:      r.PayloadWords,
			Sender:            r.Sender,
			Receiver:          r.Receiver,
			TransmissionDelay: formatFloat(r.TransmissionDelay),
			WCRT:              formatFloat(r.WCRT),
			AccessDelay:       formatFloat(r.AccessDelay),
			Verdict:           r.Verdict.String(),
		}

		if !opts.OmitPriority {
			p := r.Priority
			entry.Priority = &p
		}

		// DBEB then holds the last iterate, not a response time.
		if !r.Converged {
			converged := false
			entry.Converged = &converged
		}

		file.Messages = append(file.Messages, entry)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "   ")

	err := enc.Encode(file)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, "\n")

	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
