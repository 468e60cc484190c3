package descriptor

import (
	"fmt"
	"io"

	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Messages []yamlMessage `yaml:"messages"`
}

type yamlMessage struct {
	Name         string  `yaml:"name"`
	Sender       string  `yaml:"sender"`
	Receiver     string  `yaml:"receiver"`
	PayloadWords int     `yaml:"payload_words"`
	Frequency    float64 `yaml:"frequency"`
}

type yamlResultFile struct {
	Messages []yamlResult `yaml:"messages"`
}

type yamlResult struct {
	Name              string  `yaml:"name"`
	Frequency         float64 `yaml:"frequency"`
	PayloadWords      int     `yaml:"payload_words"`
	Sender            string  `yaml:"sender"`
	Receiver          string  `yaml:"receiver"`
	TransmissionDelay float64 `yaml:"transmission_delay_us"`
	Priority          int     `yaml:"priority,omitempty"`
	WCRT              float64 `yaml:"wcrt_us"`
	AccessDelay       float64 `yaml:"access_delay_us"`
	Converged         bool    `yaml:"converged"`
	Verdict           string  `yaml:"verdict"`
}

func readYAML(r io.Reader) ([]bus.Descriptor, error) {
	var file yamlFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decoding yaml: %w: %w", bus.ErrMalformedDescriptor, err)
	}

	descs := make([]bus.Descriptor, 0, len(file.Messages))
	for _, m := range file.Messages {
		descs = append(descs, bus.Descriptor{
			Name:         m.Name,
			Sender:       m.Sender,
			Receiver:     m.Receiver,
			PayloadWords: m.PayloadWords,
			Frequency:    bus.Freq(m.Frequency),
		})
	}

	return descs, nil
}

func writeYAML(
	w io.Writer,
	results []analysis.MessageResult,
	opts WriteOptions,
) error {
	file := yamlResultFile{Messages: make([]yamlResult, 0, len(results))}

	for _, r := range results {
		entry := yamlResult{
			Name:              r.Name,
			Frequency:         r.Frequency,
			PayloadWords:      r.PayloadWords,
			Sender:            r.Sender,
			Receiver:          r.Receiver,
			TransmissionDelay: r.TransmissionDelay,
			WCRT:              r.WCRT,
			AccessDelay:       r.AccessDelay,
			Converged:         r.Converged,
			Verdict:           r.Verdict.String(),
		}

		if !opts.OmitPriority {
			entry.Priority = r.Priority
		}

		file.Messages = append(file.Messages, entry)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(file)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}

	return enc.Close()
}
