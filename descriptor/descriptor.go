// Package descriptor reads message descriptors and writes analysis results in
// the supported file formats.
package descriptor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
)

// Format is a file format for descriptors or results.
type Format int

// Supported formats. CSV can only be written.
const (
	FormatUnknown Format = iota
	FormatXML
	FormatYAML
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatYAML:
		return "yaml"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned when a file format cannot be handled.
var ErrUnsupportedFormat = errors.New("unsupported format")

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// WriteOptions controls how results are written.
type WriteOptions struct {
	// OmitPriority drops the priority column from the output.
	OmitPriority bool
}

// Read decodes descriptors from r.
func Read(r io.Reader, format Format) ([]bus.Descriptor, error) {
	switch format {
	case FormatXML:
		return readXML(r)
	case FormatYAML:
		return readYAML(r)
	default:
		return nil, fmt.Errorf("reading %s: %w", format, ErrUnsupportedFormat)
	}
}

// ReadFile decodes the descriptors stored in a file. The format is derived
// from the file extension.
func ReadFile(path string) ([]bus.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	descs, err := Read(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return descs, nil
}

// Write encodes analysis results into w.
func Write(
	w io.Writer,
	format Format,
	results []analysis.MessageResult,
	opts WriteOptions,
) error {
	switch format {
	case FormatXML:
		return writeXML(w, results, opts)
	case FormatYAML:
		return writeYAML(w, results, opts)
	case FormatCSV:
		return writeCSV(w, results, opts)
	default:
		return fmt.Errorf("writing %s: %w", format, ErrUnsupportedFormat)
	}
}

// WriteFile writes analysis results into a file, replacing it if it exists.
// The format is derived from the file extension.
func WriteFile(
	path string,
	results []analysis.MessageResult,
	opts WriteOptions,
) error {
	format := FormatFromPath(path)
	if format == FormatUnknown {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = Write(f, format, results, opts)
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	return f.Close()
}

func malformed(name, field, reason string) error {
	return &bus.DescriptorError{Name: name, Field: field, Reason: reason}
}
