package bus

import (
	"errors"
	"fmt"
)

// Errors reported by the analysis. Detailed errors wrap one of them.
var (
	ErrMalformedDescriptor   = errors.New("malformed descriptor")
	ErrEmptyMessageSet       = errors.New("empty message set")
	ErrNonConvergentAnalysis = errors.New("non-convergent analysis")
)

// A DescriptorError describes a field of a descriptor that cannot be used.
type DescriptorError struct {
	Name   string
	Field  string
	Reason string
}

func (e *DescriptorError) Error() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}

	return fmt.Sprintf("%s: message %s: %s %s",
		ErrMalformedDescriptor, name, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedDescriptor).
func (e *DescriptorError) Unwrap() error {
	return ErrMalformedDescriptor
}
