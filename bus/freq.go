package bus

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// VTimeInUs is a time span measured in microseconds.
type VTimeInUs float64

// Defines the unit of time
const (
	Microsecond VTimeInUs = 1
	Millisecond VTimeInUs = 1e3
	Second      VTimeInUs = 1e6
)

// Period returns the time between two consecutive releases.
func (f Freq) Period() VTimeInUs {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	return VTimeInUs((1 / float64(f)) * float64(Second))
}

// ReleasesWithin returns how many releases of a source running at this
// frequency can start inside a window of the given length that begins with a
// release.
//
//	window
//	[                    )
//	|---------|---------|---------|----->
//	1         2         3
func (f Freq) ReleasesWithin(window VTimeInUs) int64 {
	if math.IsNaN(float64(window)) {
		log.Panic("invalid time")
	}

	if window <= 0 {
		return 0
	}

	return int64(math.Ceil(float64(window / f.Period())))
}
