package buffer

import (
	"fmt"
	"strings"
	"time"
)

// Clock returns the current time in seconds.
type Clock interface {
	Now() float64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() float64

// Now calls f.
func (f ClockFunc) Now() float64 {
	return f()
}

// Resolution selects the precision of the clock returned by NewClock.
type Resolution int

const (
	// Millisecond reads wall-clock Unix time truncated to milliseconds
	Millisecond Resolution = iota
	// Nanosecond reads a monotonic clock with nanosecond precision
	Nanosecond
)

// Seconds returns the tick size of the resolution in seconds.
func (r Resolution) Seconds() float64 {
	if r == Millisecond {
		return 1e-3
	}
	return 1e-9
}

// String returns the resolution name.
func (r Resolution) String() string {
	switch r {
	case Millisecond:
		return "millisecond"
	case Nanosecond:
		return "nanosecond"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// ParseResolution converts "millisecond"/"ms" or "nanosecond"/"ns".
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "millisecond", "ms":
		return Millisecond, nil
	case "nanosecond", "ns", "":
		return Nanosecond, nil
	default:
		return 0, fmt.Errorf("unknown time resolution %q", s)
	}
}

// NewClock returns a clock of the given resolution.
func NewClock(r Resolution) Clock {
	if r == Millisecond {
		return ClockFunc(func() float64 {
			return float64(time.Now().UnixMilli()) / 1e3
		})
	}

	start := time.Now()
	return ClockFunc(func() float64 {
		return float64(time.Since(start).Nanoseconds()) / 1e9
	})
}
