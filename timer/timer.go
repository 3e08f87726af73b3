package timer

import (
	"fmt"
	"time"
)

// Timer measures elapsed time using the runtime monotonic clock, so
// wall-clock adjustments during a run cannot skew results.
type Timer struct {
	start time.Time
}

// New returns a ready Timer. It verifies the platform clock actually
// advances; a clock that does not tick would silently produce zero-length
// measurements and bogus bandwidth numbers downstream.
func New() (*Timer, error) {
	a := time.Now()
	for i := 0; i < 1_000_000; i++ {
		if time.Since(a) > 0 {
			return &Timer{}, nil
		}
	}
	return nil, fmt.Errorf("monotonic clock does not advance")
}

// Start records the measurement start point.
func (t *Timer) Start() {
	t.start = time.Now()
}

// Stop returns the elapsed time since Start in seconds.
func (t *Timer) Stop() float64 {
	return time.Since(t.start).Seconds()
}

// StopNs returns the elapsed time since Start in nanoseconds.
func (t *Timer) StopNs() float64 {
	return float64(time.Since(t.start).Nanoseconds())
}
