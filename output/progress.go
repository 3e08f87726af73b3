package output

import (
	"fmt"
	"io"
)

var spinnerFrames = []byte{'|', '/', '-', '\\'}

// Spinner is the console Progress implementation: one frame advance per
// benchmark phase, overwriting itself in place on the carriage return.
type Spinner struct {
	w io.Writer
	n int
}

// NewSpinner writes frames to w, typically os.Stderr so the report on
// stdout stays clean.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Step advances the spinner one frame.
func (s *Spinner) Step() {
	fmt.Fprintf(s.w, "\r%c", spinnerFrames[s.n%len(spinnerFrames)])
	s.n++
}

// Clear erases the spinner before result lines are printed.
func (s *Spinner) Clear() {
	fmt.Fprint(s.w, "\r \r")
}
