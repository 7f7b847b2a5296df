// Package debug holds the verbose-output toggles used on the hot path,
// where building slog records for every frame would be wasteful.
package debug

import (
	"fmt"
	"io"
	"os"
)

var (
	// Enabled turns on detector chatter. Set from log level debug.
	Enabled bool

	// Frames prints one line per acquisition and loop iteration
	// (--debug-frames).
	Frames bool

	// Out receives the output.
	Out io.Writer = os.Stderr
)

// Log prints when Enabled is set.
func Log(format string, args ...any) {
	if Enabled {
		fmt.Fprintf(Out, format, args...)
	}
}

// FrameLog prints when Frames is set.
func FrameLog(format string, args ...any) {
	if Frames {
		fmt.Fprintf(Out, format, args...)
	}
}
