package acquire

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-chdk/pkg/frame"
)

// Kind classifies why an acquisition produced no frame.
type Kind int

const (
	// NotFound means no matching artifact was in the watched directory.
	NotFound Kind = iota + 1
	// ShapeMismatch means an artifact was loaded but had the wrong shape.
	ShapeMismatch
	// IOError covers listing, reading and decoding failures.
	IOError
)

// String returns the metric/log label for the kind.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ShapeMismatch:
		return "shape_mismatch"
	case IOError:
		return "io_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure is the explicit "no frame this time" result. It is expected and
// frequent; callers substitute the last good frame.
type Failure struct {
	Kind Kind
	Path string      // Artifact involved, if any
	Got  frame.Shape // Loaded shape, for ShapeMismatch
	Want frame.Shape // Expected shape, for ShapeMismatch
	Err  error       // Underlying error, for IOError
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch f.Kind {
	case NotFound:
		return "acquire: no artifact found"
	case ShapeMismatch:
		return fmt.Sprintf("acquire: %s has shape %s, want %s", f.Path, f.Got, f.Want)
	default:
		if f.Path != "" {
			return fmt.Sprintf("acquire: %s: %s: %v", f.Kind, f.Path, f.Err)
		}
		return fmt.Sprintf("acquire: %s: %v", f.Kind, f.Err)
	}
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf reports the failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}
