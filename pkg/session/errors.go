package session

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when writing to a session whose process
// has exited or whose input stream has been closed.
var ErrSessionClosed = errors.New("session: closed")

// LaunchError is returned when the external process cannot be started.
type LaunchError struct {
	// Path is the executable that failed to start.
	Path string

	// Err is the underlying exec error.
	Err error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("session: launch %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}
