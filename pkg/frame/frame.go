// Package frame holds the in-memory pixel buffers produced by the camera
// and the codecs used to load them from disk.
package frame

import (
	"bytes"
	"fmt"
)

// Shape is the (height, width, channels) tuple a frame must match.
type Shape struct {
	Height   int `json:"height" yaml:"height" mapstructure:"height"`
	Width    int `json:"width" yaml:"width" mapstructure:"width"`
	Channels int `json:"channels" yaml:"channels" mapstructure:"channels"`
}

// String renders the shape as HxWxC.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Size returns the number of bytes a frame of this shape occupies.
func (s Shape) Size() int {
	return s.Height * s.Width * s.Channels
}

// Valid reports whether every dimension is positive.
func (s Shape) Valid() bool {
	return s.Height > 0 && s.Width > 0 && s.Channels > 0
}

// Frame is an 8-bit interleaved pixel buffer. Channel order follows the
// file it was loaded from (RGB for PPM and JPEG).
type Frame struct {
	Rows     int
	Cols     int
	Channels int
	Pix      []byte
}

// New allocates a zero-filled frame of the given shape.
func New(s Shape) Frame {
	return Frame{
		Rows:     s.Height,
		Cols:     s.Width,
		Channels: s.Channels,
		Pix:      make([]byte, s.Size()),
	}
}

// Zero is the placeholder shown before any real frame has been acquired.
func Zero(s Shape) Frame {
	return New(s)
}

// Shape returns the frame's dimensions.
func (f Frame) Shape() Shape {
	return Shape{Height: f.Rows, Width: f.Cols, Channels: f.Channels}
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return len(f.Pix) == 0
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	c := f
	c.Pix = append([]byte(nil), f.Pix...)
	return c
}

// Equal reports whether two frames have the same shape and pixels.
func (f Frame) Equal(o Frame) bool {
	return f.Shape() == o.Shape() && bytes.Equal(f.Pix, o.Pix)
}
