// Package detection provides hand detection used to annotate frames.
// The heavy lifting is delegated to an external model (see palm).
package detection

import (
	"github.com/teslashibe/go-chdk/pkg/frame"
)

// Detection represents a detected hand
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the normalized center of the box.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Centered reports whether the box center lies at least margin away from
// every frame edge.
func (d Detection) Centered(margin float64) bool {
	x, y := d.Center()
	return x >= margin && x <= 1-margin && y >= margin && y <= 1-margin
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Pixels converts the normalized box to pixel coordinates in a frame of
// the given size, clamped to the frame.
func (d Detection) Pixels(cols, rows int) (x0, y0, x1, y1 int) {
	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}
	x0 = clamp(int(d.X*float64(cols)), cols-1)
	y0 = clamp(int(d.Y*float64(rows)), rows-1)
	x1 = clamp(int((d.X+d.W)*float64(cols)), cols-1)
	y1 = clamp(int((d.Y+d.H)*float64(rows)), rows-1)
	return x0, y0, x1, y1
}

// Annotator finds hands in a frame and draws them onto it in place.
type Annotator interface {
	Annotate(f *frame.Frame) ([]Detection, error)
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	NMSThresh        float64 // Non-maximum suppression overlap
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns defaults for a YOLOv8n hand model
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/hand_yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Prominent returns the hand that dominates the frame: confidence weighs
// 0.7 and box area, relative to the largest box, weighs 0.3. Ties go to the
// earlier detection. ok is false for an empty slice.
func Prominent(dets []Detection) (best Detection, ok bool) {
	var largest float64
	for _, d := range dets {
		largest = max(largest, d.Area())
	}

	top := -1.0
	for _, d := range dets {
		score := 0.7 * d.Confidence
		if largest > 0 {
			score += 0.3 * d.Area() / largest
		}
		if score > top {
			top, best, ok = score, d, true
		}
	}
	return best, ok
}
