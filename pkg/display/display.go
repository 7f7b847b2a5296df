// Package display shows frames to the operator and reports when they
// ask to stop.
package display

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/frame"
)

// Display receives every frame the capture loop shows.
type Display interface {
	// Show presents f and reports whether the operator asked to stop.
	Show(f frame.Frame) (cancel bool)

	// Close releases resources
	Close() error
}

// Multi fans frames out to several displays. Any of them can cancel.
type Multi []Display

// Show implements Display.
func (m Multi) Show(f frame.Frame) bool {
	cancel := false
	for _, d := range m {
		if d.Show(f) {
			cancel = true
		}
	}
	return cancel
}

// Close implements Display.
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Headless paces the loop when no window is open. The window's key wait
// normally provides that pacing.
type Headless struct {
	Interval time.Duration
}

// Show implements Display.
func (h Headless) Show(frame.Frame) bool {
	if h.Interval > 0 {
		time.Sleep(h.Interval)
	}
	return false
}

// Close implements Display.
func (Headless) Close() error { return nil }

// FrameSink receives encoded JPEG previews.
type FrameSink interface {
	SendCameraFrame(jpeg []byte)
}

// Web encodes frames as JPEG and pushes them to a FrameSink, at most
// maxFPS times per second.
type Web struct {
	sink    FrameSink
	quality int
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewWeb creates a web preview display. maxFPS <= 0 sends every frame.
func NewWeb(sink FrameSink, maxFPS float64, quality int, logger *slog.Logger) *Web {
	limit := rate.Inf
	if maxFPS > 0 {
		limit = rate.Limit(maxFPS)
	}
	return &Web{
		sink:    sink,
		quality: quality,
		limiter: rate.NewLimiter(limit, 1),
		logger:  log.OrDefault(logger),
	}
}

// Show implements Display. The web preview never cancels the loop.
func (w *Web) Show(f frame.Frame) bool {
	if !w.limiter.Allow() {
		return false
	}
	data, err := frame.EncodeJPEG(f, w.quality)
	if err != nil {
		w.logger.Warn("preview encode failed", "error", err)
		return false
	}
	w.sink.SendCameraFrame(data)
	return false
}

// Close implements Display.
func (w *Web) Close() error { return nil }
