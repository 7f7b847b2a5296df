// Package window shows frames in an OpenCV HighGUI window.
package window

import (
	"log/slog"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/frame/cv"
	"gocv.io/x/gocv"
)

// Window is a preview window. Its key wait paces the capture loop.
type Window struct {
	win     *gocv.Window
	waitMs  int
	quitKey rune
	logger  *slog.Logger
}

// New opens a window. waitMs is passed to WaitKey after each frame;
// pressing quitKey cancels the loop.
func New(title string, waitMs int, quitKey rune, logger *slog.Logger) *Window {
	if waitMs <= 0 {
		waitMs = 1
	}
	return &Window{
		win:     gocv.NewWindow(title),
		waitMs:  waitMs,
		quitKey: quitKey,
		logger:  log.OrDefault(logger),
	}
}

// Show implements display.Display.
func (w *Window) Show(f frame.Frame) bool {
	m, err := cv.ToMat(f)
	if err != nil {
		w.logger.Warn("cannot show frame", "shape", f.Shape().String(), "error", err)
	} else {
		w.win.IMShow(m)
		m.Close()
	}
	return w.win.WaitKey(w.waitMs) == int(w.quitKey)
}

// Close implements display.Display.
func (w *Window) Close() error {
	return w.win.Close()
}
