package detection

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/chdk"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/session"
)

// ZoomMargin keeps zoom-in from pushing a hand out of frame: the prominent
// hand's center must sit this far (normalized) from every edge.
const ZoomMargin = 0.2

// ZoomOnHand wraps an Annotator and nudges the camera zoom whenever the
// most prominent hand in view is near the middle of the frame.
type ZoomOnHand struct {
	inner    Annotator
	cmd      session.Commander
	step     int
	cooldown time.Duration
	logger   *slog.Logger

	last time.Time
	now  func() time.Time
}

// NewZoomOnHand creates the decorator. cooldown 0 zooms on every frame
// with a hand in it.
func NewZoomOnHand(inner Annotator, cmd session.Commander, step int, cooldown time.Duration, logger *slog.Logger) *ZoomOnHand {
	return &ZoomOnHand{
		inner:    inner,
		cmd:      cmd,
		step:     step,
		cooldown: cooldown,
		logger:   log.OrDefault(logger),
		now:      time.Now,
	}
}

// Annotate implements Annotator.
func (z *ZoomOnHand) Annotate(f *frame.Frame) ([]Detection, error) {
	dets, err := z.inner.Annotate(f)
	if err != nil {
		return dets, err
	}
	hand, ok := Prominent(dets)
	if !ok || !hand.Centered(ZoomMargin) {
		return dets, nil
	}

	now := z.now()
	if z.cooldown > 0 && !z.last.IsZero() && now.Sub(z.last) < z.cooldown {
		return dets, nil
	}
	z.last = now

	x, y := hand.Center()
	z.logger.Debug("zooming on hand", "step", z.step, "confidence", hand.Confidence, "x", x, "y", y)
	if err := z.cmd.Send(chdk.SetZoomRel(z.step)); err != nil {
		// The capture loop notices a dead session on its next trigger.
		z.logger.Warn("zoom nudge failed", "error", err)
	}
	return dets, nil
}
