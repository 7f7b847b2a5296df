// Package capture drives continuous acquisition, display and periodic
// recycling of the device session.
//
// The loop is single-threaded: only Run touches the session, the watched
// directory and the last good frame. Cancellation is polled once per
// iteration. There is no staleness detection; a wedged chdkptp is only
// recovered by the scheduled recycle.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/acquire"
	"github.com/teslashibe/go-chdk/pkg/detection"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/metrics"
	"github.com/teslashibe/go-chdk/pkg/session"
)

// DefaultRecycleEvery is the number of iterations between session restarts.
const DefaultRecycleEvery = 50

// Acquirer produces one frame per call or an error.
type Acquirer interface {
	Acquire(ctx context.Context) (frame.Frame, error)
	Shape() frame.Shape
}

// Device is the recyclable external session.
type Device interface {
	Recycle(ctx context.Context) error
	ID() string
	Close() error
}

// Display shows frames and reports operator cancellation.
type Display interface {
	Show(f frame.Frame) (cancel bool)
}

// Outcome labels what happened in the last iteration.
const (
	OutcomeFrame         = "frame"
	OutcomeSessionClosed = "session_closed"
	OutcomeCancelled     = "cancelled"
)

// Status is a snapshot of the loop for dashboards.
type Status struct {
	Iteration           int       `json:"iteration"`
	FramesAcquired      int       `json:"frames_acquired"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Recycles            int       `json:"recycles"`
	SessionID           string    `json:"session_id"`
	LastOutcome         string    `json:"last_outcome"`
	Hands               int       `json:"hands"`
	HandConfidence      float64   `json:"hand_confidence"` // Of the most prominent hand
	UpdatedAt           time.Time `json:"updated_at"`
}

// Config holds loop parameters.
type Config struct {
	// RecycleEvery restarts the session after this many iterations.
	// Zero or negative disables scheduled recycling.
	RecycleEvery int
}

// Deps are the loop's collaborators. Annotator, Metrics, Logger and
// OnStatus are optional.
type Deps struct {
	Acquirer  Acquirer
	Device    Device
	Display   Display
	Annotator detection.Annotator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	OnStatus  func(Status)
}

// Loop is the capture loop context. All mutable state lives here.
type Loop struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	lastGood frame.Frame
	window   int // Iterations since the last recycle
	status   Status
}

// New creates a loop. The last good frame starts as a zero buffer of the
// acquirer's shape so the first Show always has something valid.
func New(cfg Config, deps Deps) (*Loop, error) {
	if deps.Acquirer == nil || deps.Device == nil || deps.Display == nil {
		return nil, fmt.Errorf("capture: acquirer, device and display are required")
	}
	shape := deps.Acquirer.Shape()
	if !shape.Valid() {
		return nil, fmt.Errorf("capture: invalid frame shape %s", shape)
	}

	return &Loop{
		cfg:      cfg,
		deps:     deps,
		log:      log.OrDefault(deps.Logger).With("component", "capture"),
		lastGood: frame.Zero(shape),
	}, nil
}

// Run acquires and shows frames until ctx is cancelled or the display
// asks to stop, then releases the device session.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.deps.Device.Close(); err != nil {
			l.log.Warn("release session failed", "error", err)
		}
	}()

	l.log.Info("capture loop running", "shape", l.lastGood.Shape().String(), "recycle_every", l.cfg.RecycleEvery)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("capture loop cancelled", "iterations", l.status.Iteration)
			return nil
		default:
		}

		if l.Step(ctx) {
			l.log.Info("capture loop stopped by operator", "iterations", l.status.Iteration)
			return nil
		}

		if l.cfg.RecycleEvery > 0 && l.window >= l.cfg.RecycleEvery {
			l.recycle(ctx, metrics.ReasonScheduled)
		}
	}
}

// Step runs one iteration: acquire, fall back on failure, annotate,
// display. It reports whether the display asked to stop.
func (l *Loop) Step(ctx context.Context) bool {
	l.status.Iteration++
	l.window++
	m := l.deps.Metrics
	if m != nil {
		m.Iterations.Inc()
	}

	start := time.Now()
	f, err := l.deps.Acquirer.Acquire(ctx)
	if m != nil {
		m.AcquireDuration.Observe(time.Since(start).Seconds())
	}

	shown := l.lastGood
	switch {
	case err == nil:
		l.lastGood = f
		l.status.FramesAcquired++
		l.status.ConsecutiveFailures = 0
		l.status.LastOutcome = OutcomeFrame
		if m != nil {
			m.FramesAcquired.Inc()
		}
		shown = l.annotate(f)

	case errors.Is(err, session.ErrSessionClosed):
		l.fail(OutcomeSessionClosed)
		l.log.Warn("device session closed, recycling", "error", err)
		l.recycle(ctx, metrics.ReasonSessionClosed)

	case ctx.Err() != nil:
		l.status.LastOutcome = OutcomeCancelled

	default:
		label := "other"
		if kind, ok := acquire.KindOf(err); ok {
			label = kind.String()
		} else {
			l.log.Warn("acquire failed", "error", err)
		}
		l.fail(label)
	}

	if m != nil {
		m.ConsecutiveFailures.Set(float64(l.status.ConsecutiveFailures))
	}
	l.publish()

	return l.deps.Display.Show(shown)
}

func (l *Loop) fail(label string) {
	l.status.Failures++
	l.status.ConsecutiveFailures++
	l.status.LastOutcome = label
	if l.deps.Metrics != nil {
		l.deps.Metrics.AcquireFailures.WithLabelValues(label).Inc()
	}
}

// annotate draws onto a copy so the retained last good frame stays clean.
func (l *Loop) annotate(f frame.Frame) frame.Frame {
	if l.deps.Annotator == nil {
		return f
	}

	out := f.Clone()
	dets, err := l.deps.Annotator.Annotate(&out)
	if err != nil {
		l.log.Warn("annotation failed", "error", err)
		return f
	}

	l.status.Hands = len(dets)
	l.status.HandConfidence = 0
	if hand, ok := detection.Prominent(dets); ok {
		l.status.HandConfidence = hand.Confidence
	}
	if l.deps.Metrics != nil && len(dets) > 0 {
		l.deps.Metrics.HandsDetected.Add(float64(len(dets)))
	}
	return out
}

// recycle restarts the device session. Failure is logged and the next
// window retries; acquisition failures in between fall back as usual.
func (l *Loop) recycle(ctx context.Context, reason string) {
	l.window = 0
	l.status.Recycles++
	if l.deps.Metrics != nil {
		l.deps.Metrics.Recycles.WithLabelValues(reason).Inc()
	}

	if err := l.deps.Device.Recycle(ctx); err != nil {
		if l.deps.Metrics != nil {
			l.deps.Metrics.RecycleErrors.Inc()
		}
		l.log.Error("session recycle failed", "reason", reason, "error", err)
		return
	}
	l.log.Info("session recycled", "reason", reason, "session", l.deps.Device.ID())
}

func (l *Loop) publish() {
	l.status.SessionID = l.deps.Device.ID()
	l.status.UpdatedAt = time.Now()
	if l.deps.OnStatus != nil {
		l.deps.OnStatus(l.status)
	}
}

// Status returns a snapshot of the loop state.
func (l *Loop) Status() Status {
	return l.status
}

// LastGood returns the frame shown when acquisition fails.
func (l *Loop) LastGood() frame.Frame {
	return l.lastGood
}
