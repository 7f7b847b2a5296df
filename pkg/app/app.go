// Package app wires the capture pipeline together from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teslashibe/go-chdk/internal/config"
	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/acquire"
	"github.com/teslashibe/go-chdk/pkg/capture"
	"github.com/teslashibe/go-chdk/pkg/debug"
	"github.com/teslashibe/go-chdk/pkg/detection"
	"github.com/teslashibe/go-chdk/pkg/detection/palm"
	"github.com/teslashibe/go-chdk/pkg/display"
	"github.com/teslashibe/go-chdk/pkg/display/window"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/frame/cv"
	"github.com/teslashibe/go-chdk/pkg/metrics"
	"github.com/teslashibe/go-chdk/pkg/session"
	"github.com/teslashibe/go-chdk/pkg/web"
)

// App is the capture application. It owns every component and their
// lifecycle: New, Init, Run, Shutdown.
type App struct {
	cfg config.Config
	log *slog.Logger

	metrics  *metrics.Metrics
	manager  *session.Manager
	acquirer *acquire.Acquirer
	detector io.Closer
	display  display.Multi
	web      *web.Server
	loop     *capture.Loop

	lastRecycles int
}

// New validates cfg and creates an application. Nothing is started.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, &config.ValidationError{Problems: problems}
	}
	debug.Enabled = log.ParseLevel(cfg.Log.Level) == slog.LevelDebug
	debug.Frames = cfg.Log.Frames

	return &App{
		cfg: cfg,
		log: log.OrDefault(logger).With("component", "app"),
	}, nil
}

// Init launches chdkptp, runs the startup protocol and builds the loop.
// A *session.LaunchError is returned as is; the run cannot proceed.
func (a *App) Init(ctx context.Context) error {
	a.metrics = metrics.New()

	launch, err := a.cfg.Launch()
	if err != nil {
		return err
	}

	a.log.Info("starting chdkptp", "path", launch.Path, "dir", launch.Dir, "mode", a.cfg.Capture.Mode)
	a.manager = session.NewManager(session.ManagerConfig{
		Launch:          launch,
		Delays:          a.cfg.Delays(),
		StartupCommands: a.cfg.StartupCommands(),
		RecycleCommands: a.cfg.RecycleCommands(),
	}, a.log.With("component", "session"))
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	acqCfg := a.cfg.Acquire()
	acqCfg.Registry = frame.NewRegistry()
	if a.cfg.Capture.Decoder == config.DecoderOpenCV {
		cv.Install(acqCfg.Registry)
	}
	a.acquirer, err = acquire.New(acqCfg, a.manager, a.log.With("component", "acquire"))
	if err != nil {
		return fmt.Errorf("acquirer: %w", err)
	}

	annotator, err := a.initHands()
	if err != nil {
		return fmt.Errorf("hands: %w", err)
	}

	a.initDisplays()

	a.loop, err = capture.New(capture.Config{RecycleEvery: a.cfg.Capture.RecycleEvery}, capture.Deps{
		Acquirer:  a.acquirer,
		Device:    a.manager,
		Display:   a.display,
		Annotator: annotator,
		Metrics:   a.metrics,
		Logger:    a.log.With("component", "capture"),
		OnStatus:  a.onStatus,
	})
	if err != nil {
		return err
	}

	if a.web != nil {
		a.web.UpdateState(func(s *web.State) {
			s.Running = true
			s.Preset = a.cfg.Preset
			s.Shape = a.acquirer.Shape().String()
			s.Started = time.Now()
		})
		a.web.AddEvent("info", "session "+a.manager.ID()+" started")
	}
	return nil
}

func (a *App) initHands() (detection.Annotator, error) {
	if a.cfg.Hands.Model == "" {
		return nil, nil
	}

	det, err := palm.New(a.cfg.Detection())
	if err != nil {
		return nil, err
	}
	a.detector = det
	a.log.Info("hand detection enabled", "model", a.cfg.Hands.Model)

	if a.cfg.Hands.ZoomStep == 0 {
		return det, nil
	}
	return detection.NewZoomOnHand(det, a.manager, a.cfg.Hands.ZoomStep, a.cfg.Hands.ZoomCooldown,
		a.log.With("component", "zoom")), nil
}

func (a *App) initDisplays() {
	d := a.cfg.Display

	if d.Window {
		a.display = append(a.display, window.New(d.Title, d.WaitMs, []rune(d.QuitKey)[0], a.log))
	}

	if d.Web != "" {
		a.web = web.NewServer(d.Web, a.metrics.Handler(), a.log)
		a.web.StartAsync()
		a.display = append(a.display, display.NewWeb(a.web, d.WebFPS, d.JPEGQuality, a.log))
	}

	if !d.Window {
		a.display = append(a.display, display.Headless{Interval: d.Interval})
	}
}

func (a *App) onStatus(s capture.Status) {
	debug.FrameLog("iteration %d: %s (session %s, %d failures in a row)\n",
		s.Iteration, s.LastOutcome, s.SessionID, s.ConsecutiveFailures)

	if a.web == nil {
		return
	}
	a.web.UpdateState(func(st *web.State) { st.Loop = s })
	if s.Recycles != a.lastRecycles {
		a.lastRecycles = s.Recycles
		a.web.AddEvent("recycle", fmt.Sprintf("session %s after %d iterations", s.SessionID, s.Iteration))
	}
}

// Run drives the capture loop until ctx is cancelled or the operator
// quits from the window.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errors.New("app: Run called before Init")
	}
	return a.loop.Run(ctx)
}

// Status returns the loop status.
func (a *App) Status() capture.Status {
	if a.loop == nil {
		return capture.Status{}
	}
	return a.loop.Status()
}

// Shutdown releases everything Init created. It is safe after a failed Init.
func (a *App) Shutdown() error {
	var errs []error

	if a.web != nil {
		a.web.UpdateState(func(s *web.State) { s.Running = false })
		if err := a.web.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("web: %w", err))
		}
	}
	if a.display != nil {
		if err := a.display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("display: %w", err))
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("detector: %w", err))
		}
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session: %w", err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
