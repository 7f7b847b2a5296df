// Package acquire turns "a dump command was issued" into either a
// validated frame or an explicit Failure.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/debug"
	"github.com/teslashibe/go-chdk/pkg/frame"
	"github.com/teslashibe/go-chdk/pkg/session"
)

// Config holds acquisition parameters.
type Config struct {
	Dir       string      // Watched directory the device writes into
	Extension string      // Artifact extension, e.g. ".ppm"
	Filename  string      // If set, only this file is considered
	Shape     frame.Shape // Every accepted frame must match exactly

	// TriggerCommand is sent before each poll. Empty means the device
	// produces artifacts on its own (continuous remote shooting).
	TriggerCommand string

	// TriggerDelay is the blind wait between trigger and poll.
	TriggerDelay time.Duration

	// DiscardOlder removes matching artifacts older than the one picked.
	DiscardOlder bool

	// Registry decodes artifacts by extension. Nil uses frame.NewRegistry().
	Registry *frame.Registry
}

// Acquirer polls the watched directory for artifacts.
type Acquirer struct {
	cfg    Config
	cmd    session.Commander
	logger *slog.Logger
	delays session.DelayPolicy
}

// New creates an acquirer. cmd may be nil when TriggerCommand is empty.
func New(cfg Config, cmd session.Commander, logger *slog.Logger) (*Acquirer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("acquire: watched directory required")
	}
	if !cfg.Shape.Valid() {
		return nil, fmt.Errorf("acquire: invalid expected shape %s", cfg.Shape)
	}
	if cfg.TriggerCommand != "" && cmd == nil {
		return nil, fmt.Errorf("acquire: trigger command set but no commander")
	}
	cfg.Extension = frame.NormalizeExt(cfg.Extension)
	if cfg.Extension == "" && cfg.Filename == "" {
		return nil, fmt.Errorf("acquire: extension or filename required")
	}
	if cfg.Registry == nil {
		cfg.Registry = frame.NewRegistry()
	}

	return &Acquirer{
		cfg:    cfg,
		cmd:    cmd,
		logger: log.OrDefault(logger).With("component", "acquire"),
	}, nil
}

// Shape returns the expected frame shape.
func (a *Acquirer) Shape() frame.Shape {
	return a.cfg.Shape
}

// Acquire triggers a dump, then claims and validates the artifact.
// Errors from sending the trigger (session.ErrSessionClosed) are returned
// unchanged; everything else is a *Failure. It never blocks waiting for
// an artifact to appear.
func (a *Acquirer) Acquire(ctx context.Context) (frame.Frame, error) {
	if a.cfg.TriggerCommand != "" {
		if err := a.cmd.Send(a.cfg.TriggerCommand); err != nil {
			return frame.Frame{}, err
		}
	}
	if a.cfg.TriggerDelay > 0 {
		if err := a.delays.Wait(ctx, a.cfg.TriggerDelay); err != nil {
			return frame.Frame{}, err
		}
	}

	path, err := a.pick()
	if err != nil {
		return frame.Frame{}, &Failure{Kind: IOError, Err: err}
	}
	if path == "" {
		debug.FrameLog("📭 no artifact in %s\n", a.cfg.Dir)
		return frame.Frame{}, &Failure{Kind: NotFound}
	}

	// The header is checked first so a wrong or corrupt size never
	// reaches the pixel allocation.
	if got, ok, err := a.cfg.Registry.Probe(path); ok {
		if err != nil {
			a.claim(path)
			return frame.Frame{}, &Failure{Kind: IOError, Path: path, Err: err}
		}
		if got != a.cfg.Shape {
			a.claim(path)
			return frame.Frame{}, a.mismatch(path, got)
		}
	}

	f, err := a.cfg.Registry.Load(path)
	a.claim(path)
	if err != nil {
		return frame.Frame{}, &Failure{Kind: IOError, Path: path, Err: err}
	}

	if f.Shape() != a.cfg.Shape {
		return frame.Frame{}, a.mismatch(path, f.Shape())
	}

	debug.FrameLog("📷 %s %s\n", filepath.Base(path), f.Shape())
	return f, nil
}

func (a *Acquirer) mismatch(path string, got frame.Shape) *Failure {
	a.logger.Error("frame shape mismatch, check camera resolution",
		"path", path, "got", got.String(), "want", a.cfg.Shape.String())
	return &Failure{Kind: ShapeMismatch, Path: path, Got: got, Want: a.cfg.Shape}
}

// claim removes a consumed artifact so it is never read twice.
func (a *Acquirer) claim(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.logger.Warn("remove artifact failed", "path", path, "error", err)
	}
}

// pick selects the artifact to consume, or "" if there is none.
// With a fixed Filename only that file counts. Otherwise the newest
// matching file wins, ties broken by the greater name, so the choice
// never depends on directory listing order.
func (a *Acquirer) pick() (string, error) {
	if a.cfg.Filename != "" {
		path := filepath.Join(a.cfg.Dir, a.cfg.Filename)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !info.Mode().IsRegular() {
			return "", nil
		}
		return path, nil
	}

	entries, err := os.ReadDir(a.cfg.Dir)
	if err != nil {
		return "", err
	}

	var (
		best     string
		bestTime time.Time
		older    []string
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), a.cfg.Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Claimed or replaced by the writer between listing and stat.
			continue
		}
		mt := info.ModTime()
		if best == "" || mt.After(bestTime) || (mt.Equal(bestTime) && e.Name() > best) {
			if best != "" {
				older = append(older, best)
			}
			best, bestTime = e.Name(), mt
		} else {
			older = append(older, e.Name())
		}
	}

	if best == "" {
		return "", nil
	}
	if a.cfg.DiscardOlder {
		for _, name := range older {
			a.claim(filepath.Join(a.cfg.Dir, name))
		}
		if len(older) > 0 {
			a.logger.Debug("discarded stale artifacts", "count", len(older))
		}
	}
	return filepath.Join(a.cfg.Dir, best), nil
}
