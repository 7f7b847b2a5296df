// Package session owns the long-lived chdkptp process and the textual
// channel used to drive it.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-chdk/internal/log"
)

// closeGrace is how long Close waits for the process to exit on its own
// after stdin is closed before killing it.
const closeGrace = 500 * time.Millisecond

// Launch describes how to start the external process.
type Launch struct {
	Path string   // Executable path
	Args []string // Command-line flags
	Dir  string   // Working directory; empty inherits ours
}

// Session is one running instance of the external process.
type Session struct {
	id      string
	started time.Time
	cmd     *exec.Cmd
	logger  *slog.Logger

	mu     sync.Mutex // Guards stdin and closed
	stdin  io.WriteCloser
	w      *bufio.Writer
	closed bool

	done    chan struct{} // Closed once the process has exited
	waitErr error
}

// Start launches the process with stdin, stdout and stderr piped.
// Output is drained into the logger at debug level so the process never
// blocks on a full pipe.
func Start(ctx context.Context, l Launch, logger *slog.Logger) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger = log.OrDefault(logger)

	cmd := exec.Command(l.Path, l.Args...)
	cmd.Dir = l.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &LaunchError{Path: l.Path, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &LaunchError{Path: l.Path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &LaunchError{Path: l.Path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Path: l.Path, Err: err}
	}

	s := &Session{
		id:      uuid.New().String(),
		started: time.Now(),
		cmd:     cmd,
		stdin:   stdin,
		w:       bufio.NewWriter(stdin),
		done:    make(chan struct{}),
	}
	s.logger = logger.With("session", s.id)

	var drains sync.WaitGroup
	drains.Add(2)
	go s.drain(&drains, "stdout", stdout)
	go s.drain(&drains, "stderr", stderr)

	go func() {
		// Wait must not run before the pipes are fully read.
		drains.Wait()
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	s.logger.Info("session started", "path", l.Path, "args", l.Args, "pid", cmd.Process.Pid)
	return s, nil
}

func (s *Session) drain(wg *sync.WaitGroup, stream string, r io.Reader) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.logger.Debug("process output", "stream", stream, "line", sc.Text())
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the process has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Alive reports whether the process is still running and writable.
func (s *Session) Alive() bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Send writes command followed by a newline and flushes immediately.
// It does not wait for, or parse, any response.
func (s *Session) Send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	if _, err := s.w.WriteString(command + "\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}

	s.logger.Debug("command sent", "command", command)
	return nil
}

// Init runs the startup protocol: each command is sent in order and
// followed by the startup delay.
func (s *Session) Init(ctx context.Context, commands []string, p DelayPolicy) error {
	return s.sendPaced(ctx, commands, p, p.Startup)
}

func (s *Session) sendPaced(ctx context.Context, commands []string, p DelayPolicy, d time.Duration) error {
	for _, c := range commands {
		if err := s.Send(c); err != nil {
			return fmt.Errorf("send %q: %w", c, err)
		}
		if err := p.Wait(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the process. stdin is closed first so an interactive
// process can exit cleanly; it is killed if it is still running after a
// short grace period. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.logger.Debug("flush stdin on close", "error", err)
	}
	if err := s.stdin.Close(); err != nil {
		s.logger.Debug("close stdin", "error", err)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(closeGrace):
		if err := s.cmd.Process.Kill(); err != nil {
			select {
			case <-s.done:
			default:
				return fmt.Errorf("session: kill %d: %w", s.cmd.Process.Pid, err)
			}
		}
		select {
		case <-s.done:
		case <-time.After(closeGrace):
			// A child may still hold the output pipes open.
			return fmt.Errorf("session: process %d did not exit after kill", s.cmd.Process.Pid)
		}
	}

	s.logger.Info("session closed", "uptime", time.Since(s.started).Round(time.Millisecond))
	return nil
}

// Restart terminates old (best-effort) and starts a fresh session.
// A failure to terminate is logged, never returned.
func Restart(ctx context.Context, old *Session, l Launch, logger *slog.Logger) (*Session, error) {
	logger = log.OrDefault(logger)
	if old != nil {
		if err := old.Close(); err != nil {
			logger.Warn("terminate old session failed", "session", old.ID(), "error", err)
		}
	}
	return Start(ctx, l, logger)
}
