package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-chdk/internal/log"
)

// Commander sends one textual command to the device.
type Commander interface {
	Send(command string) error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Launch          Launch
	Delays          DelayPolicy
	StartupCommands []string // Sent once after the first launch
	RecycleCommands []string // Re-issued after every restart
}

// Manager owns the single live Session and implements the recycle step.
// It is not safe for concurrent use; the capture loop is its only caller.
type Manager struct {
	cfg     ManagerConfig
	logger  *slog.Logger
	session *Session
	starts  int
}

// NewManager creates a manager. Nothing is launched until Start.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: log.OrDefault(logger),
	}
}

// Start launches the process and runs the startup protocol.
// A *LaunchError here is fatal for the run.
func (m *Manager) Start(ctx context.Context) error {
	if m.session != nil {
		return fmt.Errorf("session: already started (%s)", m.session.ID())
	}

	s, err := Start(ctx, m.cfg.Launch, m.logger)
	if err != nil {
		return err
	}
	m.session = s
	m.starts++

	m.logger.Info("running startup sequence", "commands", len(m.cfg.StartupCommands), "delay", m.cfg.Delays.Startup)
	if err := s.Init(ctx, m.cfg.StartupCommands, m.cfg.Delays); err != nil {
		return fmt.Errorf("startup sequence: %w", err)
	}
	return nil
}

// Send forwards command to the live session.
func (m *Manager) Send(command string) error {
	if m.session == nil {
		return ErrSessionClosed
	}
	return m.session.Send(command)
}

// Recycle terminates the current session, starts a new one, and
// re-issues the recycle commands.
func (m *Manager) Recycle(ctx context.Context) error {
	old := ""
	if m.session != nil {
		old = m.session.ID()
	}

	s, err := Restart(ctx, m.session, m.cfg.Launch, m.logger)
	if err != nil {
		m.session = nil
		return fmt.Errorf("recycle: %w", err)
	}
	m.session = s
	m.starts++

	m.logger.Info("session recycled", "old", old, "new", s.ID(), "starts", m.starts)
	if err := s.sendPaced(ctx, m.cfg.RecycleCommands, m.cfg.Delays, m.cfg.Delays.Recycle); err != nil {
		return fmt.Errorf("recycle: %w", err)
	}
	return nil
}

// ID returns the live session's identifier, or "" if none.
func (m *Manager) ID() string {
	if m.session == nil {
		return ""
	}
	return m.session.ID()
}

// Starts returns how many times a process has been launched.
func (m *Manager) Starts() int {
	return m.starts
}

// Close terminates the live session, if any.
func (m *Manager) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}
