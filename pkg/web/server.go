// Package web serves the capture dashboard: a JPEG preview stream, loop
// status and Prometheus metrics.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-chdk/internal/log"
	"github.com/teslashibe/go-chdk/pkg/capture"
	"github.com/teslashibe/go-chdk/pkg/hub"
)

const maxEvents = 200

// State is what the dashboard shows.
type State struct {
	Running bool           `json:"running"`
	Preset  string         `json:"preset,omitempty"`
	Shape   string         `json:"shape"`
	Started time.Time      `json:"started"`
	Loop    capture.Status `json:"loop"`
}

// Event is a notable occurrence (recycle, launch failure) for the log pane.
type Event struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, recycle, error
	Message string `json:"message"`
}

// Server is the dashboard server.
type Server struct {
	app  *fiber.App
	addr string
	log  *slog.Logger

	state   State
	stateMu sync.RWMutex

	events   []Event
	eventsMu sync.RWMutex

	statusHub *hub.Hub
	eventHub  *hub.Hub
	cameraHub *hub.Hub

	// Guards the lifecycle below. Shutdown may run before, during or
	// after Start.
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	hubsOn  bool
	ln      net.Listener
	stopped bool
}

// NewServer creates a dashboard listening on addr. metrics may be nil,
// in which case /metrics is not served.
func NewServer(addr string, metrics http.Handler, logger *slog.Logger) *Server {
	logger = log.OrDefault(logger).With("component", "web")
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:       ctx,
		cancel:    cancel,
		addr:      addr,
		log:       logger,
		events:    make([]Event, 0, maxEvents),
		statusHub: hub.New("status", hub.WithReplay(), hub.WithLogger(logger)),
		eventHub:  hub.New("events", hub.WithLogger(logger)),
		cameraHub: hub.New("camera", hub.WithReplay(), hub.WithLogger(logger)),
	}

	app := fiber.New(fiber.Config{
		AppName:               "chdkcam",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/events", websocket.New(s.serveHub(s.eventHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// startHubs runs the broadcast hubs until Shutdown. Callers hold s.mu.
func (s *Server) startHubs() {
	if s.hubsOn {
		return
	}
	s.hubsOn = true
	go s.statusHub.Run(s.ctx)
	go s.eventHub.Run(s.ctx)
	go s.cameraHub.Run(s.ctx)
}

// listen starts the hubs and binds addr. It returns a nil listener once
// Shutdown has been called.
func (s *Server) listen() (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, nil
	}
	s.startHubs()
	if s.ln != nil {
		return nil, fmt.Errorf("web: already listening on %s", s.ln.Addr())
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.log.Info("dashboard listening", "addr", ln.Addr().String())
	return ln, nil
}

func (s *Server) serve(ln net.Listener) error {
	err := s.app.Listener(ln)
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		// Accept fails once Shutdown closes the listener.
		return nil
	}
	return err
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil || ln == nil {
		return err
	}
	return s.serve(ln)
}

// StartAsync starts the hubs and binds the address before returning, then
// serves in a goroutine. Failures are logged.
func (s *Server) StartAsync() {
	ln, err := s.listen()
	if err != nil {
		s.log.Error("dashboard not started", "error", err)
		return
	}
	if ln == nil {
		return
	}
	go func() {
		if err := s.serve(ln); err != nil {
			s.log.Error("dashboard stopped", "error", err)
		}
	}()
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// UpdateState applies update and broadcasts the new state.
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.log.Warn("encode state failed", "error", err)
	}
}

// State returns a copy of the current state.
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// AddEvent records an event and broadcasts it.
func (s *Server) AddEvent(kind, message string) {
	e := Event{
		Time:    time.Now().Format("15:04:05"),
		Type:    kind,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if err := s.eventHub.BroadcastJSON(e); err != nil {
		s.log.Warn("encode event failed", "error", err)
	}
}

// SendCameraFrame broadcasts one JPEG preview.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Shutdown stops the hubs and the HTTP server. It is safe to call more
// than once and before Start.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.stopped = true
	s.cancel()
	ln := s.ln
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := s.app.Shutdown()
	// fiber has not seen the listener yet if Shutdown lands right after
	// StartAsync; closing it here makes the pending Listener return.
	_ = ln.Close()
	return err
}
