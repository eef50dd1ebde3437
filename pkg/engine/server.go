// Package engine provides the core sink server engine: the listener,
// the request handler, and the wiring between rule matching, template
// rendering, sequence execution, and request history.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hooksink/hooksink/internal/matching"
	"github.com/hooksink/hooksink/pkg/config"
	"github.com/hooksink/hooksink/pkg/logging"
	"github.com/hooksink/hooksink/pkg/requestlog"
	"github.com/hooksink/hooksink/pkg/sequence"
	"github.com/hooksink/hooksink/pkg/template"
	"github.com/hooksink/hooksink/pkg/ui"
)

// DefaultPort is the port the sink listens on when none is configured.
const DefaultPort = 4000

// Server owns the HTTP listener and the component wiring.
type Server struct {
	port           int
	handler        *Handler
	httpServer     *http.Server
	history        *requestlog.MemoryStore
	runner         *sequence.Runner
	log            *slog.Logger
	webhookTimeout time.Duration
	logCapacity    int
	enableUI       bool

	mu        sync.Mutex
	running   bool
	startTime time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPort sets the listen port.
func WithPort(port int) ServerOption {
	return func(s *Server) {
		if port > 0 {
			s.port = port
		}
	}
}

// WithWebhookTimeout sets the outbound webhook call timeout.
func WithWebhookTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.webhookTimeout = d
		}
	}
}

// WithLogCapacity sets how many request history entries are retained.
func WithLogCapacity(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.logCapacity = n
		}
	}
}

// WithUI enables the manual-calling web UI.
func WithUI(enabled bool) ServerOption {
	return func(s *Server) {
		s.enableUI = enabled
	}
}

// NewServer creates a Server for the given configuration.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		port:           DefaultPort,
		log:            logging.Nop(),
		webhookTimeout: sequence.DefaultTimeout,
		logCapacity:    requestlog.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.history = requestlog.NewMemoryStore(s.logCapacity)
	s.runner = sequence.NewRunner(template.New(),
		sequence.WithLogger(s.log),
		sequence.WithRecorder(s.history),
		sequence.WithTimeout(s.webhookTimeout))

	s.handler = NewHandler(matching.NewRuleSet(cfg), s.runner, s.history)
	s.handler.SetLogger(s.log)

	if s.enableUI {
		panel := ui.New(func() []*config.Rule {
			return s.handler.RuleSet().ManualRules()
		})
		panel.SetLogger(s.log)
		s.handler.MountUI(ui.MountPath, panel)
	}

	return s
}

// SetConfig atomically swaps in a new configuration. Used for hot
// reload; running sequences and in-flight requests are unaffected.
func (s *Server) SetConfig(cfg *config.Config) {
	s.handler.SetRules(matching.NewRuleSet(cfg))
	s.log.Info("configuration reloaded", "rules", len(cfg.Endpoints))
}

// Handler returns the root HTTP handler, for embedding in tests.
func (s *Server) Handler() *Handler {
	return s.handler
}

// History returns the request history store.
func (s *Server) History() *requestlog.MemoryStore {
	return s.history
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Start begins listening. It returns once the listener is bound; serving
// happens on a background goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout: responses are small and written immediately,
		// and sequences run outside the request lifecycle anyway.
	}

	s.log.Info("starting HTTP sink", "port", s.port, "ui", s.enableUI)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	return nil
}

// Stop gracefully shuts down the listener. Detached sequence goroutines
// are deliberately not awaited.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("HTTP shutdown: %w", err)
		}
	}

	s.running = false
	return nil
}

// IsRunning reports whether the listener is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Uptime returns seconds since Start, 0 when stopped.
func (s *Server) Uptime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return int(time.Since(s.startTime).Seconds())
}
