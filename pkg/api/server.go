// Package api provides the admin HTTP server of the chat backend.
//
// The API is an operations surface, not a chat transport: it exposes
// health probes and read-only runtime statistics over the TCP adapters
// and the chat store. Chat clients speak the framed RPC protocol to the
// data and broadcast servers instead.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/store/chat"
)

// AdapterInfo is the view of a TCP server adapter the API reports on.
// Both chat adapters satisfy it through their embedded BaseAdapter.
type AdapterInfo interface {
	Protocol() string
	Port() int
	Stats() adapter.Stats
}

// Deps are the runtime components the API server reads from. Any field
// may be nil or empty; the corresponding endpoints degrade gracefully
// (readiness reports unhealthy, subscriber counts are omitted).
type Deps struct {
	// Store backs the readiness probe via Ping.
	Store chat.Store

	// Adapters are the running TCP adapters, reported under /api/v1/stats.
	Adapters []AdapterInfo

	// Subscribers returns the user ids with an open broadcast stream.
	// nil when the broadcast server is disabled.
	Subscribers func() []int64

	// Version is the build version reported by the liveness probe.
	Version string
}

// Server provides an HTTP server for the admin API.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe (chat store ping)
//   - GET /api/v1/stats: Adapter counters, subscriber count, uptime
//   - GET /api/v1/subscribers: User ids with an open stream
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new admin API server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, deps Deps) *Server {
	config.applyDefaults()

	router := NewRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"ready", fmt.Sprintf("http://localhost:%d/health/ready", s.config.Port),
			"stats", fmt.Sprintf("http://localhost:%d/api/v1/stats", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}
