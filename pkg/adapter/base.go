package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/talko/internal/logger"
)

// ConnectionHandler represents a server-specific connection that can serve
// requests. Each adapter creates its own connection type implementing this
// interface. The Serve method blocks until the connection is done or the
// context is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates server-specific connection handlers for accepted
// TCP connections. Adapters implement this interface and pass themselves to
// BaseAdapter.ServeWithFactory().
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds configuration common to both server adapters.
// Server-specific adapters embed this alongside their own config.
type BaseConfig struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// MaxWorkers limits the number of concurrent connection workers.
	// Connections arriving while all workers are busy are shed: closed
	// immediately without a reply. 0 means unlimited.
	MaxWorkers int

	// ShutdownTimeout is the maximum duration to wait for active workers
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the interval at which to log server counters.
	// 0 disables periodic metrics logging.
	MetricsLogInterval time.Duration
}

// MetricsRecorder allows adapters to record connection lifecycle metrics.
// If nil, no metrics are collected. The server label carries the adapter's
// protocol name ("data" or "broadcast").
type MetricsRecorder interface {
	RecordConnectionAccepted(server string)
	RecordConnectionClosed(server string)
	RecordConnectionForceClosed(server string)
	RecordConnectionRejected(server string)
	SetActiveConnections(server string, count int32)
}

// Stats is a point-in-time snapshot of an adapter's accept loop counters.
type Stats struct {
	// Accepted is the total number of TCP connections accepted.
	Accepted uint64

	// Shed is the total number of connections closed without service
	// because the worker pool was full.
	Shed uint64

	// Active is the current number of connection workers.
	Active int32
}

// BaseAdapter provides shared TCP lifecycle management for the data and
// broadcast adapters.
//
// Both adapters embed this struct and delegate listener management, the
// worker pool, graceful shutdown, connection tracking, and metrics logging
// to it. Server-specific behavior is injected via ConnectionFactory.
//
// Thread safety:
// All exported methods are safe for concurrent use. The shutdown mechanism
// uses sync.Once to ensure idempotent behavior even if Stop() is called
// multiple times.
type BaseAdapter struct {
	// Config holds the shared configuration (bind address, port, limits, timeouts)
	Config BaseConfig

	// protocolName is the short server name for logging and metric labels
	// (e.g., "data", "broadcast")
	protocolName string

	// Metrics is an optional recorder for connection lifecycle metrics.
	// If nil, no metrics are collected (zero overhead).
	Metrics MetricsRecorder

	// listener is the TCP listener for accepting connections.
	// Closed during shutdown to stop accepting new connections.
	listener net.Listener

	// activeConns tracks all currently running workers for graceful shutdown.
	// Each worker calls Add(1) when starting and Done() when complete.
	activeConns sync.WaitGroup

	// shutdownOnce ensures shutdown is only initiated once.
	// Protects the shutdown channel close and listener cleanup.
	shutdownOnce sync.Once

	// Shutdown signals that graceful shutdown has been initiated.
	// Closed by initiateShutdown(), monitored by ServeWithFactory().
	Shutdown chan struct{}

	// ConnCount tracks the current number of connection workers.
	// Used for metrics and shutdown logging.
	ConnCount atomic.Int32

	// Accepted counts all TCP connections accepted since startup.
	Accepted atomic.Uint64

	// Shed counts connections closed without service because the worker
	// pool was full.
	Shed atomic.Uint64

	// workerSlots bounds the number of concurrent workers if MaxWorkers > 0.
	// A slot is claimed after accept; when none is free the connection is
	// shed. nil if MaxWorkers is 0 (unlimited).
	workerSlots chan struct{}

	// ShutdownCtx is cancelled during shutdown to abort in-flight requests.
	// This context is passed to all connection handlers, allowing them to
	// detect shutdown and abort long-running operations.
	ShutdownCtx context.Context

	// CancelRequests cancels ShutdownCtx during shutdown.
	// This triggers request cancellation across all active connections.
	CancelRequests context.CancelFunc

	// ActiveConnections tracks all active TCP connections for forced closure.
	// Maps connection remote address (string) to net.Conn. Connections handed
	// over to another owner (parked broadcast streams) are removed via
	// ReleaseConn.
	ActiveConnections sync.Map

	// ListenerReady is closed when the listener is ready to accept connections.
	// Used by tests to synchronize with server startup.
	ListenerReady chan struct{}

	// listenerMu protects access to the listener field.
	listenerMu sync.RWMutex
}

// NewBaseAdapter creates a new BaseAdapter with the specified configuration.
// The adapter is created in a stopped state. Call ServeWithFactory() to start.
//
// Returns a pointer to avoid copying sync primitives (WaitGroup, Once, Map, RWMutex).
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var workerSlots chan struct{}
	if config.MaxWorkers > 0 {
		workerSlots = make(chan struct{}, config.MaxWorkers)
		logger.Debug(protocol+" worker pool", "max_workers", config.MaxWorkers)
	} else {
		logger.Debug(protocol+" worker pool", "max_workers", "unlimited")
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		workerSlots:    workerSlots,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancelRequests,
		ListenerReady:  make(chan struct{}),
	}
}

// ServeWithFactory runs the shared TCP accept loop, delegating to factory for
// server-specific connection creation.
//
// The listener is created with SO_REUSEADDR so restarts do not trip over
// sockets lingering in TIME_WAIT. Every accepted connection gets TCP_NODELAY.
//
// When MaxWorkers > 0 and all worker slots are busy, newly accepted
// connections are shed: closed immediately without writing a frame. The
// client observes EOF. Shed connections are counted and reported via
// metrics as rejected.
//
// Parameters:
//   - ctx: Controls the server lifecycle. Cancellation triggers graceful shutdown.
//   - factory: Creates server-specific connection handlers for each accepted connection.
//
// Returns:
//   - nil on graceful shutdown
//   - error if listener fails to start or shutdown is not graceful
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory) error {
	// Create TCP listener
	listenAddr := fmt.Sprintf("%s:%d", b.Config.BindAddress, b.Config.Port)
	lc := net.ListenConfig{Control: reuseAddr}
	listener, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to create %s listener on port %d: %w", b.protocolName, b.Config.Port, err)
	}

	// Store listener with mutex protection and signal readiness
	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	close(b.ListenerReady)

	logger.Info(b.protocolName+" server listening", "address", listener.Addr())

	// Monitor context cancellation in separate goroutine
	go func() {
		<-ctx.Done()
		logger.Info(b.protocolName+" shutdown signal received", "error", ctx.Err())
		b.initiateShutdown()
	}()

	// Start metrics logging if enabled
	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	// Accept connections until shutdown
	for {
		// Accept next connection (blocks until connection arrives or error)
		tcpConn, err := b.listener.Accept()
		if err != nil {
			// Check if error is due to shutdown (expected) or network error (unexpected)
			select {
			case <-b.Shutdown:
				// Expected error during shutdown (listener was closed)
				return b.gracefulShutdown()
			default:
				// Unexpected error - log but continue
				logger.Debug("Error accepting "+b.protocolName+" connection", "error", err)
				continue
			}
		}

		b.Accepted.Add(1)

		// Enable TCP_NODELAY to disable Nagle's algorithm
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		// Claim a worker slot without blocking. A full pool sheds the
		// connection: close immediately, no frame written.
		if b.workerSlots != nil {
			select {
			case b.workerSlots <- struct{}{}:
				// Claimed a slot, proceed
			default:
				b.Shed.Add(1)
				if b.Metrics != nil {
					b.Metrics.RecordConnectionRejected(b.protocolName)
				}
				logger.Warn(b.protocolName+" worker pool exhausted, shedding connection",
					"address", tcpConn.RemoteAddr(), "max_workers", b.Config.MaxWorkers)
				_ = tcpConn.Close()
				continue
			}
		}

		// Track connection for graceful shutdown
		b.activeConns.Add(1)
		b.ConnCount.Add(1)

		// Register connection for forced closure capability
		connAddr := tcpConn.RemoteAddr().String()
		b.ActiveConnections.Store(connAddr, tcpConn)

		// Record metrics for connection accepted
		currentConns := b.ConnCount.Load()
		if b.Metrics != nil {
			b.Metrics.RecordConnectionAccepted(b.protocolName)
			b.Metrics.SetActiveConnections(b.protocolName, currentConns)
		}

		// Log new connection
		logger.Debug(b.protocolName+" connection accepted", "address", tcpConn.RemoteAddr(), "active", currentConns)

		// Create server-specific connection handler
		conn := factory.NewConnection(tcpConn)

		// Handle connection in separate goroutine
		go func(addr string, tcp net.Conn) {
			defer func() {
				// Unregister connection from tracking map
				b.ActiveConnections.Delete(addr)

				// Cleanup on worker completion
				b.activeConns.Done()
				b.ConnCount.Add(-1)
				if b.workerSlots != nil {
					<-b.workerSlots
				}

				// Record metrics for worker completion
				if b.Metrics != nil {
					b.Metrics.RecordConnectionClosed(b.protocolName)
					b.Metrics.SetActiveConnections(b.protocolName, b.ConnCount.Load())
				}

				logger.Debug(b.protocolName+" worker done", "address", tcp.RemoteAddr(), "active", b.ConnCount.Load())
			}()

			// Handle connection requests
			conn.Serve(b.ShutdownCtx)
		}(connAddr, tcpConn)
	}
}

// initiateShutdown signals the server to begin graceful shutdown.
//
// Shutdown sequence:
//  1. Close shutdown channel (signals accept loop to stop)
//  2. Close listener (stops accepting new connections)
//  3. Interrupt blocking reads on all active connections
//  4. Cancel shutdownCtx (signals in-flight requests to abort)
//
// Thread safety:
// Safe to call multiple times and from multiple goroutines.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")

		// Close shutdown channel (signals accept loop)
		close(b.Shutdown)

		// Close listener (stops accepting new connections)
		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", "error", err)
			}
		}
		b.listenerMu.Unlock()

		// Set a short deadline on all connections to unblock any pending reads
		b.interruptBlockingReads()

		// Cancel all in-flight request contexts
		b.CancelRequests()
		logger.Debug(b.protocolName + " request cancellation signal sent to all in-flight operations")
	})
}

// interruptBlockingReads sets a short deadline on all active connections
// to interrupt any blocking read operations during shutdown.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					"address", key, "error", err)
			}
		}
		return true
	})
	logger.Debug(b.protocolName + " shutdown: interrupted blocking reads on all connections")
}

// gracefulShutdown waits for active workers to complete or timeout.
//
// Returns:
//   - nil if all workers completed gracefully
//   - error if shutdown timeout exceeded (connections were force-closed)
func (b *BaseAdapter) gracefulShutdown() error {
	activeCount := b.ConnCount.Load()
	logger.Info(b.protocolName+" graceful shutdown: waiting for active workers",
		"active", activeCount, "timeout", b.Config.ShutdownTimeout)

	// Create channel that closes when all workers are done
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	// Wait for completion or timeout
	select {
	case <-done:
		logger.Info(b.protocolName + " graceful shutdown complete: all workers done")
		return nil

	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded - forcing closure",
			"active", remaining, "timeout", b.Config.ShutdownTimeout)

		// Force-close all remaining connections
		b.forceCloseConnections()

		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}

// forceCloseConnections closes all active TCP connections to accelerate shutdown.
func (b *BaseAdapter) forceCloseConnections() {
	logger.Info("Force-closing active " + b.protocolName + " connections")

	closedCount := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", addr, "error", err)
		} else {
			closedCount++
			logger.Debug("Force-closed connection", "address", addr)
			if b.Metrics != nil {
				b.Metrics.RecordConnectionForceClosed(b.protocolName)
			}
		}

		return true
	})

	if closedCount == 0 {
		logger.Debug("No connections to force-close")
	} else {
		logger.Info("Force-closed connections", "count", closedCount)
	}
}

// Stop initiates graceful shutdown of the server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// ServeWithFactory(). It signals the server to begin shutdown and waits for
// active workers to complete up to ShutdownTimeout.
//
// Parameters:
//   - ctx: Controls the shutdown timeout. If cancelled, Stop returns immediately
//     with context error after initiating shutdown.
//
// Returns:
//   - nil on successful graceful shutdown
//   - error if shutdown timeout exceeded or context cancelled
func (b *BaseAdapter) Stop(ctx context.Context) error {
	// Always initiate shutdown first
	b.initiateShutdown()

	// If no context provided, use gracefulShutdown with configured timeout
	if ctx == nil {
		return b.gracefulShutdown()
	}

	// Wait for graceful shutdown with context timeout
	activeCount := b.ConnCount.Load()
	logger.Info(b.protocolName+" graceful shutdown: waiting for active workers (context timeout)",
		"active", activeCount)

	// Create channel that closes when all workers are done
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	// Wait for completion or context cancellation
	select {
	case <-done:
		logger.Info(b.protocolName + " graceful shutdown complete: all workers done")
		return nil

	case <-ctx.Done():
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown context cancelled",
			"active", remaining, "error", ctx.Err())
		return ctx.Err()
	}
}

// logMetrics periodically logs server counters for monitoring.
func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := b.Stats()
			logger.Info(b.protocolName+" metrics",
				"active_workers", s.Active,
				"accepted_total", s.Accepted,
				"shed_total", s.Shed)
		}
	}
}

// Stats returns a snapshot of the accept loop counters.
func (b *BaseAdapter) Stats() Stats {
	return Stats{
		Accepted: b.Accepted.Load(),
		Shed:     b.Shed.Load(),
		Active:   b.ConnCount.Load(),
	}
}

// GetActiveConnections returns the current number of connection workers.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// ReleaseConn removes a connection from shutdown tracking. Handlers that
// hand a socket over to another owner (the broadcast subscriber table) call
// this so the base no longer interrupts or force-closes it.
func (b *BaseAdapter) ReleaseConn(addr string) {
	b.ActiveConnections.Delete(addr)
}

// GetListenerAddr returns the address the server is listening on.
// This method blocks until the listener is ready, making it safe for tests.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()

	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the configured TCP port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the short server name (e.g., "data", "broadcast").
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
