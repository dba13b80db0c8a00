// Package adapter provides the TCP server adapters for the chat backend.
//
// Two adapters exist: the data adapter (one-shot request/response RPC)
// and the broadcast adapter (stream registration and push delivery).
// Both delegate listener management, worker pooling, connection tracking,
// and graceful shutdown to BaseAdapter and implement only their own
// framing and dispatch on top of it.
package adapter

import (
	"context"
)

// Adapter represents a TCP server that can be managed by the talko runtime.
//
// Lifecycle:
//  1. Creation: Adapter is created with server-specific configuration
//  2. Startup: Serve() starts the accept loop and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active workers to complete (with timeout)
	//   - Clean up resources
	//
	// If Serve returns before context cancellation, the runtime treats it
	// as a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown of the server.
	//
	// This method may be called concurrently with Serve() during runtime
	// shutdown. Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context timeout for shutdown operations
	//
	// A nil context falls back to the configured shutdown timeout.
	//
	// Returns:
	//   - nil if shutdown completed successfully
	//   - error if shutdown exceeded timeout or encountered errors
	Stop(ctx context.Context) error

	// Protocol returns the short server name used in logs and metric
	// labels.
	//
	// Examples: "data", "broadcast"
	//
	// The returned value is constant for the lifecycle of the adapter.
	Protocol() string

	// Port returns the TCP port the server listens on.
	//
	// This is used for logging and health checks. Returns the configured
	// port, which may be 0 when the listener picks an ephemeral port.
	Port() int
}
