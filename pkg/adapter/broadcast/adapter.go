// Package broadcast implements the push delivery server of the chat
// backend.
//
// Clients register long-lived streams with OpenStream; the data server
// calls Broadcast after storing a message and the stored message is pushed
// to every receiver with an open stream as an id-less response frame.
// Streams live until CloseStream, a failed push, or server shutdown.
package broadcast

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/marmos91/talko/internal/bytesize"
	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/adapter"
	"github.com/marmos91/talko/pkg/metrics"
)

// serverName labels logs, metrics, and spans emitted by this adapter.
const serverName = "broadcast"

// DefaultMaxFrameSize is the default maximum request frame payload size.
const DefaultMaxFrameSize = int64(bytesize.MiB)

// Config holds configuration parameters for the broadcast server.
//
// Default values (applied by New if zero):
//   - ReadTimeout: 30s
//   - WriteTimeout: 10s
//   - ShutdownTimeout: 30s
//   - MaxFrameSize: 1 MiB
//
// Port and MaxWorkers have no adapter-level defaults: Port 0 picks an
// ephemeral port (useful for tests) and MaxWorkers 0 means unlimited. The
// configuration layer supplies the production values (8889 and 10000).
type Config struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// MaxWorkers limits the number of concurrent connection workers.
	// Connections arriving while all workers are busy are shed: closed
	// immediately without a reply. Parked streams do not hold workers,
	// so the limit bounds concurrent exchanges, not open streams.
	// 0 means unlimited.
	MaxWorkers int

	// ReadTimeout is the maximum duration to wait for the request frame.
	// It does not apply to parked streams, which are never read again.
	// 0 means no timeout (not recommended).
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes and every push frame written
	// to a stream. 0 means no timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown. Must be > 0.
	ShutdownTimeout time.Duration

	// MaxFrameSize is the maximum request frame payload size in bytes.
	// Larger frames are rejected with a protocol error. 0 uses the default.
	MaxFrameSize int64

	// MetricsLogInterval is the interval at which to log server counters.
	// 0 disables periodic metrics logging.
	MetricsLogInterval time.Duration
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
}

// validate checks that the configuration is valid.
func (c *Config) validate() error {
	// Port 0 is valid - it means OS-assigned port (useful for testing)
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("invalid max_workers %d: must be >= 0", c.MaxWorkers)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid read_timeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid write_timeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown_timeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("invalid max_frame_size %d: must be > 0", c.MaxFrameSize)
	}
	return nil
}

// Adapter implements the adapter.Adapter interface for the broadcast
// server.
//
// Each accepted connection is handled by a Connection that performs a
// single exchange. OpenStream is the exception: after the ack is written
// the socket is parked in the subscriber table, its worker returns, and
// the socket stays open to receive pushes. The TCP lifecycle (worker
// pool, shedding, graceful shutdown) is delegated to the embedded
// BaseAdapter; parked streams are closed separately once the accept loop
// has stopped.
type Adapter struct {
	*adapter.BaseAdapter

	// config holds the server configuration (port, timeouts, limits)
	config Config

	// table holds the open streams keyed by user id
	table *Table

	// metrics is an optional recorder for request and frame metrics.
	// nil disables collection.
	metrics metrics.AdapterMetrics

	// streamMetrics is an optional recorder for subscriber and push
	// delivery metrics. nil disables collection.
	streamMetrics metrics.BroadcastMetrics

	// connIDs mints connection identifiers for logging
	connIDs atomic.Uint64
}

// New creates a new broadcast server adapter.
//
// The adapter is created in a stopped state. Call Serve() to start
// accepting connections.
//
// Configuration:
//   - Zero values in config are replaced with sensible defaults
//   - Invalid configurations cause a panic (indicates programmer error)
//
// Parameters:
//   - config: Server configuration (port, timeouts, limits)
//   - m: Optional request metrics recorder. nil disables metrics.
//   - sm: Optional stream metrics recorder. nil disables metrics.
//
// Panics if config validation fails.
func New(config Config, m metrics.AdapterMetrics, sm metrics.BroadcastMetrics) *Adapter {
	// Apply defaults for zero values
	config.applyDefaults()

	// Validate configuration
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid broadcast server config: %v", err))
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        config.BindAddress,
		Port:               config.Port,
		MaxWorkers:         config.MaxWorkers,
		ShutdownTimeout:    config.ShutdownTimeout,
		MetricsLogInterval: config.MetricsLogInterval,
	}, serverName)
	base.Metrics = m

	return &Adapter{
		BaseAdapter:   base,
		config:        config,
		table:         NewTable(),
		metrics:       m,
		streamMetrics: sm,
	}
}

// Serve starts the broadcast server and blocks until the context is
// cancelled or an unrecoverable error occurs. Open streams are closed
// once the accept loop has stopped.
func (a *Adapter) Serve(ctx context.Context) error {
	logger.Debug("broadcast config",
		"max_workers", a.config.MaxWorkers,
		"read_timeout", a.config.ReadTimeout,
		"write_timeout", a.config.WriteTimeout,
		"max_frame_size", bytesize.ByteSize(a.config.MaxFrameSize))

	err := a.ServeWithFactory(ctx, a)

	// No new streams can register once the accept loop is done. Parked
	// sockets outlive their workers, so they are closed here.
	a.closeStreams()

	return err
}

// Stop gracefully stops the broadcast server and closes all open streams.
func (a *Adapter) Stop(ctx context.Context) error {
	err := a.BaseAdapter.Stop(ctx)
	a.closeStreams()
	return err
}

// Subscribers returns the user ids with an open stream, in ascending
// order.
func (a *Adapter) Subscribers() []int64 {
	return a.table.IDs()
}

// NewConnection creates the handler for an accepted TCP connection.
// Implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return newConnection(a, conn, a.connIDs.Add(1))
}

// closeStreams drops every parked stream. Safe to call more than once.
func (a *Adapter) closeStreams() {
	closed := a.table.CloseAll()
	if closed > 0 {
		logger.Info("Closed open streams", "count", closed)
	}

	if a.streamMetrics != nil {
		for i := 0; i < closed; i++ {
			a.streamMetrics.RecordStreamClosed("disconnect")
		}
		a.streamMetrics.SetSubscribers(0)
	}
}
