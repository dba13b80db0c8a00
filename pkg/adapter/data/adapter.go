// Package data implements the request/response RPC server of the chat
// backend.
//
// The data server owns every read and write against the chat store. Each
// accepted TCP connection carries exactly one exchange: the client sends a
// framed request, the server answers with a framed response, and the
// connection is closed. After storing a message the server fans it out to
// the broadcast server so open streams receive it.
package data

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
	"github.com/marmos91/talko/pkg/store/chat"
)

// serverName labels logs, metrics, and spans emitted by this adapter.
const serverName = "data"

// DefaultMaxFrameSize is the default maximum request frame payload size.
// Oversized frames are rejected with a protocol error before the payload
// is read.
const DefaultMaxFrameSize = int64(bytesize.MiB)

// Config holds configuration parameters for the data server.
//
// Default values (applied by New if zero):
//   - ReadTimeout: 30s
//   - WriteTimeout: 10s
//   - ShutdownTimeout: 30s
//   - MaxFrameSize: 1 MiB
//   - BroadcastTimeout: 5s
//
// Port and MaxWorkers have no adapter-level defaults: Port 0 picks an
// ephemeral port (useful for tests) and MaxWorkers 0 means unlimited. The
// configuration layer supplies the production values (8888 and 10000).
type Config struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// MaxWorkers limits the number of concurrent connection workers.
	// Connections arriving while all workers are busy are shed: closed
	// immediately without a reply. 0 means unlimited.
	MaxWorkers int

	// ReadTimeout is the maximum duration to wait for the request frame.
	// 0 means no timeout (not recommended).
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing the response frame.
	// 0 means no timeout.
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

	// BroadcastAddress is the host:port of the broadcast server used for
	// message fan-out after InsertMessage. Empty disables fan-out.
	BroadcastAddress string

	// BroadcastTimeout bounds the whole fan-out exchange (dial, send,
	// await reply). 0 uses the default.
	BroadcastTimeout time.Duration
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
	if c.BroadcastTimeout == 0 {
		c.BroadcastTimeout = 5 * time.Second
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

// Adapter implements the adapter.Adapter interface for the data server.
//
// Each accepted connection is handled by a Connection that performs a
// single request/response exchange against the shared chat store. The
// TCP lifecycle (worker pool, shedding, graceful shutdown) is delegated
// to the embedded BaseAdapter.
type Adapter struct {
	*adapter.BaseAdapter

	// config holds the server configuration (port, timeouts, limits)
	config Config

	// store is the shared chat store all workers read and write
	store chat.Store

	// metrics is an optional recorder for request and frame metrics.
	// nil disables collection.
	metrics metrics.AdapterMetrics

	// notifier delivers stored messages to the broadcast server
	notifier *notifier

	// connIDs mints connection identifiers for logging
	connIDs atomic.Uint64
}

// New creates a new data server adapter.
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
//   - store: Chat store serving all reads and writes. Must be non-nil.
//   - m: Optional metrics recorder. nil disables metrics.
//
// Panics if config validation fails or store is nil.
func New(config Config, store chat.Store, m metrics.AdapterMetrics) *Adapter {
	// Apply defaults for zero values
	config.applyDefaults()

	// Validate configuration
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid data server config: %v", err))
	}
	if store == nil {
		panic("data server requires a chat store")
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
		BaseAdapter: base,
		config:      config,
		store:       store,
		metrics:     m,
		notifier:    newNotifier(config.BroadcastAddress, config.BroadcastTimeout),
	}
}

// Serve starts the data server and blocks until the context is cancelled
// or an unrecoverable error occurs.
func (a *Adapter) Serve(ctx context.Context) error {
	logger.Debug("data config",
		"max_workers", a.config.MaxWorkers,
		"read_timeout", a.config.ReadTimeout,
		"write_timeout", a.config.WriteTimeout,
		"max_frame_size", bytesize.ByteSize(a.config.MaxFrameSize),
		"broadcast_address", a.config.BroadcastAddress)

	return a.ServeWithFactory(ctx, a)
}

// NewConnection creates the handler for an accepted TCP connection.
// Implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return newConnection(a, conn, a.connIDs.Add(1))
}
