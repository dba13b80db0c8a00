// Package server wires the configured components into one running
// process: the chat store, the data and broadcast TCP adapters, the
// metrics endpoint, and the admin API.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/adapter/broadcast"
	"github.com/marmos91/talko/pkg/adapter/data"
	"github.com/marmos91/talko/pkg/api"
	"github.com/marmos91/talko/pkg/config"
	"github.com/marmos91/talko/pkg/metrics"
	"github.com/marmos91/talko/pkg/store/chat"
	"github.com/marmos91/talko/pkg/store/chat/instrument"
)

// Server is the assembled talko runtime.
//
// Construction opens the chat store and builds every enabled component;
// Run starts them together and blocks until shutdown. A Server runs at
// most once.
type Server struct {
	cfg     *config.Config
	version string

	store         chat.Store
	dataAdapter   *data.Adapter
	bcastAdapter  *broadcast.Adapter
	apiServer     *api.Server
	metricsServer *metrics.Server
}

// New builds a runtime from a loaded, validated configuration.
//
// The chat store is opened here so configuration problems (unreachable
// database, bad path) surface before any listener starts. Call Close when
// the server is not going to run.
func New(ctx context.Context, cfg *config.Config, version string) (*Server, error) {
	// Metrics must initialize before stores and adapters so the typed
	// constructors see an enabled registry.
	metricsResult := config.InitializeMetrics(cfg)

	store, err := config.CreateChatStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat store: %w", err)
	}
	store = instrument.Wrap(store, metricsResult.Store)

	s := &Server{
		cfg:           cfg,
		version:       version,
		store:         store,
		metricsServer: metricsResult.Server,
	}

	if cfg.Servers.Broadcast.IsEnabled() {
		s.bcastAdapter = broadcast.New(broadcast.Config{
			BindAddress:     cfg.Servers.Broadcast.Host,
			Port:            cfg.Servers.Broadcast.Port,
			MaxWorkers:      cfg.Servers.Broadcast.MaxWorkers,
			ReadTimeout:     cfg.Servers.Broadcast.ReadTimeout,
			WriteTimeout:    cfg.Servers.Broadcast.WriteTimeout,
			MaxFrameSize:    int64(cfg.Servers.Broadcast.MaxFrameSize),
			ShutdownTimeout: cfg.Servers.ShutdownTimeout,
		}, metricsResult.Adapter, metricsResult.Broadcast)
	}

	if cfg.Servers.Data.IsEnabled() {
		s.dataAdapter = data.New(data.Config{
			BindAddress:      cfg.Servers.Data.Host,
			Port:             cfg.Servers.Data.Port,
			MaxWorkers:       cfg.Servers.Data.MaxWorkers,
			ReadTimeout:      cfg.Servers.Data.ReadTimeout,
			WriteTimeout:     cfg.Servers.Data.WriteTimeout,
			MaxFrameSize:     int64(cfg.Servers.Data.MaxFrameSize),
			ShutdownTimeout:  cfg.Servers.ShutdownTimeout,
			BroadcastAddress: cfg.Servers.Data.BroadcastAddress,
			BroadcastTimeout: cfg.Servers.Data.BroadcastTimeout,
		}, store, metricsResult.Adapter)
	}

	if cfg.API.IsEnabled() {
		s.apiServer = api.NewServer(cfg.API, api.Deps{
			Store:       store,
			Adapters:    s.adapterInfos(),
			Subscribers: s.subscriberFunc(),
			Version:     version,
		})
	}

	return s, nil
}

// adapterInfos collects the enabled adapters for the admin API.
func (s *Server) adapterInfos() []api.AdapterInfo {
	var infos []api.AdapterInfo
	if s.dataAdapter != nil {
		infos = append(infos, s.dataAdapter)
	}
	if s.bcastAdapter != nil {
		infos = append(infos, s.bcastAdapter)
	}
	return infos
}

// subscriberFunc exposes the broadcast subscriber table to the admin API,
// or nil when the broadcast server is disabled in this process.
func (s *Server) subscriberFunc() func() []int64 {
	if s.bcastAdapter == nil {
		return nil
	}
	return s.bcastAdapter.Subscribers
}

// Store returns the chat store the runtime operates on.
func (s *Server) Store() chat.Store {
	return s.store
}

// Run starts every enabled component and blocks until the context is
// cancelled or a SIGINT/SIGTERM arrives, then shuts everything down
// gracefully. The chat store is closed before Run returns.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if s.bcastAdapter != nil {
		g.Go(func() error {
			if err := s.bcastAdapter.Serve(gctx); err != nil {
				return fmt.Errorf("broadcast server failed: %w", err)
			}
			return nil
		})
	}

	if s.dataAdapter != nil {
		g.Go(func() error {
			if err := s.dataAdapter.Serve(gctx); err != nil {
				return fmt.Errorf("data server failed: %w", err)
			}
			return nil
		})
	}

	if s.apiServer != nil {
		g.Go(func() error {
			return s.apiServer.Start(gctx)
		})
	}

	if s.metricsServer != nil {
		g.Go(func() error {
			return s.metricsServer.Start(gctx)
		})
	}

	logger.Info("talko server started",
		"version", s.version,
		"data_enabled", s.dataAdapter != nil,
		"broadcast_enabled", s.bcastAdapter != nil,
		"database", string(s.cfg.Database.Type),
	)

	err := g.Wait()

	if closeErr := s.store.Close(); closeErr != nil && !errors.Is(closeErr, chat.ErrStoreClosed) {
		logger.Error("Failed to close chat store", "error", closeErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("talko server stopped")
	return nil
}

// Close releases the chat store without running the server. Used when
// construction succeeds but startup is abandoned.
func (s *Server) Close() error {
	return s.store.Close()
}
