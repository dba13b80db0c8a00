package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/talko/pkg/api"
	"github.com/marmos91/talko/pkg/config"
)

// testConfig is a full runtime on ephemeral ports over the memory store,
// with the HTTP surfaces disabled so parallel tests do not fight over
// fixed ports.
func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Database.Type = config.DatabaseTypeMemory
	cfg.Servers.Data.Port = 0
	cfg.Servers.Broadcast.Port = 0
	cfg.Servers.Data.BroadcastAddress = ""
	disabled := false
	cfg.API.Enabled = &disabled
	cfg.Metrics.Enabled = false
	return cfg
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, err := New(t.Context(), testConfig(), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// Give the adapters a moment to come up, then ask for shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestNewBuildsOnlyEnabledAdapters(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	disabled := false
	cfg.Servers.Broadcast.Enabled = &disabled

	srv, err := New(t.Context(), cfg, "test")
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	require.NotNil(t, srv.dataAdapter)
	require.Nil(t, srv.bcastAdapter)
	require.Nil(t, srv.subscriberFunc())
	require.Len(t, srv.adapterInfos(), 1)

	var info api.AdapterInfo = srv.dataAdapter
	require.Equal(t, "data", info.Protocol())
}
