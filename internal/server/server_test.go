package server

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ignitedb/internal/engine"
	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/internal/pool"
	"github.com/iamNilotpal/ignitedb/pkg/client"
	ierrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.CompactCheck = time.Hour
	opts.ThreadPoolKind = options.ThreadPoolKindNaive

	eng, err := engine.New(context.Background(), &engine.Config{
		Options: &opts, Logger: logger.Nop(), Metrics: metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	p, err := pool.New(options.ThreadPoolKindNaive, 0, 0, logger.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	srv, err := New(Config{
		Addr: "127.0.0.1:0", Engine: eng, Pool: p, Logger: logger.Nop(),
		ReadTimeout: time.Second, WriteTimeout: time.Second,
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	t.Cleanup(srv.Stop)

	// Start binds asynchronously; poll until the listener address is set.
	require.Eventually(t, func() bool { return srv.listener != nil }, time.Second, time.Millisecond)
	return srv.listener.Addr().String()
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestServerRoundTripSetGetRemove(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Dial(addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Close())

	c, err = client.Dial(addr, time.Second)
	require.NoError(t, err)
	val, ok, err := c.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)
	require.NoError(t, c.Close())

	c, err = client.Dial(addr, time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Remove("a"))
	require.NoError(t, c.Close())

	c, err = client.Dial(addr, time.Second)
	require.NoError(t, err)
	_, ok, err = c.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Close())
}

func TestServerRemoveMissingKeyReportsKeyNotFound(t *testing.T) {
	addr := startTestServer(t)

	c, err := client.Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	err = c.Remove("missing")
	require.Error(t, err)

	ee, ok := ierrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.ErrorCodeKeyNotFound, ee.Code())
}
