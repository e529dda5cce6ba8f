package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ignitedb/internal/metrics"
	ierrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

func newTestConfig(t *testing.T, dataDir string) *Config {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = dataDir
	opts.CompactCheck = time.Hour // keep the background compactor quiet during tests
	opts.ThreadPoolKind = options.ThreadPoolKindNaive

	return &Config{Options: &opts, Logger: logger.Nop(), Metrics: metrics.New(prometheus.NewRegistry())}
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	_, err = New(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestSetGetRemove(t *testing.T) {
	dataDir := t.TempDir()
	eng, err := New(context.Background(), newTestConfig(t, dataDir))
	require.NoError(t, err)
	defer eng.Close()

	require.NoError(t, eng.Set("a", "1"))

	val, ok, err := eng.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)

	require.NoError(t, eng.Remove("a"))

	_, ok, err = eng.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMissingKeyFails(t *testing.T) {
	eng, err := New(context.Background(), newTestConfig(t, t.TempDir()))
	require.NoError(t, err)
	defer eng.Close()

	err = eng.Remove("missing")
	require.Error(t, err)
	ee, ok := ierrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.ErrorCodeKeyNotFound, ee.Code())
}

func TestSecondCloseReturnsEngineClosed(t *testing.T) {
	eng, err := New(context.Background(), newTestConfig(t, t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, eng.Close())

	err = eng.Close()
	require.Error(t, err)
	ee, ok := ierrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.ErrorCodeEngineClosed, ee.Code())
}

func TestReopenRecoversPreviouslyWrittenKeys(t *testing.T) {
	dataDir := t.TempDir()

	eng, err := New(context.Background(), newTestConfig(t, dataDir))
	require.NoError(t, err)

	require.NoError(t, eng.Set("a", "1"))
	require.NoError(t, eng.Set("b", "2"))
	require.NoError(t, eng.Remove("a"))
	require.NoError(t, eng.Close())

	reopened, err := New(context.Background(), newTestConfig(t, dataDir))
	require.NoError(t, err)
	defer reopened.Close()

	_, ok, err := reopened.Get("a")
	require.NoError(t, err)
	assert.False(t, ok, "a was removed before close and must stay absent after recovery")

	val, ok, err := reopened.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", val)
}

func TestReopenFollowsRotatedSegments(t *testing.T) {
	dataDir := t.TempDir()

	cfg := newTestConfig(t, dataDir)
	cfg.Options.SegmentOptions.Size = 1 // rotate on every write

	eng, err := New(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, eng.Set("a", "1"))
	require.NoError(t, eng.Set("a", "2"))
	require.NoError(t, eng.Set("b", "3"))
	require.NoError(t, eng.Close())

	cfg2 := newTestConfig(t, dataDir)
	cfg2.Options.SegmentOptions.Size = 1
	reopened, err := New(context.Background(), cfg2)
	require.NoError(t, err)
	defer reopened.Close()

	val, ok, err := reopened.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", val, "replay must keep the last write across rotated segments")

	val, ok, err = reopened.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", val)
}

func TestEngineSatisfiesAPI(t *testing.T) {
	eng, err := New(context.Background(), newTestConfig(t, t.TempDir()))
	require.NoError(t, err)
	defer eng.Close()

	var api API = eng
	require.NoError(t, api.Set("a", "1"))
}
