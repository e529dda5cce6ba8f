package boltengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ignitedb/internal/engine"
	ierrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.sled"), Logger: logger.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestSetGetRemove(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Set("a", "1"))

	val, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)

	require.NoError(t, e.Remove("a"))

	_, ok, err = e.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	e := newTestEngine(t)

	_, ok, err := e.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMissingKeyFails(t *testing.T) {
	e := newTestEngine(t)

	err := e.Remove("missing")
	require.Error(t, err)
	ee, ok := ierrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.ErrorCodeKeyNotFound, ee.Code())
}

func TestReopenPersistsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sled")

	e, err := Open(Config{Path: path, Logger: logger.Nop()})
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Close())

	reopened, err := Open(Config{Path: path, Logger: logger.Nop()})
	require.NoError(t, err)
	defer reopened.Close()

	val, ok, err := reopened.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)
}

func TestEngineSatisfiesAPI(t *testing.T) {
	e := newTestEngine(t)
	var api engine.API = e
	require.NoError(t, api.Set("a", "1"))
}
