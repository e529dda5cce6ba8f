package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ignitedb/pkg/logger"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(context.Background(), &Config{DataDir: t.TempDir(), Logger: logger.Nop()})
	require.NoError(t, err)
	return idx
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}

func TestSetGetDelete(t *testing.T) {
	idx := newTestIndex(t)

	entry := Entry{FileID: 1, RecordLen: 10, ByteOffset: 4}
	_, had := idx.Set("a", entry)
	assert.False(t, had)

	got, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, idx.Len())

	next := Entry{FileID: 2, RecordLen: 20, ByteOffset: 8}
	previous, had := idx.Set("a", next)
	assert.True(t, had)
	assert.Equal(t, entry, previous)

	removed, existed := idx.Delete("a")
	assert.True(t, existed)
	assert.Equal(t, next, removed)
	assert.Equal(t, 0, idx.Len())

	_, existed = idx.Delete("a")
	assert.False(t, existed)
}

func TestCompareAndSwap(t *testing.T) {
	idx := newTestIndex(t)

	entry := Entry{FileID: 1, RecordLen: 10, ByteOffset: 4}
	idx.Set("a", entry)

	stale := Entry{FileID: 99, RecordLen: 1, ByteOffset: 1}
	next := Entry{FileID: 2, RecordLen: 10, ByteOffset: 4}

	assert.False(t, idx.CompareAndSwap("a", stale, next))
	got, _ := idx.Get("a")
	assert.Equal(t, entry, got)

	assert.True(t, idx.CompareAndSwap("a", entry, next))
	got, _ = idx.Get("a")
	assert.Equal(t, next, got)

	assert.False(t, idx.CompareAndSwap("missing", entry, next))
}

func TestCompareAndDelete(t *testing.T) {
	idx := newTestIndex(t)

	entry := Entry{FileID: 1, RecordLen: 10, ByteOffset: 4}
	idx.Set("a", entry)

	stale := Entry{FileID: 99}
	assert.False(t, idx.CompareAndDelete("a", stale))
	_, ok := idx.Get("a")
	assert.True(t, ok)

	assert.True(t, idx.CompareAndDelete("a", entry))
	_, ok = idx.Get("a")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	idx := newTestIndex(t)
	idx.Set("a", Entry{FileID: 1})
	idx.Set("b", Entry{FileID: 2})

	snap := idx.Snapshot()
	require.Len(t, snap, 2)

	idx.Set("c", Entry{FileID: 3})
	assert.Len(t, snap, 2, "snapshot must not see later writes")
}

func TestCloseIsIdempotentlyRejected(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())
	assert.ErrorIs(t, idx.Close(), ErrIndexClosed)
}
