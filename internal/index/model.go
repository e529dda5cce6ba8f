package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Entry contains the minimum metadata required to locate a record on disk:
// which segment holds it, how many bytes it occupies, and where it starts.
// It deliberately carries nothing else — no timestamp, no cached value, no
// key — since the key is already the map key that owns this Entry and the
// compactor derives recency from segment + table order rather than from a
// stored timestamp (spec.md §4.3).
type Entry struct {
	// FileID identifies which segment file holds the record.
	FileID uint32

	// RecordLen is the length, in bytes, of the record's JSON payload
	// alone (the length prefix is not included) — exactly the number of
	// bytes a positioned read at ByteOffset must fetch to recover the
	// payload (spec.md §3 "Index entry").
	RecordLen uint32

	// ByteOffset is the absolute file offset of the record's JSON
	// payload, i.e. just past its 4-byte length prefix (spec.md §3).
	ByteOffset int64
}

// Index is the concurrent key -> Entry map every engine operation consults
// before touching disk. Reads take the RWMutex for reading; writes (insert,
// remove, compare-and-swap) take it for writing.
type Index struct {
	dataDir string
	log     *zap.SugaredLogger
	entries map[string]Entry
	mu      sync.RWMutex
	closed  atomic.Bool
}

// Config encapsulates the configuration parameters required to initialize an Index.
type Config struct {
	DataDir string             // Specifies the engine's data directory (segment files live in a subdirectory of it).
	Logger  *zap.SugaredLogger // Provides structured logging capabilities for Index operations.
}
