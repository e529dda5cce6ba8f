package options

import "time"

const (
	// Specifies the default base directory where ignitedb will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/ignitedb"

	// DefaultSegmentSize is the default byte size at which the active segment is
	// rotated into a closed segment and a new active segment is created.
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 // 1 MiB

	// MinSegmentSize is the smallest segment size accepted by WithSegmentSize.
	MinSegmentSize uint64 = 4 * 1024 // 4 KiB

	// MaxSegmentSize is the largest segment size accepted by WithSegmentSize.
	MaxSegmentSize uint64 = 1 * 1024 * 1024 * 1024 // 1 GiB

	// DefaultCompactThresholdFactor is the multiple of SEGMENT_SIZE at which the
	// compactor is triggered when uncompacted bytes exceed the threshold.
	DefaultCompactThresholdFactor uint64 = 2

	// DefaultCompactCheck is how often the compactor wakes up to check whether
	// uncompacted bytes have crossed the compaction threshold.
	DefaultCompactCheck = time.Second

	// DefaultSegmentDirectory is the default subdirectory within the main data
	// directory where segment files are stored.
	DefaultSegmentDirectory = "segments"

	// DefaultThreadPoolSize is the default number of workers dispatching engine
	// operations and server connection handlers.
	DefaultThreadPoolSize = 4

	// ThreadPoolKindNaive spawns one goroutine per job with no pooling.
	ThreadPoolKindNaive = "naive"

	// ThreadPoolKindShared dispatches jobs onto a fixed set of workers sharing a
	// bounded queue.
	ThreadPoolKindShared = "better"

	// DefaultThreadPoolKind is the pool flavor used when none is configured.
	DefaultThreadPoolKind = ThreadPoolKindShared

	// DefaultPoolQueueSize is the recommended bound for the shared worker pool's
	// job queue (spec.md §4.8).
	DefaultPoolQueueSize = 4096

	// EngineKindLog selects the log-structured engine.
	EngineKindLog = "kvs"

	// EngineKindBolt selects the bbolt-backed alternative engine.
	EngineKindBolt = "sled"

	// DefaultReadTimeout bounds how long a connection handler waits to read a
	// complete request before it is abandoned.
	DefaultReadTimeout = time.Second

	// DefaultWriteTimeout bounds how long a connection handler waits to write a
	// complete response before it is abandoned.
	DefaultWriteTimeout = time.Second
)

// defaultOptions holds the baseline configuration for an ignitedb instance.
var defaultOptions = Options{
	DataDir:          DefaultDataDir,
	CompactThreshold: DefaultCompactThresholdFactor * DefaultSegmentSize,
	CompactCheck:     DefaultCompactCheck,
	ThreadPoolSize:   DefaultThreadPoolSize,
	ThreadPoolKind:   DefaultThreadPoolKind,
	PoolQueueSize:    DefaultPoolQueueSize,
	ReadTimeout:      DefaultReadTimeout,
	WriteTimeout:     DefaultWriteTimeout,
	SegmentOptions: &segmentOptions{
		Size:      DefaultSegmentSize,
		Directory: DefaultSegmentDirectory,
	},
}

// NewDefaultOptions returns a fresh copy of the baseline configuration. Each
// call allocates its own SegmentOptions so callers never share mutable state.
func NewDefaultOptions() Options {
	opts := defaultOptions
	segCopy := *defaultOptions.SegmentOptions
	opts.SegmentOptions = &segCopy
	return opts
}
