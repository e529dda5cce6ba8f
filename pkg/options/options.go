// Package options provides data structures and functions for configuring
// ignitedb. It defines various parameters that control the store's
// durability, performance, and maintenance operations, such as directory
// paths, segment characteristics, compaction cadence, and the worker pools
// used by the engine and the TCP server.
package options

import (
	"strings"
	"time"
)

// Defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Defines the maximum size a segment can grow to before rotation.
	// When a segment reaches this size, a new segment will be created.
	// Larger segments mean fewer files but slower compaction and recovery.
	//
	//  - Default: 1MiB
	//  - Maximum: 1GiB
	//  - Minimum: 4KiB
	Size uint64 `json:"segmentSize"`

	// Specifies the subdirectory (relative to DataDir) where segment files
	// are stored.
	//
	// Default: "segments"
	Directory string `json:"directory"`
}

// Options defines the configuration parameters for ignitedb. It controls
// storage, compaction, and dispatch behavior.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// CompactThreshold is the number of uncompacted bytes (superseded or
	// deleted record bytes since the last compaction) that must accumulate
	// before the compactor rewrites a batch of segments.
	//
	// Default: 2 * SegmentOptions.Size
	CompactThreshold uint64 `json:"compactThreshold"`

	// CompactCheck is how often the compactor wakes up to check whether
	// CompactThreshold has been crossed.
	//
	// Default: 1s
	CompactCheck time.Duration `json:"compactCheck"`

	// ThreadPoolSize is the number of workers in the shared worker pool that
	// dispatches engine operations and server connection handlers.
	//
	// Default: 4
	ThreadPoolSize int `json:"threadPoolSize"`

	// ThreadPoolKind selects the pool implementation: "naive" spawns one
	// goroutine per job, "better" dispatches onto a fixed set of workers
	// sharing a bounded queue.
	//
	// Default: "better"
	ThreadPoolKind string `json:"threadPoolKind"`

	// PoolQueueSize bounds the shared worker pool's job queue.
	//
	// Default: 4096
	PoolQueueSize int `json:"poolQueueSize"`

	// ReadTimeout bounds how long a server connection handler waits to read
	// a complete request.
	//
	// Default: 1s
	ReadTimeout time.Duration `json:"readTimeout"`

	// WriteTimeout bounds how long a server connection handler waits to
	// write a complete response.
	//
	// Default: 1s
	WriteTimeout time.Duration `json:"writeTimeout"`

	// EngineKind selects which engine implementation backs the store: "kvs"
	// for the log-structured engine, "sled" for the bbolt-backed
	// alternative. Empty means auto-detect from the data directory's
	// contents.
	EngineKind string `json:"engineKind"`

	// Configures segment management including size limits and storage location.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// OptionFunc is a function type that modifies ignitedb's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies the baseline configuration values to Options.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		*o = opts
	}
}

// WithDataDir sets the primary data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithCompactThreshold sets the number of uncompacted bytes that triggers a
// compaction tick.
func WithCompactThreshold(threshold uint64) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.CompactThreshold = threshold
		}
	}
}

// WithCompactCheck sets the compactor's wake-up interval.
func WithCompactCheck(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactCheck = interval
		}
	}
}

// WithThreadPoolSize sets the number of workers in the shared worker pool.
func WithThreadPoolSize(n int) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.ThreadPoolSize = n
		}
	}
}

// WithThreadPoolKind selects the worker pool implementation.
func WithThreadPoolKind(kind string) OptionFunc {
	return func(o *Options) {
		kind = strings.TrimSpace(kind)
		if kind == ThreadPoolKindNaive || kind == ThreadPoolKindShared {
			o.ThreadPoolKind = kind
		}
	}
}

// WithEngineKind selects which engine implementation backs the store.
func WithEngineKind(kind string) OptionFunc {
	return func(o *Options) {
		kind = strings.TrimSpace(kind)
		if kind == EngineKindLog || kind == EngineKindBolt {
			o.EngineKind = kind
		}
	}
}

// WithSegmentDir sets the directory (relative to DataDir) where segment
// files are stored.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// WithSegmentSize sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// WithReadTimeout sets the server's per-connection read timeout.
func WithReadTimeout(timeout time.Duration) OptionFunc {
	return func(o *Options) {
		if timeout > 0 {
			o.ReadTimeout = timeout
		}
	}
}

// WithWriteTimeout sets the server's per-connection write timeout.
func WithWriteTimeout(timeout time.Duration) OptionFunc {
	return func(o *Options) {
		if timeout > 0 {
			o.WriteTimeout = timeout
		}
	}
}
