// Package ignite provides a high-performance key/value data store designed
// for fast read and write operations, inspired by Bitcask. It combines an
// in-memory hash table (the index) with an append-only log structure on
// disk to achieve high throughput, and offers a bbolt-backed alternative
// engine behind the same interface.
package ignite

import (
	"context"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/boltengine"
	"github.com/iamNilotpal/ignitedb/internal/engine"
	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
	"github.com/iamNilotpal/ignitedb/pkg/seginfo"
)

// boltFileName is the single bbolt database file the sled-engine stand-in
// stores its bucket in, used both to open it and to detect its presence
// during engine selection (spec.md §6.5).
const boltFileName = "ignitedb.sled"

// Instance is the primary entry point for interacting with the Ignite
// store, providing methods for setting, getting, and deleting key-value
// pairs, backed by whichever engine implementation was selected at open.
type Instance struct {
	engine  engine.API
	options *options.Options
}

// NewInstance creates and initializes a new Ignite DB instance, selecting
// and opening the engine implementation per spec.md §6.5: use
// opts.EngineKind if set (failing with WrongEngine if it contradicts what
// is already on disk), otherwise auto-detect from the data directory's
// contents.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	kind, err := resolveEngineKind(defaultOpts.DataDir, defaultOpts.EngineKind)
	if err != nil {
		return nil, err
	}
	defaultOpts.EngineKind = kind

	// Each instance gets its own registry rather than prometheus's global
	// DefaultRegisterer, so opening more than one Instance in a process (as
	// tests and multi-tenant hosts both do) never collides on metric names.
	m := metrics.New(prometheus.NewRegistry())

	eng, err := openEngine(ctx, &defaultOpts, log, m)
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// openEngine constructs the concrete engine implementation named by
// opts.EngineKind.
func openEngine(ctx context.Context, opts *options.Options, log *zap.SugaredLogger, m *metrics.EngineMetrics) (engine.API, error) {
	switch opts.EngineKind {
	case options.EngineKindBolt:
		if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create data directory").
				WithPath(opts.DataDir)
		}
		return boltengine.Open(boltengine.Config{
			Path:   filepath.Join(opts.DataDir, boltFileName),
			Logger: log,
		})
	default:
		return engine.New(ctx, &engine.Config{Options: opts, Logger: log, Metrics: m})
	}
}

// DetectEngine scans dir for evidence of which engine kind previously
// created files there: any .kvs segment file means the log-structured
// engine, the bolt database file means the sled stand-in, and an empty or
// nonexistent directory means no prior engine is pinned (spec.md §6.5).
// The returned string is "" when nothing is detected.
func DetectEngine(dir string) (string, error) {
	if exists, err := pathExists(dir); err != nil {
		return "", err
	} else if !exists {
		return "", nil
	}

	if exists, err := pathExists(filepath.Join(dir, boltFileName)); err != nil {
		return "", err
	} else if exists {
		return options.EngineKindBolt, nil
	}

	segDir := filepath.Join(dir, options.DefaultSegmentDirectory)
	if exists, err := pathExists(segDir); err != nil {
		return "", err
	} else if !exists {
		return "", nil
	}

	ids, err := seginfo.ListSegmentIDs(segDir)
	if err != nil {
		return "", err
	}
	if len(ids) > 0 {
		return options.EngineKindLog, nil
	}

	return "", nil
}

// resolveEngineKind implements spec.md §6.5's precedence: an explicit,
// non-empty requested kind must match what's detected on disk (or nothing
// is detected yet); otherwise fall back to detection, defaulting to the
// log-structured engine when the directory is untouched.
func resolveEngineKind(dir, requested string) (string, error) {
	detected, err := DetectEngine(dir)
	if err != nil {
		return "", err
	}

	if requested == "" {
		if detected == "" {
			return options.EngineKindLog, nil
		}
		return detected, nil
	}

	if detected != "" && detected != requested {
		return "", errors.NewWrongEngineError(requested, detected)
	}
	return requested, nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Set stores a key-value pair in the database. If the key already exists,
// its value is updated. The operation is durable, written to the
// append-only log before returning (spec.md §4.4).
func (i *Instance) Set(ctx context.Context, key, val string) error {
	return i.engine.Set(key, val)
}

// Get retrieves the value associated with key, reporting whether it was
// present.
func (i *Instance) Get(ctx context.Context, key string) (string, bool, error) {
	return i.engine.Get(key)
}

// Remove deletes key from the database. Removing an absent key returns a
// KeyNotFound error (spec.md §4.4, §7).
func (i *Instance) Remove(ctx context.Context, key string) error {
	return i.engine.Remove(key)
}

// Close gracefully shuts down the Ignite DB instance, releasing all
// associated resources: the worker pool, background compactor, index, and
// segment files.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}

// Engine exposes the underlying engine.API directly, for callers — like
// internal/server — that dispatch operations without a context parameter.
func (i *Instance) Engine() engine.API {
	return i.engine
}
