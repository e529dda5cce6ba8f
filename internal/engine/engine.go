// Package engine provides the core database engine implementation for the
// Ignite storage system.
//
// The engine serves as the central coordinator and entry point for all
// database operations. It orchestrates the interaction between five main
// subsystems:
//   - Index: in-memory map from key to the location of its latest record
//   - Segment store: the directory of append-only segment files
//   - Writer: the single serialized append path
//   - Reader: the concurrent read path (shared read locks only, never the writer's lock)
//   - Compactor: background reclamation of superseded/deleted record bytes
//
// Operations are dispatched onto a worker pool and block on a one-shot
// reply channel, mirroring original_source/src/engine/my_engine.rs's
// tokio::oneshot-based KvsEngine::{set,get,remove}.
package engine

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/compactor"
	"github.com/iamNilotpal/ignitedb/internal/index"
	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/internal/pool"
	"github.com/iamNilotpal/ignitedb/internal/reader"
	"github.com/iamNilotpal/ignitedb/internal/segment"
	"github.com/iamNilotpal/ignitedb/internal/writer"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

// API is the operation surface every embedded engine implementation
// exposes, satisfied by both *Engine (the log-structured engine) and
// internal/boltengine's bbolt-backed alternative — the substitutability
// spec.md §1 requires.
type API interface {
	Set(key, val string) error
	Get(key string) (string, bool, error)
	Remove(key string) error
	Close() error
}

var _ API = (*Engine)(nil)

// Engine is the log-structured embedded engine: the single-writer/
// many-reader/background-compactor design of spec.md §4.
type Engine struct {
	log *zap.SugaredLogger

	store *segment.Store
	idx   *index.Index

	writer    *writer.Writer
	reader    *reader.Reader
	compactor *compactor.Compactor
	pool      pool.Pool
	closed    atomic.Bool
}

// Config holds all the parameters needed to initialize a new Engine
// instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
	// Metrics is the metric set every subsystem reports into. It must be
	// non-nil: the compactor reads the uncompacted-byte count from it, and
	// New fails when it is missing. pkg/ignite builds one per Instance on
	// its own registry.
	Metrics *metrics.EngineMetrics
}

// New recovers the segment directory, replays every record into a fresh
// index (spec.md §4.7 "recovery"), then wires together the writer, reader,
// compactor, and dispatch pool and starts the compactor's background loop.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "engine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	opts := config.Options
	segDir := filepath.Join(opts.DataDir, opts.SegmentOptions.Directory)

	store, err := segment.Open(segment.Config{
		SegmentDir:  segDir,
		SegmentSize: opts.SegmentOptions.Size,
		Logger:      config.Logger,
	})
	if err != nil {
		return nil, err
	}

	idx, err := index.New(ctx, &index.Config{DataDir: opts.DataDir, Logger: config.Logger})
	if err != nil {
		store.Close()
		return nil, err
	}

	if err := replayIndex(store, idx); err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	m := config.Metrics

	w, err := writer.New(writer.Config{Store: store, Index: idx, Metrics: m, Logger: config.Logger})
	if err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	r, err := reader.New(reader.Config{Table: store.Table(), Index: idx, Metrics: m})
	if err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	c, err := compactor.New(compactor.Config{
		Store:         store,
		Index:         idx,
		Metrics:       m,
		Logger:        config.Logger,
		Threshold:     opts.CompactThreshold,
		CheckInterval: opts.CompactCheck,
	})
	if err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	p, err := pool.New(opts.ThreadPoolKind, opts.ThreadPoolSize, opts.PoolQueueSize, config.Logger, m)
	if err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	c.Start()

	config.Logger.Infow("engine opened",
		"data_dir", opts.DataDir, "keys_recovered", idx.Len(), "active_segment", store.ActiveID(),
	)

	return &Engine{
		log:       config.Logger,
		store:     store,
		idx:       idx,
		writer:    w,
		reader:    r,
		compactor: c,
		pool:      p,
	}, nil
}

// replayIndex rebuilds idx from every segment in store, oldest file_id
// first and in file order within each segment, so that the last write
// physically recorded for a key is the one left in the index (invariant I6,
// spec.md §3). A record whose file is truncated at the very end is silently
// dropped (spec.md §8 scenario 6); corruption elsewhere is fatal.
func replayIndex(store *segment.Store, idx *index.Index) error {
	for _, id := range store.Table().AllIDsAscending() {
		f, ok := store.Table().Get(id)
		if !ok {
			continue
		}

		records, err := codec.IterateFile(f)
		if err != nil {
			return err
		}

		for _, rec := range records {
			if rec.Record.IsDel {
				idx.Delete(rec.Record.Key)
				continue
			}
			idx.Set(rec.Record.Key, index.Entry{
				FileID:     id,
				RecordLen:  rec.RecordLen,
				ByteOffset: rec.PayloadOffset,
			})
		}
	}
	return nil
}

// setResult, getResult and removeResult carry an operation's outcome back
// across the one-shot reply channel a pool job closes over.
type setResult struct{ err error }
type getResult struct {
	val string
	ok  bool
	err error
}
type removeResult struct{ err error }

// Set dispatches a put onto the worker pool and blocks for its completion,
// matching my_engine.rs's KvsEngine::set (spawn a blocking write, await the
// oneshot reply).
func (e *Engine) Set(key, val string) error {
	reply := make(chan setResult, 1)
	e.pool.Submit(func() {
		reply <- setResult{err: e.writer.Set(key, val)}
	})
	res := <-reply
	return res.err
}

// Get dispatches a lookup onto the worker pool and blocks for its
// completion.
func (e *Engine) Get(key string) (string, bool, error) {
	reply := make(chan getResult, 1)
	e.pool.Submit(func() {
		val, ok, err := e.reader.Get(key)
		reply <- getResult{val: val, ok: ok, err: err}
	})
	res := <-reply
	return res.val, res.ok, res.err
}

// Remove dispatches a delete onto the worker pool and blocks for its
// completion.
func (e *Engine) Remove(key string) error {
	reply := make(chan removeResult, 1)
	e.pool.Submit(func() {
		reply <- removeResult{err: e.writer.Remove(key)}
	})
	res := <-reply
	return res.err
}

// Close stops the compactor, drains and closes the worker pool, then closes
// the index and segment table, combining every subsystem's close error
// (spec.md §4.7's shutdown contract).
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return errors.NewEngineClosedError("Close")
	}

	e.compactor.Stop()

	var errs []error
	if err := e.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.idx.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}

	e.log.Infow("engine closed")
	return multierr.Combine(errs...)
}
