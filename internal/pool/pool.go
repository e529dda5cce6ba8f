// Package pool provides the two worker-pool flavors operations are
// dispatched onto: a naive pool that spawns a goroutine per job, and a
// shared-queue pool that runs jobs on a fixed set of workers pulling from a
// bounded channel. Both recover a panicking job so one bad request never
// takes down a worker (spec.md §7 "A panic inside a pool worker is caught
// and logged; the worker continues").
//
// Grounded on original_source/src/thread_pool.rs's ThreadPool trait
// (NaiveThreadPool, SharedQueueThreadPool) — channel-of-closures with
// catch_unwind around each job — ported to Go's goroutines and channels.
package pool

import (
	"sync"

	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

// Job is a unit of work dispatched onto a Pool. Jobs must not panic past
// recovery expectations — a panicking job is recovered and logged, not
// propagated.
type Job func()

// Pool dispatches jobs for execution, either immediately (Naive) or onto a
// fixed set of background workers (SharedQueue).
type Pool interface {
	// Submit schedules job for execution. It never blocks the caller
	// beyond a possibly-bounded queue send.
	Submit(job Job)
	// Close stops accepting new jobs and waits for in-flight and queued
	// jobs to finish.
	Close() error
}

// New builds a Pool of the requested kind (options.ThreadPoolKindNaive or
// options.ThreadPoolKindShared).
func New(kind string, size int, queueSize int, log *zap.SugaredLogger, m *metrics.EngineMetrics) (Pool, error) {
	if log == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "pool logger is required",
		).WithField("log").WithRule("required")
	}

	switch kind {
	case options.ThreadPoolKindNaive, "":
		return newNaivePool(log), nil
	case options.ThreadPoolKindShared:
		return newSharedQueuePool(size, queueSize, log, m), nil
	default:
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "unknown thread pool kind",
		).WithField("kind").WithRule("oneof=naive,better").WithProvided(kind)
	}
}

func runRecovered(log *zap.SugaredLogger, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("recovered from panic in pool worker", "panic", r)
		}
	}()
	job()
}

// NaivePool spawns a fresh goroutine for every submitted job (spec.md
// §4.8's "naive" flavor: no bound, no shared queue).
type NaivePool struct {
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

func newNaivePool(log *zap.SugaredLogger) *NaivePool {
	return &NaivePool{log: log}
}

func (p *NaivePool) Submit(job Job) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warnw("job submitted after pool close, dropping")
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		runRecovered(p.log, job)
	}()
}

func (p *NaivePool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// SharedQueuePool runs jobs on a fixed number of long-lived workers pulling
// from one bounded channel (spec.md §4.8's "better" flavor, the default).
type SharedQueuePool struct {
	log     *zap.SugaredLogger
	metrics *metrics.EngineMetrics

	jobs chan Job
	wg   sync.WaitGroup

	closeOnce sync.Once
}

func newSharedQueuePool(workers, queueSize int, log *zap.SugaredLogger, m *metrics.EngineMetrics) *SharedQueuePool {
	if workers <= 0 {
		workers = options.DefaultThreadPoolSize
	}
	if queueSize <= 0 {
		queueSize = options.DefaultPoolQueueSize
	}

	p := &SharedQueuePool{
		log:     log,
		metrics: m,
		jobs:    make(chan Job, queueSize),
	}

	p.wg.Add(workers)
	for id := 0; id < workers; id++ {
		go p.worker(id)
	}

	log.Infow("shared queue pool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *SharedQueuePool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.metrics.SetPoolQueueDepth(len(p.jobs))
		runRecovered(p.log, job)
	}
}

// Submit enqueues job, blocking if the queue is currently full — the
// "implementation may either block or fail fast" choice spec.md §7 leaves
// open for PoolFull; this pool chooses to block, applying backpressure to
// the caller rather than dropping work.
func (p *SharedQueuePool) Submit(job Job) {
	p.jobs <- job
	p.metrics.SetPoolQueueDepth(len(p.jobs))
}

func (p *SharedQueuePool) Close() error {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
	return nil
}
