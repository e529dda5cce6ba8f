// Package metrics exposes the engine's Prometheus instrumentation: bytes
// and records written/read, segment rotations, compaction runs and bytes
// reclaimed, and the shared worker pool's queue depth.
//
// Grounded on dreamsxin-wal/metrics.go's walMetrics struct-of-counters
// registered with promauto.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics is the set of counters and gauges every engine subsystem
// reports into. A nil *EngineMetrics is a valid receiver: every method
// checks for nil itself and then does nothing (UncompactedBytes returns 0).
type EngineMetrics struct {
	bytesWritten     prometheus.Counter
	bytesRead        prometheus.Counter
	recordsWritten   prometheus.Counter
	recordsRead      prometheus.Counter
	segmentRotations prometheus.Counter
	compactionRuns   prometheus.Counter
	compactionBytes  prometheus.Counter
	uncompactedBytes prometheus.Gauge
	poolQueueDepth   prometheus.Gauge

	// uncompactedRaw mirrors uncompactedBytes as a plain counter the
	// compactor can read synchronously (a prometheus.Gauge has no getter).
	uncompactedRaw atomic.Uint64
}

// New registers and returns the engine's metric set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across test runs.
func New(reg prometheus.Registerer) *EngineMetrics {
	factory := promauto.With(reg)

	return &EngineMetrics{
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_bytes_written_total",
			Help: "Total bytes appended to segment files.",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_bytes_read_total",
			Help: "Total bytes read from segment files by get operations.",
		}),
		recordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_records_written_total",
			Help: "Total records (puts and tombstones) appended.",
		}),
		recordsRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_records_read_total",
			Help: "Total records decoded by get operations.",
		}),
		segmentRotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_segment_rotations_total",
			Help: "Total times the active segment was rotated.",
		}),
		compactionRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_compaction_runs_total",
			Help: "Total compaction passes that rewrote at least one segment.",
		}),
		compactionBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "ignitedb_compaction_bytes_reclaimed_total",
			Help: "Total bytes freed by compaction.",
		}),
		uncompactedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ignitedb_uncompacted_bytes",
			Help: "Current count of superseded/deleted bytes pending compaction.",
		}),
		poolQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ignitedb_pool_queue_depth",
			Help: "Current number of jobs queued in the shared worker pool.",
		}),
	}
}

func (m *EngineMetrics) RecordWritten(bytes uint64) {
	if m == nil {
		return
	}
	m.recordsWritten.Inc()
	m.bytesWritten.Add(float64(bytes))
}

func (m *EngineMetrics) RecordRead(bytes uint64) {
	if m == nil {
		return
	}
	m.recordsRead.Inc()
	m.bytesRead.Add(float64(bytes))
}

func (m *EngineMetrics) IncSegmentRotations() {
	if m == nil {
		return
	}
	m.segmentRotations.Inc()
}

func (m *EngineMetrics) AddUncompactedBytes(n uint64) {
	if m == nil {
		return
	}
	m.uncompactedRaw.Add(n)
	m.uncompactedBytes.Add(float64(n))
}

func (m *EngineMetrics) SubUncompactedBytes(n uint64) {
	if m == nil {
		return
	}
	subClamped(&m.uncompactedRaw, n)
	m.uncompactedBytes.Sub(float64(n))
}

// UncompactedBytes returns the current uncompacted-byte count. The
// compactor polls this against COMPACT_THRESHOLD on every tick (spec.md
// §4.6 step 2).
func (m *EngineMetrics) UncompactedBytes() uint64 {
	if m == nil {
		return 0
	}
	return m.uncompactedRaw.Load()
}

func (m *EngineMetrics) RecordCompaction(bytesReclaimed uint64) {
	if m == nil {
		return
	}
	m.compactionRuns.Inc()
	m.compactionBytes.Add(float64(bytesReclaimed))
	m.SubUncompactedBytes(bytesReclaimed)
}

// subClamped subtracts n from a, clamping at zero instead of wrapping
// around, since a compaction pass's reclaimed-bytes estimate and the
// running uncompacted counter can race with concurrent writers.
func subClamped(a *atomic.Uint64, n uint64) {
	for {
		cur := a.Load()
		next := uint64(0)
		if n < cur {
			next = cur - n
		}
		if a.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (m *EngineMetrics) SetPoolQueueDepth(n int) {
	if m == nil {
		return
	}
	m.poolQueueDepth.Set(float64(n))
}
