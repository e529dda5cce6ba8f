package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *EngineMetrics

	assert.NotPanics(t, func() {
		m.RecordWritten(10)
		m.RecordRead(10)
		m.IncSegmentRotations()
		m.AddUncompactedBytes(10)
		m.SubUncompactedBytes(5)
		m.RecordCompaction(5)
		m.SetPoolQueueDepth(3)
	})
	assert.Equal(t, uint64(0), m.UncompactedBytes())
}

func TestUncompactedBytesTracksAddAndSub(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddUncompactedBytes(100)
	assert.Equal(t, uint64(100), m.UncompactedBytes())

	m.SubUncompactedBytes(40)
	assert.Equal(t, uint64(60), m.UncompactedBytes())
}

func TestSubUncompactedBytesClampsAtZero(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddUncompactedBytes(10)
	m.SubUncompactedBytes(100)
	assert.Equal(t, uint64(0), m.UncompactedBytes())
}

func TestRecordCompactionReducesUncompactedBytes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddUncompactedBytes(100)
	m.RecordCompaction(30)
	assert.Equal(t, uint64(70), m.UncompactedBytes())
}
