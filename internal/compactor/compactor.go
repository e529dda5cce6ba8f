// Package compactor runs the background worker that reclaims space by
// rewriting a prefix of closed segments into a single compacted segment,
// while readers and the writer keep running.
//
// Grounded on original_source/src/engine/my_engine.rs's Compactor.compact
// (select oldest-first closed segments, rewrite live records, swap under
// an exclusive table lock, compare-and-swap each moved index entry) and
// shake-karrot-lightkafka/internal/retention/retention_cleaner.go's
// ticker-driven background worker shape.
package compactor

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/index"
	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/internal/segment"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

// defaultBatchSize is the number of closed segments rewritten per
// compaction pass, matching spec.md §4.6 step 3's "typical batch: 2
// segments".
const defaultBatchSize = 2

// Compactor is the background worker described by spec.md §4.6. It holds
// shares of the same index and segment table the writer and reader use,
// wired together at open time (spec.md §9 "Cyclic references").
type Compactor struct {
	store   *segment.Store
	idx     *index.Index
	metrics *metrics.EngineMetrics
	log     *zap.SugaredLogger

	threshold     uint64
	checkInterval time.Duration
	batchSize     int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config configures a Compactor.
type Config struct {
	Store         *segment.Store
	Index         *index.Index
	Metrics       *metrics.EngineMetrics
	Logger        *zap.SugaredLogger
	Threshold     uint64        // COMPACT_THRESHOLD (spec.md §6.6)
	CheckInterval time.Duration // COMPACT_CHECK (spec.md §6.6)
	BatchSize     int           // 0 means defaultBatchSize
}

// New builds a Compactor. It does not start the background loop; call
// Start for that.
func New(config Config) (*Compactor, error) {
	if config.Store == nil || config.Index == nil || config.Metrics == nil ||
		config.Logger == nil || config.CheckInterval <= 0 {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "compactor configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Compactor{
		store:         config.Store,
		idx:           config.Index,
		metrics:       config.Metrics,
		log:           config.Logger,
		threshold:     config.Threshold,
		checkInterval: config.CheckInterval,
		batchSize:     batchSize,
		stopCh:        make(chan struct{}),
	}, nil
}

// Start launches the background compaction loop (spec.md §4.6: "runs in a
// dedicated worker thread started at open time").
func (c *Compactor) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop signals the background loop to exit and waits for it to finish —
// the "compactor is signaled and joined" half of spec.md §4.7's engine
// shutdown contract.
func (c *Compactor) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Compactor) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tick()
		case <-c.stopCh:
			return
		}
	}
}

// tick implements spec.md §4.6 steps 1-2: wake up, and skip the pass
// entirely unless uncompacted bytes have crossed COMPACT_THRESHOLD.
func (c *Compactor) tick() {
	if c.metrics.UncompactedBytes() < c.threshold {
		return
	}
	if err := c.compact(); err != nil {
		// Compactor errors are logged and the tick is abandoned; no state
		// change is committed (spec.md §7).
		c.log.Errorw("compaction tick failed, no state committed", "error", err)
	}
}

// movedRecord remembers where a live record used to live and where it was
// rewritten to, so the index can be updated with a compare-and-swap once
// the new segment is committed (spec.md §4.6 steps 5/7).
type movedRecord struct {
	key          string
	oldEntry     index.Entry
	newOffset    int64
	newRecordLen uint32
}

// compact implements spec.md §4.6 steps 3-8. It selects a strict ascending
// prefix of closed segments (SPEC_FULL.md §6 decision 1 — never compact out
// of order), rewrites live records into a fresh output file, then commits
// the table swap and the compare-and-swap redirect of every moved key's
// index entry as one critical section over the segment table.
func (c *Compactor) compact() error {
	sourceIDs := c.store.Table().ClosedIDsAscending(c.store.ActiveID())
	if len(sourceIDs) == 0 {
		return nil
	}
	if len(sourceIDs) > c.batchSize {
		sourceIDs = sourceIDs[:c.batchSize]
	}

	reservedID := c.store.ReserveCompactionID(sourceIDs)

	out, err := c.store.OpenCompactionOutput()
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			name := out.Name()
			out.Close()
			os.Remove(name)
		}
	}()

	var sourceBytes int64
	var outOffset int64
	var moved []movedRecord

	for _, id := range sourceIDs {
		f, ok := c.store.Table().Get(id)
		if !ok {
			continue
		}

		info, err := f.Stat()
		if err != nil {
			return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat source segment").
				WithSegmentID(int(id))
		}
		sourceBytes += info.Size()

		records, err := codec.IterateFile(f)
		if err != nil {
			return err
		}

		for _, rec := range records {
			if rec.Record.IsDel {
				if _, present := c.idx.Get(rec.Record.Key); present {
					// The index still holds a put for this key, and that
					// put is newer than this tombstone (a tombstone removes
					// the key from the index); dropping this tombstone
					// would not lose its effect.
					continue
				}
				frame, _, err := codec.Encode(rec.Record)
				if err != nil {
					return err
				}
				if _, err := out.WriteAt(frame, outOffset); err != nil {
					return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted tombstone")
				}
				outOffset += int64(len(frame))
				continue
			}

			candidate := index.Entry{FileID: id, RecordLen: rec.RecordLen, ByteOffset: rec.PayloadOffset}
			current, ok := c.idx.Get(rec.Record.Key)
			if !ok || current != candidate {
				continue // superseded by a newer write; drop it
			}

			frame, payloadLen, err := codec.Encode(rec.Record)
			if err != nil {
				return err
			}
			newPayloadOffset := outOffset + codec.LenPrefixSize
			if _, err := out.WriteAt(frame, outOffset); err != nil {
				return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write compacted record")
			}
			outOffset += int64(len(frame))

			moved = append(moved, movedRecord{
				key:          rec.Record.Key,
				oldEntry:     candidate,
				newOffset:    newPayloadOffset,
				newRecordLen: payloadLen,
			})
		}
	}

	reindex := func() {
		for _, mv := range moved {
			next := index.Entry{FileID: reservedID, RecordLen: mv.newRecordLen, ByteOffset: mv.newOffset}
			// If the entry no longer matches what we read, a writer raced
			// ahead of compaction and already superseded this key — discard
			// the rewrite rather than rewind it (spec.md §4.6 step 7). This
			// runs inside CommitCompaction's table-lock critical section, so
			// no reader can observe the table swapped without the index
			// already redirected to match.
			c.idx.CompareAndSwap(mv.key, mv.oldEntry, next)
		}
	}

	compactedFile, err := c.store.CommitCompaction(sourceIDs, reservedID, out, reindex)
	if err != nil {
		return err
	}
	committed = true

	outInfo, err := compactedFile.Stat()
	var outputBytes int64
	if err == nil {
		outputBytes = outInfo.Size()
	}

	var reclaimed uint64
	if sourceBytes > outputBytes {
		reclaimed = uint64(sourceBytes - outputBytes)
	}
	c.metrics.RecordCompaction(reclaimed)

	c.log.Infow("compaction committed",
		"sources", sourceIDs, "output", reservedID,
		"records_moved", len(moved), "bytes_reclaimed", reclaimed,
	)
	return nil
}
