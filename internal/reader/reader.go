// Package reader implements the stateless read path over a shared index
// and segment table: it performs positioned reads without mutating either,
// so many readers run in parallel with each other and with the writer.
//
// Grounded on original_source/src/engine/my_engine.rs's Reader.get (clone
// the file handle under a brief read lock, release it, then read) and
// shake-karrot-lightkafka/internal/segment/log.go's use of positioned
// reads instead of seek-then-read.
package reader

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/index"
	"github.com/iamNilotpal/ignitedb/internal/metrics"
	"github.com/iamNilotpal/ignitedb/internal/segment"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

// Reader is a stateless snapshot over the engine's shared index and
// segment table (spec.md §4.5). It carries no locks of its own beyond what
// Table.WithReadLock momentarily takes — a Reader is cheap to share across
// every server connection handler.
type Reader struct {
	table   *segment.Table
	idx     *index.Index
	metrics *metrics.EngineMetrics
}

// Config configures a Reader.
type Config struct {
	Table   *segment.Table
	Index   *index.Index
	Metrics *metrics.EngineMetrics
}

// New builds a Reader over an already-opened segment table and index.
func New(config Config) (*Reader, error) {
	if config.Table == nil || config.Index == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "reader configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}
	return &Reader{table: config.Table, idx: config.Index, metrics: config.Metrics}, nil
}

// Get returns the current value for key, or (_, false, nil) if key is
// absent. It never mutates the index or the segment table (spec.md §4.5):
//  1. under the segment table's read lock, look up the index entry and then
//     the segment handle it names, and duplicate that handle's file
//     descriptor — all before the lock is released, so a compactor commit
//     (which holds the table's exclusive lock across its own swap and index
//     redirect) can never interleave between the index lookup and the
//     handle lookup nor between the handle lookup and the duplicate;
//  2. the duplicate keeps the underlying file description alive
//     independent of the original *os.File's lifetime, so a compactor
//     closing the original handle after the lock is released can't
//     invalidate our read (spec.md §5 "resource hazards");
//  3. perform a single positioned pread of RecordLen bytes at ByteOffset,
//     which by construction is exactly the record's JSON payload.
func (r *Reader) Get(key string) (string, bool, error) {
	var (
		entry  index.Entry
		fileOK bool
		fName  string
		dupFd  int
		dupErr error
	)

	found := r.table.WithReadLock(
		func() (uint32, bool) {
			e, ok := r.idx.Get(key)
			if !ok {
				return 0, false
			}
			entry = e
			return e.FileID, true
		},
		func(f *os.File, ok bool) {
			fileOK = ok
			if !ok {
				return
			}
			fName = f.Name()
			dupFd, dupErr = unix.Dup(int(f.Fd()))
		},
	)
	if !found {
		return "", false, nil
	}
	if !fileOK {
		return "", false, errors.NewEngineError(nil, errors.ErrorCodeIO, "segment handle missing for index entry").
			WithOperation("Get").WithKey(key).WithDetail("file_id", entry.FileID)
	}
	if dupErr != nil {
		return "", false, errors.NewStorageError(dupErr, errors.ErrorCodeIO, "failed to duplicate segment file handle").
			WithFileName(fName)
	}
	defer unix.Close(dupFd)

	payload := make([]byte, entry.RecordLen)
	if err := preadExact(dupFd, payload, entry.ByteOffset); err != nil {
		return "", false, errors.NewStorageError(err, errors.ErrorCodeIO, "positioned read failed").
			WithFileName(fName).WithOffset(int(entry.ByteOffset))
	}

	rec, err := codec.DecodePayload(payload)
	if err != nil {
		return "", false, err
	}

	if r.metrics != nil {
		r.metrics.RecordRead(uint64(len(payload)))
	}
	return rec.Val, true, nil
}

// preadExact fills buf completely via repeated pread calls at increasing
// offsets, the same retry-on-short-read shape original_source/src/engine/
// my_engine.rs's pread_exact uses for Windows' seek_read.
func preadExact(fd int, buf []byte, offset int64) error {
	for len(buf) > 0 {
		n, err := unix.Pread(fd, buf, offset)
		if err != nil {
			return err
		}
		if n == 0 {
			return unix.EIO
		}
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}
