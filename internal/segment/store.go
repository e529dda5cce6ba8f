package segment

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/filesys"
	"github.com/iamNilotpal/ignitedb/pkg/seginfo"
)

// nextFileIDFile is the counter file persisting the monotonic id used for
// new segments, so restarts never reissue an id already on disk. Compaction
// output does not draw from it (see ReserveCompactionID).
const nextFileIDFile = "next_file_id"

func sortUint32s(ids []uint32) { slices.Sort(ids) }

func joinErrors(errs []error) error { return multierr.Combine(errs...) }

// Open recovers the segment directory: it removes any crashed compaction
// leftover, opens every existing segment for read-write, and either
// continues the highest-numbered segment as active or creates segment 1 if
// the directory is empty (spec.md §4.2, §6.1).
func Open(config Config) (*Store, error) {
	if config.SegmentDir == "" || config.Logger == nil || config.SegmentSize == 0 {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "segment store configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	if err := filesys.CreateDir(config.SegmentDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, config.SegmentDir)
	}

	compactingPath := filepath.Join(config.SegmentDir, seginfo.CompactingName)
	if exists, _ := filesys.Exists(compactingPath); exists {
		config.Logger.Warnw("removing crashed compaction output found at open", "path", compactingPath)
		if err := os.Remove(compactingPath); err != nil {
			return nil, errors.ClassifyFileOpenError(err, compactingPath, seginfo.CompactingName)
		}
	}

	ids, err := seginfo.ListSegmentIDs(config.SegmentDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		log:            config.Logger,
		dir:            config.SegmentDir,
		table:          newTable(),
		segmentSize:    config.SegmentSize,
		nextFileIDPath: filepath.Join(config.SegmentDir, nextFileIDFile),
	}

	var maxID uint32
	for _, id := range ids {
		path := filepath.Join(config.SegmentDir, seginfo.GenerateName(id))
		f, err := os.OpenFile(path, os.O_RDWR, 0644)
		if err != nil {
			return nil, errors.ClassifyFileOpenError(err, path, seginfo.GenerateName(id))
		}
		s.table.Put(id, f)
		if id > maxID {
			maxID = id
		}
	}

	persistedNext, err := s.loadNextFileID()
	if err != nil {
		return nil, err
	}
	if persistedNext < maxID {
		persistedNext = maxID
	}
	s.nextFileID.Store(persistedNext)

	if len(ids) == 0 {
		id, f, err := s.createSegment()
		if err != nil {
			return nil, err
		}
		s.table.Put(id, f)
		s.activeID.Store(id)
		s.activeFile.Store(f)
		s.log.Infow("created initial active segment", "file_id", id)
		return s, nil
	}

	activeID := maxID
	activeFile, _ := s.table.Get(activeID)
	size, err := activeFile.Stat()
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, activeFile.Name(), seginfo.GenerateName(activeID))
	}

	s.activeID.Store(activeID)
	s.activeFile.Store(activeFile)
	s.activeSize.Store(size.Size())
	s.log.Infow("recovered active segment", "file_id", activeID, "size", size.Size())
	return s, nil
}

// loadNextFileID reads the persisted counter, defaulting to 0 when absent.
func (s *Store) loadNextFileID() (uint32, error) {
	raw, err := os.ReadFile(s.nextFileIDPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.ClassifyFileOpenError(err, s.nextFileIDPath, nextFileIDFile)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "corrupt next_file_id counter").
			WithPath(s.nextFileIDPath)
	}
	return uint32(v), nil
}

// allocateFileID reserves and persists the next id in the counter. Only
// segment creation (Open on an empty directory, and Rotate) draws from this
// sequence; the compactor reuses its batch's lowest source id instead.
func (s *Store) allocateFileID() (uint32, error) {
	s.nextFileIDMu.Lock()
	defer s.nextFileIDMu.Unlock()

	id := s.nextFileID.Load() + 1
	if err := filesys.WriteFile(s.nextFileIDPath, 0644, []byte(strconv.FormatUint(uint64(id), 10))); err != nil {
		return 0, errors.ClassifySyncError(err, nextFileIDFile, s.nextFileIDPath, 0)
	}
	s.nextFileID.Store(id)
	return id, nil
}

func (s *Store) createSegment() (uint32, *os.File, error) {
	id, err := s.allocateFileID()
	if err != nil {
		return 0, nil, err
	}

	name := seginfo.GenerateName(id)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return 0, nil, errors.ClassifyFileOpenError(err, path, name)
	}
	return id, f, nil
}

// ActiveID returns the id of the segment currently accepting appends.
func (s *Store) ActiveID() uint32 { return s.activeID.Load() }

// ActiveSize returns the active segment's current logical length in bytes.
func (s *Store) ActiveSize() uint64 { return uint64(s.activeSize.Load()) }

// SegmentSize returns the configured rotation threshold.
func (s *Store) SegmentSize() uint64 { return s.segmentSize }

// Table exposes the segment table for the reader and compactor.
func (s *Store) Table() *Table { return s.table }

// Dir returns the segment directory path.
func (s *Store) Dir() string { return s.dir }

// AppendActive writes frame (the full length-prefix + JSON record) to the
// active segment at its current logical end, via a positioned write so no
// separate seek is needed, and returns the absolute offset of the JSON
// payload (the length prefix's offset + its width). Callers must serialize
// calls to this method themselves (spec.md §5 "single-writer, serialized").
func (s *Store) AppendActive(frame []byte, payloadPrefixWidth int64) (payloadOffset int64, err error) {
	f := s.activeFile.Load()
	offset := s.activeSize.Load()

	if _, err := f.WriteAt(frame, offset); err != nil {
		return 0, errors.ClassifySyncError(err, seginfo.GenerateName(s.activeID.Load()), f.Name(), int(offset))
	}

	s.activeSize.Add(int64(len(frame)))
	return offset + payloadPrefixWidth, nil
}

// Rotate closes off the current active segment (it remains in the table as
// a closed segment) and creates a fresh one at the next id, installing it
// as both the new active segment and a table entry (spec.md §4.4 rotate()).
func (s *Store) Rotate() (uint32, error) {
	previous := s.activeID.Load()

	id, f, err := s.createSegment()
	if err != nil {
		return 0, err
	}

	s.table.Put(id, f)
	s.activeFile.Store(f)
	s.activeID.Store(id)
	s.activeSize.Store(0)

	s.log.Infow("segment rotated", "previous_active", previous, "new_active", id)
	return id, nil
}

// ReserveCompactionID picks the id the compactor's output segment will be
// renamed to at commit: sourceIDs[0], the lowest id in the ascending batch
// the compactor selected. Reusing the lowest source id — rather than
// drawing a fresh one from allocateFileID's shared counter — guarantees the
// compacted output stays below every closed segment it didn't touch and
// below the active segment, preserving invariant I3 (spec.md §3) and the
// ascending-id replay order (spec.md §3's "id order is chronological
// order") without shifting anything else's id. Grounded on
// original_source/src/engine/my_engine.rs's compact(), which always renames
// its output to "1.kvs" — the lowest id a BTreeMap-ordered handle table can
// ever produce — relying on the same fact: by the time compaction runs at
// all, the lowest id is always already closed, never active.
func (s *Store) ReserveCompactionID(sourceIDs []uint32) uint32 {
	return sourceIDs[0]
}

// OpenCompactionOutput creates the transient "compacting" file compaction
// writes its rewritten records into (spec.md §4.6 step 4).
func (s *Store) OpenCompactionOutput() (*os.File, error) {
	path := filepath.Join(s.dir, seginfo.CompactingName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, seginfo.CompactingName)
	}
	return f, nil
}

// CommitCompaction renames the compacting output to its reserved final id,
// then — under one exclusive critical section over the segment table —
// retires every other source id, installs reservedID -> compactingFile, and
// invokes reindex to redirect the index to the new segment (spec.md §4.6
// step 6). Folding the index redirect into the same critical section as the
// table swap is what closes a race: a reader
// resolving a moved key takes the same table lock in WithReadLock, so it
// can never observe the table missing a source the index hasn't been
// repointed away from yet. Superseded segment files are closed and deleted
// only after the lock is released, since by then no reader can still be
// holding a reference to them. Grounded on
// original_source/src/engine/my_engine.rs's compact(), which holds its
// `handles` write lock across the equivalent span.
func (s *Store) CommitCompaction(sourceIDs []uint32, reservedID uint32, compactingFile *os.File, reindex func()) (*os.File, error) {
	finalName := seginfo.GenerateName(reservedID)
	finalPath := filepath.Join(s.dir, finalName)
	compactingPath := filepath.Join(s.dir, seginfo.CompactingName)

	if err := os.Rename(compactingPath, finalPath); err != nil {
		return nil, errors.ClassifyFileOpenError(err, finalPath, finalName)
	}

	var retired []*os.File
	var prior *os.File
	var hadPrior bool

	s.table.WithLock(func(get func(uint32) (*os.File, bool), put func(uint32, *os.File), remove func(uint32) (*os.File, bool)) {
		for _, id := range sourceIDs {
			if id == reservedID {
				// reservedID's old backing file was just replaced on disk
				// by the rename above; handled via prior below instead of
				// remove, since its file_id is being reinstalled, not freed.
				continue
			}
			if f, ok := remove(id); ok {
				retired = append(retired, f)
			}
		}

		prior, hadPrior = get(reservedID)
		put(reservedID, compactingFile)

		if reindex != nil {
			reindex()
		}
	})

	var errs []error
	for _, f := range retired {
		name := f.Name()
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if hadPrior {
		if err := prior.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := joinErrors(errs); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove compacted source segments")
	}

	s.log.Infow("compaction committed", "sources", sourceIDs, "output", reservedID)
	return compactingFile, nil
}

// Close closes every segment handle, including the active one.
func (s *Store) Close() error {
	return s.table.Close()
}
