// Package index provides the in-memory hash table implementation for
// ignitedb's log-structured storage engine. Every key lives in memory
// mapped to a compact Entry describing where its latest record sits on
// disk; the value itself is never cached here (spec.md §4.3).
//
// The writer inserts/overwrites entries as records are appended. The
// compactor rewrites segments in the background and must update an entry
// only if it still points at the segment being compacted — a concurrent
// write could have superseded it in the meantime. CompareAndSwap exists for
// exactly that race.
package index

import (
	"context"
	stdErrors "errors"

	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

var (
	ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")
)

// New creates and initializes a new Index instance configured according to the
// provided parameters. The returned Index is immediately ready for concurrent
// use and includes optimizations like pre-allocated map capacity.
func New(ctx context.Context, config *Config) (*Index, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:     config.Logger,
		dataDir: config.DataDir,
		entries: make(map[string]Entry, 2046),
	}, nil
}

// Get returns the entry for key, if present.
func (idx *Index) Get(key string) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.entries[key]
	return entry, ok
}

// Set records (or overwrites) the entry for key, returning the entry it
// displaced, if any. The writer uses the displaced entry's RecordLen to
// grow the engine-wide uncompacted-byte count.
func (idx *Index) Set(key string, entry Entry) (previous Entry, hadPrevious bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	previous, hadPrevious = idx.entries[key]
	idx.entries[key] = entry
	return previous, hadPrevious
}

// Delete removes key from the index, returning the entry it held, if any.
// The writer calls this when appending a tombstone, so the removed entry's
// RecordLen can be credited to the engine-wide uncompacted-byte count the
// same way an overwrite's displaced entry is.
func (idx *Index) Delete(key string) (previous Entry, existed bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	previous, existed = idx.entries[key]
	if existed {
		delete(idx.entries, key)
	}
	return previous, existed
}

// CompareAndSwap replaces key's entry with next only if its current entry
// equals prev. It reports whether the swap happened. The compactor uses
// this to move a key's entry to the freshly-written compaction segment
// without clobbering a write that raced ahead of it and already moved the
// key somewhere else.
func (idx *Index) CompareAndSwap(key string, prev, next Entry) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current, ok := idx.entries[key]
	if !ok || current != prev {
		return false
	}
	idx.entries[key] = next
	return true
}

// CompareAndDelete removes key only if its current entry equals prev, and
// reports whether the removal happened. It is the delete counterpart of
// CompareAndSwap; the compactor does not call it.
func (idx *Index) CompareAndDelete(key string, prev Entry) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current, ok := idx.entries[key]
	if !ok || current != prev {
		return false
	}
	delete(idx.entries, key)
	return true
}

// Len returns the number of live keys in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Snapshot returns a copy of every key -> Entry pair currently in the
// index; later writes to the index do not show in the returned map. The
// compactor does not use it: it checks each record against Get instead.
func (idx *Index) Snapshot() map[string]Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]Entry, len(idx.entries))
	for k, v := range idx.entries {
		out[k] = v
	}
	return out
}

// Close gracefully shuts down the Index, cleaning up resources and ensuring
// that the index cannot be used after closure.
func (idx *Index) Close() error {
	// Use atomic compare-and-swap to safely check and update the closed state.
	if !idx.closed.CompareAndSwap(false, true) {
		return errors.NewIndexError(ErrIndexClosed, errors.ErrorCodeIndexClosed, "index already closed").
			WithOperation("Close")
	}

	idx.log.Infow("Closing index system")

	idx.mu.Lock()
	defer idx.mu.Unlock()

	clear(idx.entries)
	idx.entries = nil

	idx.log.Infow("Index system closed successfully")
	return nil
}
