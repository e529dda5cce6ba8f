// Package seginfo provides utilities for naming and discovering the segment
// files of ignitedb's log-structured storage engine.
//
// Filename Format: NNNNNNNNN.kvs
//
// Where NNNNNNNNN is a zero-padded 9-digit, monotonically increasing segment
// id. Zero-padding keeps lexicographic directory listings in the same order
// as numeric id order, which both the segment store and the compactor rely
// on (the compactor always selects the oldest closed segments first).
//
// Example filenames:
//
//	000000001.kvs
//	000000002.kvs
//	000000042.kvs
package seginfo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/iamNilotpal/ignitedb/pkg/filesys"
)

// Extension is the fixed suffix of every segment filename.
const Extension = ".kvs"

// idDigits is the zero-padded width of the numeric segment id component.
const idDigits = 9

// CompactingName is the transient filename a compaction output is written
// under before being renamed to its final {id:09}.kvs name. Its presence at
// open time indicates a crashed compaction that must be cleaned up before
// recovery proceeds (spec.md §6.1).
const CompactingName = "compacting"

// GenerateName creates the filename for a segment with the given id.
func GenerateName(id uint32) string {
	return fmt.Sprintf("%0*d%s", idDigits, id, Extension)
}

// ParseSegmentID extracts the numeric id from a segment filename (the base
// name, not a full path). It returns an error if the name isn't of the form
// NNNNNNNNN.kvs.
func ParseSegmentID(filename string) (uint32, error) {
	if !strings.HasSuffix(filename, Extension) {
		return 0, fmt.Errorf("filename %s does not end with %s", filename, Extension)
	}
	stem := strings.TrimSuffix(filename, Extension)
	id, err := strconv.ParseUint(stem, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse segment id from %q: %w", filename, err)
	}
	return uint32(id), nil
}

// ListSegmentIDs returns every segment id present in segmentDir (a directory
// path, not a glob pattern), sorted in ascending order. Non-.kvs entries are
// ignored.
func ListSegmentIDs(segmentDir string) ([]uint32, error) {
	entries, err := filesys.ReadDir(filepath.Join(segmentDir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("failed to read segment directory %s: %w", segmentDir, err)
	}

	ids := make([]uint32, 0, len(entries))
	for _, entry := range entries {
		id, err := ParseSegmentID(filepath.Base(entry))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// GetLastSegmentInfo discovers the most recent (highest-id) segment file in
// segmentDir.
//
// Returns:
//   - uint32: the id of the latest segment (0 if none exist).
//   - os.FileInfo: metadata for the latest segment (nil if none exist).
//   - error: any error encountered while listing or stat-ing.
func GetLastSegmentInfo(segmentDir string) (uint32, os.FileInfo, error) {
	ids, err := ListSegmentIDs(segmentDir)
	if err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}

	lastID := ids[len(ids)-1]
	info, err := GetFileInfo(filepath.Join(segmentDir, GenerateName(lastID)))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to stat segment %d: %w", lastID, err)
	}
	return lastID, info, nil
}

// GetFileInfo retrieves file system metadata for a given path.
func GetFileInfo(filePath string) (os.FileInfo, error) {
	return os.Stat(filePath)
}
