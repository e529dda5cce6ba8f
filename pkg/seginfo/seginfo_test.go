package seginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNamePadsToNineDigits(t *testing.T) {
	assert.Equal(t, "000000001.kvs", GenerateName(1))
	assert.Equal(t, "000000042.kvs", GenerateName(42))
	assert.Equal(t, "123456789.kvs", GenerateName(123456789))
}

func TestParseSegmentIDRoundTrip(t *testing.T) {
	id, err := ParseSegmentID(GenerateName(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), id)
}

func TestParseSegmentIDRejectsWrongExtension(t *testing.T) {
	_, err := ParseSegmentID("000000001.seg")
	assert.Error(t, err)
}

func TestParseSegmentIDRejectsNonNumericStem(t *testing.T) {
	_, err := ParseSegmentID("active.kvs")
	assert.Error(t, err)
}

func TestListSegmentIDsSortsAscendingAndIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint32{3, 1, 2} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, GenerateName(id)), nil, 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "next_file_id"), []byte("4"), 0644))

	ids, err := ListSegmentIDs(dir)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, ids)
}

func TestListSegmentIDsEmptyDirectory(t *testing.T) {
	ids, err := ListSegmentIDs(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetLastSegmentInfoNoSegments(t *testing.T) {
	id, info, err := GetLastSegmentInfo(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Nil(t, info)
}

func TestGetLastSegmentInfoReturnsHighestID(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint32{1, 2, 5} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, GenerateName(id)), []byte("x"), 0644))
	}

	id, info, err := GetLastSegmentInfo(dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), id)
	require.NotNil(t, info)
	assert.Equal(t, int64(1), info.Size())
}
