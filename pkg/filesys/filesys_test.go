package filesys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDirForceAllowsExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, CreateDir(dir, 0755, false))
	require.NoError(t, CreateDir(dir, 0755, true))
}

func TestCreateDirRejectsFileAtPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := CreateDir(file, 0755, true)
	assert.ErrorIs(t, err, ErrIsNotDir)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")

	ok, err := Exists(file)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	ok, err = Exists(file)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteReadDeleteFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")

	require.NoError(t, WriteFile(file, 0644, []byte("hello")))
	contents, err := ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	require.NoError(t, DeleteFile(file))
	ok, err := Exists(file)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))
	require.NoError(t, CopyFile(src, dst))

	contents, err := ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(contents))
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("b"), 0644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	a, err := ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(a))

	b, err := ReadFile(filepath.Join(dst, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
}

func TestCopyDirRejectsNonDirectorySource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	err := CopyDir(src, filepath.Join(t.TempDir(), "dst"))
	assert.ErrorIs(t, err, ErrIsNotDir)
}

func TestDeleteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, DeleteDir(dir))

	ok, err := Exists(dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "excluded"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "excluded", "target.txt"), nil, 0644))

	found, err := SearchFiles(dir, []string{filepath.Join(dir, "excluded")}, "target.txt")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(dir, "target.txt"), found[0])
}

func TestSearchFileExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.kvs"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))

	found, err := SearchFileExtensions(dir, nil, ".kvs")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(dir, "a.kvs"), found[0])
}

func TestPwdAndCd(t *testing.T) {
	original, err := Pwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = Cd(original) })

	dir := t.TempDir()
	require.NoError(t, Cd(dir))

	cur, err := Pwd()
	require.NoError(t, err)

	curResolved, err := filepath.EvalSymlinks(cur)
	require.NoError(t, err)
	dirResolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, dirResolved, curResolved)
}
