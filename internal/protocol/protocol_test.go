package protocol

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestSet(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("+key\nvalue\n"))
	req, err := ReadRequest(r)
	require.NoError(t, err)

	assert.Equal(t, OpSet, req.Op)
	assert.Equal(t, "key", req.Key)
	assert.Equal(t, "value", req.Val)
}

func TestReadRequestGet(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("?key\n"))
	req, err := ReadRequest(r)
	require.NoError(t, err)

	assert.Equal(t, OpGet, req.Op)
	assert.Equal(t, "key", req.Key)
	assert.Empty(t, req.Val)
}

func TestReadRequestRemove(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("-key\n"))
	req, err := ReadRequest(r)
	require.NoError(t, err)

	assert.Equal(t, OpRemove, req.Op)
	assert.Equal(t, "key", req.Key)
}

func TestReadRequestTrimsWhitespaceCutset(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("?  key  \n"))
	req, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "key", req.Key)
}

func TestReadRequestUnknownOpcodeLeavesKeyEmpty(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("*garbage\n"))
	req, err := ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, byte('*'), req.Op)
	assert.Empty(t, req.Key)
}

func TestReadRequestEOFBeforeOpcode(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString(""))
	_, err := ReadRequest(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadRequestEOFMidFrame(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("+key\n"))
	_, err := ReadRequest(r)
	assert.Error(t, err)
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteLine(w, RespOK))
	assert.Equal(t, "OK\n", buf.String())
}

func TestWriteGetValue(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteGetValue(w, "hello"))
	assert.Equal(t, "vhello\n", buf.String())
}

func TestWriteGetNil(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteGetNil(w))
	assert.Equal(t, "n\n", buf.String())
}

func TestWriteGetErr(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteGetErr(w, "boom"))
	assert.Equal(t, "eboom\n", buf.String())
}
