package client

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamNilotpal/ignitedb/internal/protocol"
	ierrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// fakeServer replies to exactly one connection with a canned response,
// letting these tests exercise the client's response parsing without
// wiring up a real engine.
func fakeServer(t *testing.T, handle func(req protocol.Request, w *bufio.Writer)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		req, err := protocol.ReadRequest(r)
		if err != nil {
			return
		}
		w := bufio.NewWriter(conn)
		handle(req, w)
	}()

	return ln.Addr().String()
}

func TestDialRefusedConnection(t *testing.T) {
	_, err := Dial("127.0.0.1:1", 100*time.Millisecond)
	assert.Error(t, err)
}

func TestSetOK(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		assert.Equal(t, protocol.OpSet, req.Op)
		assert.Equal(t, "a", req.Key)
		assert.Equal(t, "1", req.Val)
		protocol.WriteLine(w, protocol.RespOK)
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("a", "1"))
}

func TestSetErrNoKey(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		protocol.WriteLine(w, protocol.RespErrNoKey)
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	err = c.Set("", "1")
	require.Error(t, err)
	ve, ok := ierrors.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "key", ve.Field())
}

func TestRemoveKeyNotFound(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		protocol.WriteLine(w, protocol.RespKeyNotFound)
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	err = c.Remove("a")
	require.Error(t, err)
	ee, ok := ierrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.ErrorCodeKeyNotFound, ee.Code())
}

func TestGetValue(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		protocol.WriteGetValue(w, "hello")
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	val, ok, err := c.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", val)
}

func TestGetNil(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		protocol.WriteGetNil(w)
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetServerError(t *testing.T) {
	addr := fakeServer(t, func(req protocol.Request, w *bufio.Writer) {
		protocol.WriteGetErr(w, "ErrInternal")
	})

	c, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Get("a")
	require.Error(t, err)
}
