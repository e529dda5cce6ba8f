// Package client is the symmetric encoder/decoder of ignitedb's wire
// protocol: it dials a server, sends one framed request, and parses its
// one framed response, one round trip per call (spec.md §2 "Client
// library").
//
// Grounded on original_source/src/client.rs's Client (buffered
// reader/writer over one TcpStream, one method per opcode).
package client

import (
	"bufio"
	"net"
	"time"

	"github.com/iamNilotpal/ignitedb/internal/protocol"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

// Client is a connection to an ignitedb server. It is not safe for
// concurrent use by multiple goroutines — open one Client per in-flight
// request, matching the protocol's one-shot-per-connection design.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
}

// Dial connects to addr and returns a Client ready to issue one request.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.NewEngineError(err, errors.ErrorCodeIO, "failed to connect").
			WithOperation("Dial").WithDetail("addr", addr)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		timeout: timeout,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) deadline() {
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
}

// Set sends a set request and returns an error unless the server replies
// OK.
func (c *Client) Set(key, val string) error {
	c.deadline()

	if _, err := c.writer.Write([]byte{protocol.OpSet}); err != nil {
		return wrapIOErr("Set", err)
	}
	if err := writeLine(c.writer, key); err != nil {
		return wrapIOErr("Set", err)
	}
	if err := writeLine(c.writer, val); err != nil {
		return wrapIOErr("Set", err)
	}
	if err := c.writer.Flush(); err != nil {
		return wrapIOErr("Set", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return wrapIOErr("Set", err)
	}

	switch line {
	case protocol.RespOK:
		return nil
	case protocol.RespErrNoKey:
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "empty key").WithField("key")
	case protocol.RespErrNoVal:
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "empty value").WithField("val")
	default:
		return errors.NewEngineError(nil, errors.ErrorCodeInternal, "set failed").
			WithOperation("Set").WithKey(key).WithDetail("response", line)
	}
}

// Remove sends a remove request, returning KeyNotFound if the server
// reports the key was absent.
func (c *Client) Remove(key string) error {
	c.deadline()

	if _, err := c.writer.Write([]byte{protocol.OpRemove}); err != nil {
		return wrapIOErr("Remove", err)
	}
	if err := writeLine(c.writer, key); err != nil {
		return wrapIOErr("Remove", err)
	}
	if err := c.writer.Flush(); err != nil {
		return wrapIOErr("Remove", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return wrapIOErr("Remove", err)
	}

	switch line {
	case protocol.RespOK:
		return nil
	case protocol.RespKeyNotFound:
		return errors.NewKeyNotFoundEngineError("Remove", key)
	case protocol.RespErrNoKey:
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "empty key").WithField("key")
	default:
		return errors.NewEngineError(nil, errors.ErrorCodeInternal, "remove failed").
			WithOperation("Remove").WithKey(key).WithDetail("response", line)
	}
}

// Get sends a get request, returning (_, false, nil) if the server reports
// the key is absent.
func (c *Client) Get(key string) (string, bool, error) {
	c.deadline()

	if _, err := c.writer.Write([]byte{protocol.OpGet}); err != nil {
		return "", false, wrapIOErr("Get", err)
	}
	if err := writeLine(c.writer, key); err != nil {
		return "", false, wrapIOErr("Get", err)
	}
	if err := c.writer.Flush(); err != nil {
		return "", false, wrapIOErr("Get", err)
	}

	tag, err := c.reader.ReadByte()
	if err != nil {
		return "", false, wrapIOErr("Get", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", false, wrapIOErr("Get", err)
	}
	line = trimNewline(line)

	switch tag {
	case protocol.GetVal:
		return line, true, nil
	case protocol.GetNil:
		return "", false, nil
	case protocol.GetErr:
		return "", false, errors.NewEngineError(nil, errors.ErrorCodeInternal, "get failed").
			WithOperation("Get").WithKey(key).WithDetail("message", line)
	default:
		return "", false, errors.NewEngineError(nil, errors.ErrorCodeInternal, "protocol error").
			WithOperation("Get").WithKey(key)
	}
}

func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func trimNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}

func wrapIOErr(op string, err error) error {
	return errors.NewEngineError(err, errors.ErrorCodeIO, "client io error").WithOperation(op)
}
