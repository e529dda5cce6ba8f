// Package server implements ignitedb's TCP front end: it listens, accepts
// connections, dispatches each one onto the worker pool, and speaks the
// line-oriented wire protocol described by internal/protocol.
//
// Grounded on original_source/src/server.rs's accept-loop-plus-handler
// shape (though that original is async/tokio; this port is goroutine-based)
// and shake-karrot-lightkafka/internal/broker/broker.go's
// shutdown-channel-checked-non-blockingly-in-the-accept-loop idiom.
package server

import (
	"bufio"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/engine"
	"github.com/iamNilotpal/ignitedb/internal/pool"
	"github.com/iamNilotpal/ignitedb/internal/protocol"
	ierrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// Server accepts TCP connections on Addr and serves each with Engine,
// dispatching connection handling onto Pool (spec.md §4.9).
type Server struct {
	addr   string
	engine engine.API
	pool   pool.Pool
	log    *zap.SugaredLogger

	readTimeout  time.Duration
	writeTimeout time.Duration

	listener net.Listener
	quit     chan struct{}
}

// Config configures a Server.
type Config struct {
	Addr         string
	Engine       engine.API
	Pool         pool.Pool
	Logger       *zap.SugaredLogger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds a Server. It does not start listening; call Start for that.
func New(config Config) (*Server, error) {
	if config.Addr == "" || config.Engine == nil || config.Pool == nil || config.Logger == nil {
		return nil, ierrors.NewValidationError(
			nil, ierrors.ErrorCodeInvalidInput, "server configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Server{
		addr:         config.Addr,
		engine:       config.Engine,
		pool:         config.Pool,
		log:          config.Logger,
		readTimeout:  config.ReadTimeout,
		writeTimeout: config.WriteTimeout,
		quit:         make(chan struct{}),
	}, nil
}

// Start binds the listener and runs the accept loop until Stop is called
// or a fatal accept error occurs. It blocks the calling goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ierrors.NewEngineError(err, ierrors.ErrorCodeIO, "failed to listen").WithOperation("Start")
	}
	s.listener = ln

	s.log.Infow("ignitedb listening", "addr", s.addr)

	go func() {
		<-s.quit
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				s.log.Errorw("accept error", "error", err)
				continue
			}
		}

		s.pool.Submit(func() {
			s.handleConnection(conn)
		})
	}
}

// Stop closes the listener, causing the accept loop to return.
// In-flight connection handlers are not interrupted; Close the
// engine/pool separately once they have drained.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
}

// handleConnection serves exactly one request per connection: read, parse,
// execute against the engine, reply, close (spec.md §6.3 is a one-shot
// request/response protocol, not a persistent session).
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if s.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	r := bufio.NewReader(conn)
	req, err := protocol.ReadRequest(r)
	if err != nil {
		s.log.Debugw("request read failed", "error", err, "remote", conn.RemoteAddr())
		return
	}

	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	w := bufio.NewWriter(conn)

	switch req.Op {
	case protocol.OpSet:
		s.handleSet(w, req)
	case protocol.OpRemove:
		s.handleRemove(w, req)
	case protocol.OpGet:
		s.handleGet(w, req)
	default:
		protocol.WriteLine(w, protocol.RespErrOp)
	}
}

func (s *Server) handleSet(w *bufio.Writer, req protocol.Request) {
	if req.Key == "" {
		protocol.WriteLine(w, protocol.RespErrNoKey)
		return
	}
	if req.Val == "" {
		protocol.WriteLine(w, protocol.RespErrNoVal)
		return
	}

	if err := s.engine.Set(req.Key, req.Val); err != nil {
		s.log.Errorw("set failed", "key", req.Key, "error", err)
		protocol.WriteLine(w, protocol.RespErrInternal)
		return
	}
	protocol.WriteLine(w, protocol.RespOK)
}

func (s *Server) handleRemove(w *bufio.Writer, req protocol.Request) {
	if req.Key == "" {
		protocol.WriteLine(w, protocol.RespErrNoKey)
		return
	}

	err := s.engine.Remove(req.Key)
	switch {
	case err == nil:
		protocol.WriteLine(w, protocol.RespOK)
	case isKeyNotFound(err):
		protocol.WriteLine(w, protocol.RespKeyNotFound)
	default:
		s.log.Errorw("remove failed", "key", req.Key, "error", err)
		protocol.WriteLine(w, protocol.RespErrInternal)
	}
}

func (s *Server) handleGet(w *bufio.Writer, req protocol.Request) {
	if req.Key == "" {
		protocol.WriteGetErr(w, "ErrNoKey")
		return
	}

	val, ok, err := s.engine.Get(req.Key)
	switch {
	case err != nil:
		s.log.Errorw("get failed", "key", req.Key, "error", err)
		protocol.WriteGetErr(w, "ErrInternal")
	case !ok:
		protocol.WriteGetNil(w)
	default:
		protocol.WriteGetValue(w, val)
	}
}

func isKeyNotFound(err error) bool {
	ee, ok := ierrors.AsEngineError(err)
	return ok && ee.Code() == ierrors.ErrorCodeKeyNotFound
}
