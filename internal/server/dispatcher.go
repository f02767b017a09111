// Package server implements the request dispatcher described by C6: it
// reads framed requests off a connection, invokes the engine, and writes
// exactly one framed response per request.
package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/mrshabel/kvs/internal/kv"
	"github.com/mrshabel/kvs/internal/protocol"
)

// Store is the subset of *kv.Engine the dispatcher needs. Tests substitute
// a fake to exercise error translation without touching a filesystem.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Server accepts connections one at a time and dispatches each to
// completion before accepting the next, per §5: Serve calls handleConn
// inline, so handling stays sequential without an extra lock around the
// store.
type Server struct {
	store    Store
	logger   *zap.SugaredLogger
	mu       sync.Mutex // guards listener between Serve and Close
	listener net.Listener
}

func New(store Store, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{store: store, logger: logger}
}

// Serve accepts connections from l until it returns an error (including on
// Close), handling each one fully before accepting the next.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleConn drains one connection to completion: a decoder error
// terminates it immediately; a clean EOF between requests ends it without
// complaint.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	if err := Dispatch(s.store, conn, conn, s.logger); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Errorw("connection terminated", "remote", conn.RemoteAddr(), "error", err)
	}
}

// Dispatch reads requests from r and writes responses to w until a decode
// error or peer EOF, invoking store for every request in between. It is
// exported standalone so tests can drive it over in-memory buffers without
// a real listener.
func Dispatch(store Store, r io.Reader, w io.Writer, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	dec := protocol.NewDecoder(r)
	bw := bufio.NewWriter(w)
	enc := protocol.NewEncoder(bw)

	for {
		var req protocol.Request
		if err := dec.DecodeRequest(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		resp := dispatchOne(store, req)
		if err := enc.EncodeResponse(resp); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}

func dispatchOne(store Store, req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.KindGet:
		value, found, err := store.Get(req.Key)
		if err != nil {
			return protocol.GetErr(err.Error())
		}
		return protocol.GetOK(value, found)
	case protocol.KindSet:
		if err := store.Set(req.Key, req.Value); err != nil {
			return protocol.SetErr(err.Error())
		}
		return protocol.SetOK()
	case protocol.KindRemove:
		if err := store.Remove(req.Key); err != nil {
			return protocol.RemoveErr(err.Error())
		}
		return protocol.RemoveOK()
	default:
		return protocol.Response{Error: "unrecognized request type"}
	}
}

var _ Store = (*kv.Engine)(nil)
