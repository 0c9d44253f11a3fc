// Package bridge implements the server side of the model-socket protocol:
// it accepts TCP connections speaking the tagged message format and forwards
// bus operations to a locally attached [link.Transport].
//
// This exposes a chip wired to this machine (or the in-process chip model)
// to remote hosts, which connect with [transport.DialModelTCP]. The local
// bus is single-owner, so operations from all connections are serialized;
// interleaved exchanges from concurrent clients will still confuse the chip,
// and the bridge makes no attempt to referee that.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tropicsquare/go-tropic01/link"
	"github.com/tropicsquare/go-tropic01/logger"
	"github.com/tropicsquare/go-tropic01/transport"
)

// connState tracks one served connection in the registry.
type connState struct {
	conn     net.Conn
	messages atomic.Uint64
}

// Server forwards model-socket messages to a local transport.
type Server struct {
	tr     link.Transport
	logger logger.Logger

	// busMu serializes bus operations across connections.
	busMu sync.Mutex

	mu       sync.Mutex
	lis      net.Listener
	conns    *xsync.MapOf[string, *connState]
	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// Option is a functional option for configuring a bridge server.
type Option interface {
	apply(*Server) error
}

type optFunc func(*Server) error

func (f optFunc) apply(s *Server) error { return f(s) }

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Server) error {
		if l == nil {
			return errors.New("bridge: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// New creates a bridge server forwarding to tr.
func New(tr link.Transport, opts ...Option) (*Server, error) {
	if tr == nil {
		return nil, errors.New("bridge: transport must not be nil")
	}

	s := &Server{
		tr:     tr,
		logger: logger.GetLogger(),
		conns:  xsync.NewMapOf[string, *connState](),
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// ListenAndServe listens on addr and serves until [Server.Shutdown].
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}

	return s.Serve(lis)
}

// Serve accepts connections on lis until [Server.Shutdown]. The listener is
// closed when Serve returns.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	s.logger.Info("bridge: serving model protocol", "address", lis.Addr().String())

	for {
		conn, err := lis.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}

			return fmt.Errorf("bridge: accept: %w", err)
		}

		state := &connState{conn: conn}
		s.conns.Store(conn.RemoteAddr().String(), state)

		s.wg.Add(1)
		go s.handleConn(state)
	}
}

// ConnCount returns the number of currently served connections.
func (s *Server) ConnCount() int {
	return s.conns.Size()
}

// Shutdown stops accepting, closes every served connection, and waits for
// their handlers to finish. It does not close the local transport.
func (s *Server) Shutdown() error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()

	var err error
	if lis != nil {
		err = lis.Close()
	}

	s.conns.Range(func(_ string, state *connState) bool {
		_ = state.conn.Close()
		return true
	})

	s.wg.Wait()

	s.logger.Info("bridge: shut down")

	return err
}

func (s *Server) handleConn(state *connState) {
	defer s.wg.Done()

	addr := state.conn.RemoteAddr().String()

	defer func() {
		s.conns.Delete(addr)
		_ = state.conn.Close()
		s.logger.Info("bridge: connection closed",
			"remote", addr,
			"messages", state.messages.Load(),
		)
	}()

	s.logger.Info("bridge: connection accepted", "remote", addr)

	header := make([]byte, transport.ModelHeaderLen)

	for {
		if _, err := io.ReadFull(state.conn, header); err != nil {
			if !errors.Is(err, io.EOF) && !s.shutdown.Load() {
				s.logger.Warn("bridge: read header", "remote", addr, "error", err)
			}

			return
		}

		tag := header[0]
		length := int(header[1]) | int(header[2])<<8
		if length > transport.MaxModelPayload {
			s.logger.Warn("bridge: oversized message", "remote", addr, "length", length)
			return
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(state.conn, payload); err != nil {
			s.logger.Warn("bridge: read payload", "remote", addr, "error", err)
			return
		}

		respTag, resp, err := s.dispatch(tag, payload)
		if err != nil {
			// The local bus failed; nothing sensible can be answered.
			s.logger.Error("bridge: bus operation failed",
				"remote", addr,
				"tag", fmt.Sprintf("0x%02X", tag),
				"error", err,
			)

			return
		}

		state.messages.Add(1)

		msg := make([]byte, 0, transport.ModelHeaderLen+len(resp))
		msg = append(msg, respTag, byte(len(resp)), byte(len(resp)>>8))
		msg = append(msg, resp...)

		if _, err := state.conn.Write(msg); err != nil {
			s.logger.Warn("bridge: write response", "remote", addr, "error", err)
			return
		}
	}
}

// dispatch maps one tagged message onto the local transport.
func (s *Server) dispatch(tag byte, payload []byte) (byte, []byte, error) {
	s.busMu.Lock()
	defer s.busMu.Unlock()

	switch tag {
	case transport.TagCSNLow:
		return tag, nil, s.tr.SelectLow()

	case transport.TagCSNHigh:
		return tag, nil, s.tr.SelectHigh()

	case transport.TagSPISend:
		rx, err := s.tr.Transfer(payload)
		return tag, rx, err

	case transport.TagWait:
		// The local chip runs in real time; there is no clock to advance.
		return tag, nil, nil

	default:
		return transport.TagInvalid, nil, nil
	}
}
