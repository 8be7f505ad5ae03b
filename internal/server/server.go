package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/loganszeto/udpkv/internal/protocol"
	"github.com/loganszeto/udpkv/internal/stats"
)

const (
	DefaultBufferSize = 128
	ShutdownCommand   = "shutdown"
	tooLargeBody      = "too-large"
)

var (
	ErrBind         = errors.New("bind failed")
	ErrNotListening = errors.New("server not listening")
	ErrAlreadyBound = errors.New("server already bound")
)

type Config struct {
	Addr string
	// BufferSize is the largest datagram accepted. Larger datagrams are
	// answered with a too-large bad request instead of being decoded.
	BufferSize int
}

type Server struct {
	cfg   Config
	disp  *Dispatcher
	stats *stats.Stats
	log   *zap.Logger

	conn net.PacketConn

	hookMu sync.Mutex
	hooks  []func()
}

func New(cfg Config, disp *Dispatcher, stats *stats.Stats, logger *zap.Logger) *Server {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:   cfg,
		disp:  disp,
		stats: stats,
		log:   logger,
	}
}

// OnShutdown registers cleanup run once the loop stops. Hooks run in
// reverse order of registration.
func (s *Server) OnShutdown(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Server) runHooks() {
	s.hookMu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.hookMu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Listen binds the datagram socket. It is not retried.
func (s *Server) Listen() error {
	if s.conn != nil {
		return ErrAlreadyBound
	}
	conn, err := net.ListenPacket("udp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, s.cfg.Addr, err)
	}
	s.conn = conn
	s.log.Info("listening", zap.String("addr", conn.LocalAddr().String()), zap.Int("buffer_size", s.cfg.BufferSize))
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve handles one datagram at a time until a shutdown datagram arrives,
// ctx is cancelled, or the socket fails.
func (s *Server) Serve(ctx context.Context) error {
	if s.conn == nil {
		return ErrNotListening
	}
	defer s.conn.Close()
	defer s.runHooks()

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	buf := make([]byte, s.cfg.BufferSize+1)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("stopped", zap.String("reason", "context cancelled"))
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		if n > s.cfg.BufferSize {
			s.log.Warn("datagram too large", zap.Stringer("from", addr), zap.Int("limit", s.cfg.BufferSize))
			s.stats.RecordError()
			s.reply(addr, protocol.BadRequest(tooLargeBody))
			continue
		}

		msg := strings.TrimSpace(string(buf[:n]))
		s.log.Debug("recv", zap.Stringer("from", addr), zap.Int("bytes", n), zap.String("msg", msg))
		if msg == ShutdownCommand {
			s.log.Info("stopped", zap.String("reason", "shutdown command"), zap.Stringer("from", addr))
			return nil
		}

		s.reply(addr, s.handle(buf[:n]))
	}
}

func (s *Server) handle(payload []byte) protocol.Response {
	req, err := protocol.Decode(payload)
	if err != nil {
		s.stats.RecordError()
		return protocol.BadRequest(req.Command)
	}
	return s.disp.Handle(req)
}

func (s *Server) reply(addr net.Addr, resp protocol.Response) {
	if _, err := s.conn.WriteTo(protocol.Encode(resp), addr); err != nil {
		s.log.Warn("send failed", zap.Stringer("to", addr), zap.Error(err))
	}
}
