// Package server implements the TCP multiplexer in front of a namespace
// registry. One goroutine per connection runs a strictly sequential read
// loop: a command's reply is fully written and flushed before the next
// opcode is read, so frames never interleave on a connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/metrics"
	"github.com/marmos91/wirecache/pkg/namespace"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/wire"
)

// Config holds the TCP server configuration.
type Config struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// MaxConnections limits the number of concurrent client connections.
	// 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout is the maximum duration to wait for active
	// connections to complete during graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server multiplexes cache commands across namespaces over TCP.
//
// Thread safety: all exported methods are safe for concurrent use. The
// shutdown path uses sync.Once so Stop may be called repeatedly.
type Server struct {
	cfg Config
	reg *namespace.Registry

	// Metrics is an optional recorder for connection and command metrics.
	// If nil, no metrics are collected.
	Metrics *metrics.ServerMetrics

	// listener accepts client connections; closed during shutdown.
	listener   net.Listener
	listenerMu sync.RWMutex

	// listenerReady is closed when the listener is accepting. Used by
	// Addr and by tests to synchronize with startup.
	listenerReady chan struct{}

	// shutdown signals that graceful shutdown has been initiated.
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// activeConns tracks running connection goroutines for graceful
	// shutdown.
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// connSemaphore limits concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}

	// activeConnections maps remote address to net.Conn for forced closure.
	activeConnections sync.Map

	// shutdownCtx is cancelled during shutdown to abort in-flight handlers.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// New creates a server for the given configuration. The returned server
// owns a fresh registry with the control namespace installed; register
// data namespaces with Add before calling ListenTCP.
func New(cfg Config) *Server {
	var connSemaphore chan struct{}
	if cfg.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, cfg.MaxConnections)
		logger.Debug("Connection limit", "max_connections", cfg.MaxConnections)
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &Server{
		cfg:            cfg,
		reg:            namespace.NewRegistry(),
		shutdown:       make(chan struct{}),
		listenerReady:  make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// Registry returns the namespace registry.
func (s *Server) Registry() *namespace.Registry {
	return s.reg
}

// Control returns the broadcast hub behind the control namespace.
// Embedders subscribe here to observe administrative signals directly.
func (s *Server) Control() *namespace.Hub {
	return s.reg.Hub()
}

// Add registers ns under the given id.
func (s *Server) Add(id uint8, ns namespace.Namespace) error {
	return s.reg.Add(id, ns)
}

// ListenControl spawns one listener goroutine per registered namespace,
// each subscribed to the control hub. The goroutines exit when ctx is
// cancelled. Call after all namespaces are registered.
func (s *Server) ListenControl(ctx context.Context) {
	for _, id := range s.reg.IDs() {
		ns, ok := s.reg.Get(id)
		if !ok {
			continue
		}
		signals := s.reg.Hub().Subscribe()
		go ns.ControlListener(ctx, signals)
		logger.Debug("Control listener started", "namespace", ns.Name(), "id", id)
	}
}

// ListenTCP binds the configured address and runs the accept loop. It
// returns after graceful shutdown, triggered by cancelling ctx or calling
// Stop.
func (s *Server) ListenTCP(ctx context.Context) error {
	listenAddr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to create listener on %s: %w", listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("Cache server listening", "address", listener.Addr().String(), "namespaces", s.reg.Len())

	// Monitor context cancellation in a separate goroutine
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", "error", ctx.Err())
		s.initiateShutdown()
	}()

	for {
		// Acquire a connection slot when limiting is enabled
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				// Expected error during shutdown (listener was closed)
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting connection", "error", err)
				continue
			}
		}

		// Disable Nagle's algorithm; commands are small and latency-bound
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", "error", err)
			}
		}

		s.activeConns.Add(1)
		current := s.connCount.Add(1)

		connAddr := tcpConn.RemoteAddr().String()
		s.activeConnections.Store(connAddr, tcpConn)

		s.Metrics.RecordConnectionAccepted()
		s.Metrics.SetActiveConnections(current)

		logger.Debug("Connection accepted", "address", connAddr, "active", current)

		go func(addr string, nc net.Conn) {
			defer func() {
				nc.Close()
				s.activeConnections.Delete(addr)
				s.activeConns.Done()
				remaining := s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				s.Metrics.RecordConnectionClosed()
				s.Metrics.SetActiveConnections(remaining)

				logger.Debug("Connection closed", "address", addr, "active", remaining)
			}()

			s.serveConn(addr, nc)
		}(connAddr, tcpConn)
	}
}

// serveConn runs the sequential command loop for one connection. Any
// error ends the connection; the protocol has no per-frame length prefix
// above the codec layer, so resynchronizing mid-stream is impossible.
func (s *Server) serveConn(addr string, nc net.Conn) {
	conn := protocol.NewConn(nc)

	for {
		b, err := conn.R.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("Read failed", "address", addr, "error", err)
				s.Metrics.RecordConnectionError("io")
			}
			return
		}

		op, err := protocol.RequestOpcode(b)
		if err != nil {
			logger.Warn("Unknown opcode, closing connection", "address", addr, "byte", fmt.Sprintf("0x%02x", b))
			s.Metrics.RecordConnectionError("protocol")
			return
		}

		if op == protocol.OpPing {
			if err := conn.Pong(); err != nil {
				logger.Debug("Pong failed", "address", addr, "error", err)
				s.Metrics.RecordConnectionError("io")
				return
			}
			continue
		}

		nsID, err := conn.ReadNamespace()
		if err != nil {
			logger.Debug("Read namespace failed", "address", addr, "error", err)
			s.Metrics.RecordConnectionError("io")
			return
		}

		ns, ok := s.reg.Get(nsID)
		if !ok {
			logger.Warn("Unknown namespace, closing connection",
				"address", addr, "namespace", nsID, "opcode", op.String())
			s.Metrics.RecordConnectionError("protocol")
			return
		}

		start := time.Now()
		if err := ns.Handle(s.shutdownCtx, op, conn); err != nil {
			logger.Warn("Command failed, closing connection",
				"address", addr,
				"namespace", ns.Name(),
				"opcode", op.String(),
				"error", err)
			s.Metrics.RecordConnectionError(errorKind(err))
			return
		}

		if err := conn.Flush(); err != nil {
			logger.Debug("Flush failed", "address", addr, "error", err)
			s.Metrics.RecordConnectionError("io")
			return
		}

		s.Metrics.RecordCommand(op.String(), ns.Name(), logger.Duration(start))
	}
}

// errorKind buckets a handler error for the error counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownOpcode),
		errors.Is(err, protocol.ErrUnknownNamespace),
		errors.Is(err, protocol.ErrUnsupportedOpcode):
		return "protocol"
	case errors.Is(err, wire.ErrInvalidUTF8),
		errors.Is(err, wire.ErrEmbeddedZero),
		errors.Is(err, wire.ErrDuplicateKey),
		errors.Is(err, wire.ErrLengthLimit),
		errors.Is(err, wire.ErrVariantTag):
		return "codec"
	default:
		return "io"
	}
}

// initiateShutdown signals the accept loop to stop and unblocks every
// connection goroutine. Safe to call multiple times.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")

		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", "error", err)
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads sets a short deadline on all active connections
// so goroutines parked in a read wake up during shutdown.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	s.activeConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", "address", key, "error", err)
			}
		}
		return true
	})
}

// gracefulShutdown waits for active connections to finish or the
// configured timeout to pass, force-closing stragglers.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("Graceful shutdown: waiting for active connections",
		"active", active, "timeout", s.cfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
		logger.Info("Graceful shutdown complete")
		return nil

	case <-time.After(timeout):
		remaining := s.connCount.Load()
		logger.Warn("Shutdown timeout exceeded, forcing closure", "active", remaining)
		s.forceCloseConnections()
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes every tracked connection.
func (s *Server) forceCloseConnections() {
	s.activeConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", "address", addr, "error", err)
		}
		return true
	})
}

// Stop initiates graceful shutdown and waits for it to complete, bounded
// by ctx when one is given.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		return s.gracefulShutdown()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("Shutdown context cancelled", "active", s.connCount.Load())
		return ctx.Err()
	}
}

// Addr returns the address the server is listening on. It blocks until
// the listener is ready, making it safe to call right after starting
// ListenTCP in another goroutine.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveConnections returns the current number of open connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}
