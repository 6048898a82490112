package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/rfmesh/hes/internal/logger"
	"github.com/rfmesh/hes/internal/mqttctl"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
)

// Config holds the listener-level settings for the gateway TCP server.
type Config struct {
	Port int

	// MaxConnections bounds concurrent gateway sockets; 0 means unlimited.
	MaxConnections int

	// HandshakeTimeout bounds how long a freshly accepted socket has to
	// send its PGWID handshake before it is dropped.
	HandshakeTimeout time.Duration

	// ShutdownTimeout bounds how long graceful shutdown waits for active
	// sessions before force-closing their sockets.
	ShutdownTimeout time.Duration

	// ControllerID identifies this process in the cross-controller
	// gateway-acquisition handshake (store.SyncStore).
	ControllerID string
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Server accepts gateway TCP connections and runs one Session per
// connection, grounded on the teacher's NFSAdapter accept/shutdown
// pattern (pkg/adapter/nfs/nfs_adapter.go Serve/initiateShutdown/
// gracefulShutdown/forceCloseConnections), generalized from NFS's
// RPC framing to PMESH/DLMS and from a stateless request dispatcher to
// one long-lived cooperative task per connection.
type Server struct {
	config Config
	store  store.Store
	fs     afero.Fs
	mqtt   *mqttctl.Controller
	log    *slog.Logger

	registry *Registry

	listenerMu sync.Mutex
	listener   net.Listener

	activeConns        sync.WaitGroup
	connCount          atomic.Int32
	connSemaphore      chan struct{}
	activeConnections  sync.Map // remote addr string -> net.Conn

	shutdownOnce sync.Once
	shutdown     chan struct{}

	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	listenerReady chan struct{}
}

// New builds a Server. sub is the MQTT broker client the gateway control
// plane subscribes through; the broker wire protocol itself is out of
// scope (§1).
func New(config Config, st store.Store, fs afero.Fs, sub mqttctl.Subscriber, baseLogger *slog.Logger) *Server {
	config.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
	}

	return &Server{
		config:         config,
		store:          st,
		fs:             fs,
		mqtt:           mqttctl.NewController(sub, st),
		log:            baseLogger,
		registry:       NewRegistry(),
		connSemaphore:  sem,
		shutdown:       make(chan struct{}),
		shutdownCtx:    ctx,
		cancelRequests: cancel,
		listenerReady:  make(chan struct{}),
	}
}

// Registry exposes the gateway session registry for the control-plane
// admin surface.
func (s *Server) Registry() *Registry { return s.registry }

// Serve accepts connections until ctx is cancelled or Stop is called,
// then drains active sessions gracefully up to config.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("gateway: listen on port %d: %w", s.config.Port, err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.InfoCtx(ctx, "gateway server listening", slog.Int("port", s.config.Port))

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.WarnCtx(ctx, "gateway: accept error", slog.Any("error", err))
				continue
			}
		}

		addr := tcpConn.RemoteAddr().String()
		s.activeConnections.Store(addr, tcpConn)
		s.activeConns.Add(1)
		s.connCount.Add(1)

		go func() {
			defer func() {
				s.activeConnections.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
			}()
			s.handleConn(s.shutdownCtx, tcpConn)
		}()
	}
}

// handleConn runs the full lifecycle of one accepted socket: handshake,
// registration (with duplicate eviction), MQTT subscription, FUOTA
// resume, the session's cooperative task, and teardown.
func (s *Server) handleConn(ctx context.Context, tcpConn net.Conn) {
	conn := NewConn(tcpConn, defaultRecvTimeout)
	info, err := conn.ReadHandshake(ctx, s.config.HandshakeTimeout)
	if err != nil {
		logger.WarnCtx(ctx, "gateway: handshake failed", slog.String(logger.KeyClientIP, tcpConn.RemoteAddr().String()), slog.Any("error", err))
		_ = conn.Close()
		return
	}

	ses, err := newSession(conn, info, s.config.ControllerID, s.store, s.fs, s.log)
	if err != nil {
		logger.WarnCtx(ctx, "gateway: invalid gateway id in handshake", slog.String(logger.KeyGatewayID, info.GatewayID), slog.Any("error", err))
		_ = conn.Close()
		return
	}

	if evicted := s.registry.Register(ses); evicted != nil {
		s.teardownEvicted(ctx, evicted)
	}
	defer s.registry.Unregister(ses.GatewayID, ses)

	if err := s.store.UpsertGatewayStatus(ctx, &models.GatewayStatusInfo{
		GatewayID:      ses.GatewayID,
		Status:         "CONNECTED",
		SignalStrength: info.SignalStrength,
		ModemType:      info.ModemType,
		LastState:      info.LastState,
	}); err != nil {
		logger.WarnCtx(ctx, "gateway: upsert gateway status failed", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.Any("error", err))
	}
	if err := s.store.AppendConnectionLog(ctx, &models.GatewayConnectionLog{
		GatewayID:      ses.GatewayID,
		Event:          "CONNECTED",
		SignalStrength: info.SignalStrength,
		ModemType:      info.ModemType,
		LastState:      info.LastState,
	}); err != nil {
		logger.WarnCtx(ctx, "gateway: append connection log failed", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.Any("error", err))
	}

	if err := s.mqtt.Subscribe(ctx, ses.GatewayID, false, ses.onMQTT); err != nil {
		logger.ErrorCtx(ctx, "gateway: mqtt subscribe failed", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.Any("error", err))
	}
	defer func() {
		if err := s.mqtt.Unsubscribe(ctx, ses.GatewayID); err != nil {
			logger.WarnCtx(ctx, "gateway: mqtt unsubscribe failed", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.Any("error", err))
		}
	}()

	ses.ResumeFUOTA(ctx)

	logger.InfoCtx(ctx, "gateway connected", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.String(logger.KeyClientIP, tcpConn.RemoteAddr().String()))

	if err := ses.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.InfoCtx(ctx, "gateway session ended", slog.String(logger.KeyGatewayID, ses.GatewayID), slog.Any("error", err))
	}
}

// teardownEvicted closes a session that lost a duplicate-registration
// race and suppresses its MQTT re-subscription, per §3's duplicate-id
// rule: the incumbent is disconnected, not the new arrival.
func (s *Server) teardownEvicted(ctx context.Context, evicted *Session) {
	logger.WarnCtx(ctx, "gateway: duplicate id, evicting incumbent session", slog.String(logger.KeyGatewayID, evicted.GatewayID))
	if err := s.store.AppendConnectionLog(ctx, &models.GatewayConnectionLog{
		GatewayID: evicted.GatewayID,
		Event:     "DUPLICATE_EVICTED",
	}); err != nil {
		logger.WarnCtx(ctx, "gateway: append eviction log failed", slog.String(logger.KeyGatewayID, evicted.GatewayID), slog.Any("error", err))
	}
	if err := s.mqtt.Subscribe(ctx, evicted.GatewayID, true, nil); err != nil {
		logger.WarnCtx(ctx, "gateway: suppress mqtt for evicted session failed", slog.String(logger.KeyGatewayID, evicted.GatewayID), slog.Any("error", err))
	}
	_ = evicted.conn.Close()
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		s.listenerMu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMu.Unlock()
		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.activeConnections.Range(func(_, v any) bool {
		if conn, ok := v.(net.Conn); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		return true
	})
}

func (s *Server) gracefulShutdown() error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		s.forceCloseConnections()
		return fmt.Errorf("gateway: shutdown timeout: %d sessions force-closed", remaining)
	}
}

func (s *Server) forceCloseConnections() {
	s.activeConnections.Range(func(_, v any) bool {
		if conn, ok := v.(net.Conn); ok {
			_ = conn.Close()
		}
		return true
	})
}

// Stop initiates graceful shutdown, returning once every active session
// has drained or ctx's deadline (if any) elapses first.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()
	done := make(chan error, 1)
	go func() { done <- s.gracefulShutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
