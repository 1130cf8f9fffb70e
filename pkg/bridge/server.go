package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Server errors.
var (
	ErrNoConnector    = errors.New("bridge: connector is required")
	ErrAlreadyStarted = errors.New("bridge: server already started")
	ErrServerClosed   = errors.New("bridge: server closed")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Listener is an optional pre-existing listener.
	// If nil, a new listener is created on ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g., ":7420").
	// Ignored if Listener is provided.
	ListenAddr string

	// Connector initializes the served device for each client.
	// Required.
	Connector stse.Connector

	// DeviceType is reported to clients in the init response.
	DeviceType string

	// MaxMessageSize limits frames in both directions (default: 64 KB).
	MaxMessageSize uint32

	// ProtocolLogger receives bus-layer frame events tagged with the
	// connection ID. If nil, tracing is disabled.
	ProtocolLogger log.Logger

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Server serves a device to bridge clients.
type Server struct {
	config   ServerConfig
	listener net.Listener
	log      logging.LeveledLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connsMu sync.Mutex
	conns   map[string]net.Conn

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewServer creates a server. The listener is opened immediately so that
// Addr is valid before Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Connector == nil {
		return nil, ErrNoConnector
	}

	s := &Server{
		config:   config,
		listener: config.Listener,
		conns:    make(map[string]net.Conn),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("bridge-server")
	}

	if s.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		s.listener = l
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins accepting clients.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	if s.log != nil {
		s.log.Infof("serving %s on %s", s.config.DeviceType, s.listener.Addr())
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every client connection and waits for the
// connection handlers to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("stopping bridge server")
	}
	s.cancel()
	err := s.listener.Close()

	s.connsMu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if s.log != nil {
				s.log.Warnf("accept: %v", err)
			}
			return
		}

		id := uuid.New().String()
		s.connsMu.Lock()
		if s.ctx.Err() != nil {
			s.connsMu.Unlock()
			nc.Close()
			return
		}
		s.conns[id] = nc
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConn(id, nc)
	}
}

func (s *Server) handleConn(id string, nc net.Conn) {
	defer s.wg.Done()
	defer func() {
		nc.Close()
		s.connsMu.Lock()
		delete(s.conns, id)
		s.connsMu.Unlock()
	}()

	framer := NewFramer(nc, s.config.MaxMessageSize)
	if s.config.ProtocolLogger != nil {
		framer.SetLogger(s.config.ProtocolLogger, id)
	}

	bus, ok := s.accept(id, framer)
	if !ok {
		return
	}
	defer bus.Close()

	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			if s.log != nil && !errors.Is(err, io.EOF) && s.ctx.Err() == nil {
				s.log.Debugf("%s: read: %v", id, err)
			}
			return
		}
		rsp, err := bus.Transfer(s.ctx, frame)
		if err != nil {
			if s.log != nil {
				s.log.Warnf("%s: device transfer: %v", id, err)
			}
			return
		}
		if err := framer.WriteFrame(rsp); err != nil {
			if s.log != nil {
				s.log.Debugf("%s: write: %v", id, err)
			}
			return
		}
	}
}

// accept runs the init handshake of one client.
func (s *Server) accept(id string, framer *Framer) (stse.Bus, bool) {
	data, err := framer.ReadFrame()
	if err != nil {
		return nil, false
	}

	var req InitRequest
	if err := unmarshal(data, &req); err != nil {
		s.respond(framer, InitResponse{Status: InitBadRequest, Message: err.Error()})
		return nil, false
	}

	cfg := req.HandlerConfig()
	bus, err := s.config.Connector.Initialize(s.ctx, cfg)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("%s: initialize device 0x%02X: %v", id, cfg.DeviceAddress, err)
		}
		s.respond(framer, InitResponse{Status: InitNoDevice, Message: err.Error()})
		return nil, false
	}

	if err := s.respond(framer, InitResponse{Status: InitOK, DeviceType: s.config.DeviceType}); err != nil {
		bus.Close()
		return nil, false
	}
	if s.log != nil {
		s.log.Infof("%s: device 0x%02X on bus %d initialized (%s)", id, cfg.DeviceAddress, cfg.BusID, cfg.Personalization)
	}
	return bus, true
}

func (s *Server) respond(framer *Framer, rsp InitResponse) error {
	data, err := marshal(rsp)
	if err != nil {
		return err
	}
	return framer.WriteFrame(data)
}
