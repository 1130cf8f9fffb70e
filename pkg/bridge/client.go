package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// ErrClosed is returned by Transfer on a closed connection.
var ErrClosed = errors.New("bridge connection closed")

// DefaultDialTimeout bounds connection setup including the handshake.
const DefaultDialTimeout = 5 * time.Second

// DialerConfig configures a Dialer.
type DialerConfig struct {
	// Address is the bridge "host:port".
	Address string

	// DialTimeout bounds connection setup (default: 5s).
	DialTimeout time.Duration

	// MaxMessageSize limits frames in both directions (default: 64 KB).
	MaxMessageSize uint32

	// ProtocolLogger receives bus-layer frame events.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger

	// RunID tags frame events. If empty, the connection ID is used.
	RunID string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Dialer connects to a bridge server. It implements stse.Connector.
type Dialer struct {
	config DialerConfig
	log    logging.LeveledLogger
}

// NewDialer creates a Dialer.
func NewDialer(config DialerConfig) *Dialer {
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	d := &Dialer{config: config}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("bridge-client")
	}
	return d
}

// Initialize dials the bridge and performs the init handshake.
func (d *Dialer) Initialize(ctx context.Context, cfg stse.HandlerConfig) (stse.Bus, error) {
	dialer := net.Dialer{Timeout: d.config.DialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", d.config.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.config.Address, err)
	}

	c, err := d.handshake(ctx, nc, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

func (d *Dialer) handshake(ctx context.Context, nc net.Conn, cfg stse.HandlerConfig) (*Conn, error) {
	id := uuid.New().String()
	runID := d.config.RunID
	if runID == "" {
		runID = id
	}

	framer := NewFramer(nc, d.config.MaxMessageSize)
	if d.config.ProtocolLogger != nil {
		framer.SetLogger(d.config.ProtocolLogger, runID)
	}

	deadline := time.Now().Add(d.config.DialTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := nc.SetDeadline(deadline); err != nil {
		return nil, err
	}

	req, err := marshal(NewInitRequest(cfg))
	if err != nil {
		return nil, err
	}
	if err := framer.WriteFrame(req); err != nil {
		return nil, err
	}
	data, err := framer.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read init response: %w", err)
	}
	var rsp InitResponse
	if err := unmarshal(data, &rsp); err != nil {
		return nil, err
	}
	if rsp.Status != InitOK {
		return nil, &InitError{Status: rsp.Status, Message: rsp.Message}
	}
	if err := nc.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}

	if d.log != nil {
		d.log.Infof("connected to %s (%s) as %s", d.config.Address, rsp.DeviceType, id)
	}
	return &Conn{
		id:         id,
		conn:       nc,
		framer:     framer,
		deviceType: rsp.DeviceType,
		log:        d.log,
	}, nil
}

// Conn is an initialized bridge connection. It implements stse.Bus.
type Conn struct {
	id         string
	conn       net.Conn
	framer     *Framer
	deviceType string
	log        logging.LeveledLogger

	mu     sync.Mutex
	closed bool
}

// ID returns the connection ID.
func (c *Conn) ID() string {
	return c.id
}

// DeviceType returns the device type reported by the server.
func (c *Conn) DeviceType() string {
	return c.deviceType
}

// Transfer sends one command frame and waits for its response. Context
// cancellation interrupts a pending exchange and leaves the connection
// unusable.
func (c *Conn) Transfer(ctx context.Context, frame []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Cancellation unblocks the pending read; ctx.Err() is already set
	// when it returns.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.framer.WriteFrame(frame); err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	rsp, err := c.framer.ReadFrame()
	if err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	if c.log != nil {
		c.log.Tracef("%s: % X -> % X", c.id, frame, rsp)
	}
	return rsp, nil
}

func (c *Conn) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Close closes the connection. It is safe to call Close more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.log != nil {
		c.log.Debugf("closing %s", c.id)
	}
	return c.conn.Close()
}

var (
	_ stse.Connector = (*Dialer)(nil)
	_ stse.Bus       = (*Conn)(nil)
)
