// Package sim simulates the provisioning surface of an STSAFE-A120: the
// command access-condition and encryption tables with their change
// rights, and the symmetric key slot provisioning control fields.
//
// A *Device is a stse.Connector: each Initialize opens a session on the
// shared device state, so one simulator can back an in-process
// stse.Handler and several bridge clients at the same time. The Device is
// also a stse.Bus for callers that drive it directly.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Simulator errors.
var (
	// ErrNoDevice is returned by Initialize for a wrong device address.
	ErrNoDevice = errors.New("sim: no device at address")

	// ErrNotInitialized is returned by Transfer before Initialize.
	ErrNotInitialized = errors.New("sim: device not initialized")

	// ErrClosed is returned by Transfer after Close.
	ErrClosed = errors.New("sim: device closed")
)

// Config configures a simulated device.
type Config struct {
	// Address is the bus address the device answers on. Defaults to
	// stse.DefaultDeviceAddress.
	Address uint8

	// Opcodes is the supported command set in table order. Defaults to
	// the command set of the built-in STSAFE-A120 profile.
	Opcodes []policy.Opcode

	// InitialAccess is the factory access condition of every command. Nil
	// defaults to FREE.
	InitialAccess *policy.AccessCondition

	// InitialEncryption is the factory encryption of every command.
	InitialEncryption policy.Encryption

	// ChangeRights are the table change rights. A zero right locks the
	// table. Nil defaults to 1 for both tables.
	ChangeRights *policy.ChangeRights

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger
}

type slotState struct {
	fields  stse.ProvisioningControlFields
	written bool
	locked  bool
}

// Device is a simulated secure element. It is safe for concurrent use.
type Device struct {
	mu          sync.Mutex
	address     uint8
	opcodes     []policy.Opcode
	access      []policy.AccessCondition
	encryption  []policy.Encryption
	cr          policy.ChangeRights
	slots       [stse.SymmetricKeySlotCount]slotState
	forced      map[uint8]stse.Status
	initialized bool
	closed      bool
	transfers   int
	logger      *slog.Logger
}

// New creates a simulated device.
func New(cfg Config) (*Device, error) {
	if cfg.Address == 0 {
		cfg.Address = stse.DefaultDeviceAddress
	}
	opcodes := cfg.Opcodes
	if opcodes == nil {
		p, err := profile.Builtin(profile.DefaultName)
		if err != nil {
			return nil, fmt.Errorf("sim: default command set: %w", err)
		}
		opcodes = p.Opcodes()
	}
	if len(opcodes) > 0xFF {
		return nil, fmt.Errorf("sim: %d commands do not fit a one-byte count", len(opcodes))
	}
	access := policy.AccessFree
	if cfg.InitialAccess != nil {
		access = *cfg.InitialAccess
	}
	cr := policy.ChangeRights{AccessCondition: 1, Encryption: 1}
	if cfg.ChangeRights != nil {
		cr = *cfg.ChangeRights
	}

	d := &Device{
		address:    cfg.Address,
		opcodes:    append([]policy.Opcode(nil), opcodes...),
		access:     make([]policy.AccessCondition, len(opcodes)),
		encryption: make([]policy.Encryption, len(opcodes)),
		cr:         cr,
		forced:     make(map[uint8]stse.Status),
		logger:     cfg.Logger,
	}
	for i := range opcodes {
		d.access[i] = access
		d.encryption[i] = cfg.InitialEncryption
	}
	return d, nil
}

// Initialize implements stse.Connector.
func (d *Device) Initialize(_ context.Context, cfg stse.HandlerConfig) (stse.Bus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.DeviceAddress != d.address {
		return nil, fmt.Errorf("%w 0x%02X", ErrNoDevice, cfg.DeviceAddress)
	}
	d.initialized = true
	d.closed = false
	d.debugLog("initialized", "address", fmt.Sprintf("0x%02X", cfg.DeviceAddress), "personalization", cfg.Personalization.String())
	return &Session{dev: d}, nil
}

// Close implements stse.Bus. The device keeps its state and can be
// initialized again.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Transfer implements stse.Bus.
func (d *Device) Transfer(ctx context.Context, frame []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return nil, ErrClosed
	case !d.initialized:
		return nil, ErrNotInitialized
	}
	return d.transfer(frame), nil
}

// transfer executes frame. d.mu is held.
func (d *Device) transfer(frame []byte) []byte {
	d.transfers++
	rsp := d.dispatch(frame)
	d.debugLog("transfer", "frame", fmt.Sprintf("% X", frame), "status", stse.Status(rsp[0]).String())
	return rsp
}

// Session is the bus returned by Initialize. Closing a session leaves the
// device and its other sessions untouched.
type Session struct {
	dev    *Device
	mu     sync.Mutex
	closed bool
}

// Transfer implements stse.Bus.
func (s *Session) Transfer(ctx context.Context, frame []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.transfer(frame), nil
}

// Close implements stse.Bus.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ForceSlotStatus makes every write to slot answer with status. Device
// responses carry a one-byte status, so only the low byte is sent. Pass
// stse.StatusOK to clear.
func (d *Device) ForceSlotStatus(slot uint8, status stse.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if status == stse.StatusOK {
		delete(d.forced, slot)
		return
	}
	d.forced[slot] = status
}

// SetChangeRights replaces the table change rights.
func (d *Device) SetChangeRights(cr policy.ChangeRights) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cr = cr
}

// Records returns the current command policy.
func (d *Device) Records() []policy.Record {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := make([]policy.Record, len(d.opcodes))
	for i, op := range d.opcodes {
		sub, ext := op.ExtendedHeader()
		records[i] = policy.Record{
			Header:            op.Header(),
			ExtendedHeader:    sub,
			HasExtendedHeader: ext,
			AccessCondition:   d.access[i],
			Encryption:        d.encryption[i],
		}
	}
	return records
}

// SlotFields returns the fields last written to slot and whether the slot
// has been written.
func (d *Device) SlotFields(slot uint8) (stse.ProvisioningControlFields, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(slot) >= len(d.slots) {
		return stse.ProvisioningControlFields{}, false
	}
	return d.slots[slot].fields, d.slots[slot].written
}

// Transfers returns the number of frames processed.
func (d *Device) Transfers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transfers
}

func (d *Device) debugLog(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug("sim: "+msg, args...)
	}
}

var (
	_ stse.Connector = (*Device)(nil)
	_ stse.Bus       = (*Device)(nil)
	_ stse.Bus       = (*Session)(nil)
)
