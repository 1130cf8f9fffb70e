package stse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/policy"
)

// Options configures a Handler.
type Options struct {
	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives device-layer trace events. Nil disables them.
	ProtocolLogger log.Logger

	// RunID tags trace events.
	RunID string

	// Endpoint names the device link in trace events.
	Endpoint string
}

// Handler drives one initialized device.
type Handler struct {
	cfg    HandlerConfig
	bus    Bus
	opts   Options
	trace  log.Logger
	mu     sync.Mutex
	closed bool
}

// Open initializes the device through connector and returns a Handler.
func Open(ctx context.Context, connector Connector, cfg HandlerConfig, opts Options) (*Handler, error) {
	bus, err := connector.Initialize(ctx, cfg)
	if err != nil {
		return nil, &TransportError{Op: "INITIALIZE", Err: err}
	}
	h := NewHandler(bus, cfg, opts)
	h.debugLog("device initialized",
		"address", fmt.Sprintf("0x%02X", cfg.DeviceAddress),
		"bus", cfg.BusID,
		"personalization", cfg.Personalization.String())
	return h, nil
}

// NewHandler returns a Handler for an already initialized bus.
func NewHandler(bus Bus, cfg HandlerConfig, opts Options) *Handler {
	return &Handler{
		cfg:   cfg,
		bus:   bus,
		opts:  opts,
		trace: log.OrNoop(opts.ProtocolLogger),
	}
}

// Config returns the configuration the device was initialized with.
func (h *Handler) Config() HandlerConfig {
	return h.cfg
}

// Close releases the bus. It is safe to call Close more than once.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.bus.Close()
}

// GetCommandCount returns the number of commands in the device tables.
func (h *Handler) GetCommandCount(ctx context.Context) (int, error) {
	rsp, err := h.exchange(ctx, OpGetCommandCount, HeaderQuery, []byte{TagCommandConfiguration}, nil)
	if err != nil {
		return 0, err
	}
	if len(rsp) < 1 {
		return 0, &TransportError{Op: OpGetCommandCount, Err: ErrShortResponse}
	}
	return int(rsp[0]), nil
}

// GetCommandACTable reads count records of both policy tables.
//
// Response payload: [ac_cr][enc_cr][count][ac records][encryption records].
func (h *Handler) GetCommandACTable(ctx context.Context, count int) (TableSnapshot, error) {
	if count < 0 || count > 0xFF {
		return TableSnapshot{}, fmt.Errorf("%s: %w: count %d", OpGetCommandACTable, policy.ErrMalformedTable, count)
	}
	rsp, err := h.exchange(ctx, OpGetCommandACTable, HeaderQuery, []byte{TagCommandAC}, []byte{byte(count)})
	if err != nil {
		return TableSnapshot{}, err
	}
	if len(rsp) < 3 {
		return TableSnapshot{}, &TransportError{Op: OpGetCommandACTable, Err: ErrShortResponse}
	}

	snap := TableSnapshot{
		Count: int(rsp[2]),
		ChangeRights: policy.ChangeRights{
			AccessCondition: rsp[0],
			Encryption:      rsp[1],
		},
	}
	if snap.Count != count {
		h.debugLog("device reported a different command count", "requested", count, "reported", snap.Count)
	}

	tables := rsp[3:]
	n, err := policy.TableWireLen(tables, snap.Count)
	if err != nil {
		return TableSnapshot{}, fmt.Errorf("%s: access condition table: %w", OpGetCommandACTable, err)
	}
	snap.ACTable = append([]byte(nil), tables[:n]...)
	snap.EncryptionTable = append([]byte(nil), tables[n:]...)
	return snap, nil
}

// PutCommandACTable writes the access-condition table.
func (h *Handler) PutCommandACTable(ctx context.Context, table policy.ACTable) error {
	_, err := h.exchange(ctx, OpPutCommandACTable, HeaderPutAttribute,
		[]byte{TagCommandAC, TagCommandConfiguration}, table.Encode())
	return err
}

// PutCommandEncryptionTable writes the encryption table.
func (h *Handler) PutCommandEncryptionTable(ctx context.Context, table policy.EncryptionTable) error {
	_, err := h.exchange(ctx, OpPutCommandEncryption, HeaderPutAttribute,
		[]byte{TagCommandEncryption, TagCommandConfiguration}, table.Encode())
	return err
}

// PutSymmetricKeySlotProvisioningFields writes the control fields of one
// key slot. A slot whose change right is spent answers with
// StatusAccessConditionNotSatisfied.
func (h *Handler) PutSymmetricKeySlotProvisioningFields(ctx context.Context, slot uint8, fields ProvisioningControlFields) error {
	if slot >= SymmetricKeySlotCount {
		return fmt.Errorf("%s: %w: %d", OpPutSlotFields, ErrInvalidSlot, slot)
	}
	encoded := fields.Encode()
	payload := append([]byte{slot}, encoded[:]...)
	_, err := h.exchange(ctx, OpPutSlotFields, HeaderPutAttribute, []byte{TagSymmetricKeySlotFields}, payload)
	return err
}

// exchange sends one command and returns the response payload after the
// status byte.
func (h *Handler) exchange(ctx context.Context, op string, header byte, tags, payload []byte) ([]byte, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, &TransportError{Op: op, Err: ErrClosed}
	}

	frame := make([]byte, 0, 1+len(tags)+len(payload))
	frame = append(frame, header)
	frame = append(frame, tags...)
	frame = append(frame, payload...)

	h.trace.Log(h.commandEvent(log.DirectionOut, op, header, tags, len(payload), nil, nil))

	start := time.Now()
	rsp, err := h.bus.Transfer(ctx, frame)
	if err != nil {
		terr := &TransportError{Op: op, Err: err}
		h.trace.Log(log.NewErrorEvent(h.opts.RunID, log.LayerDevice, op, terr, -1))
		return nil, terr
	}
	elapsed := time.Since(start)

	if len(rsp) < 1 {
		terr := &TransportError{Op: op, Err: ErrShortResponse}
		h.trace.Log(log.NewErrorEvent(h.opts.RunID, log.LayerDevice, op, terr, -1))
		return nil, terr
	}

	status := Status(rsp[0])
	code := uint16(status)
	h.trace.Log(h.commandEvent(log.DirectionIn, op, header, tags, len(rsp)-1, &code, &elapsed))
	h.debugLog("device command", "op", op, "status", status.String(), "duration", elapsed)

	if !status.IsSuccess() {
		return nil, &ProtocolError{Op: op, Status: status}
	}
	return rsp[1:], nil
}

func (h *Handler) commandEvent(dir log.Direction, op string, header byte, tags []byte, size int, status *uint16, d *time.Duration) log.Event {
	return log.Event{
		Timestamp:     time.Now(),
		RunID:         h.opts.RunID,
		Direction:     dir,
		Layer:         log.LayerDevice,
		Category:      log.CategoryMessage,
		Endpoint:      h.opts.Endpoint,
		DeviceAddress: h.cfg.DeviceAddress,
		Command: &log.CommandEvent{
			Operation:   op,
			Header:      header,
			Tags:        append([]byte(nil), tags...),
			PayloadSize: size,
			Status:      status,
			Duration:    d,
		},
	}
}

func (h *Handler) debugLog(msg string, args ...any) {
	if h.opts.Logger != nil {
		h.opts.Logger.Debug(msg, args...)
	}
}

var _ Device = (*Handler)(nil)
