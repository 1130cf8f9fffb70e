// Package provision writes symmetric key slot provisioning control fields
// and classifies the outcome of each write.
//
// Provisioning is idempotent from the caller's point of view: a slot whose
// fields were locked by an earlier run answers with
// ACCESS_CONDITION_NOT_SATISFIED, which is reported as AlreadyConfigured
// rather than as a failure.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Outcome classifies the result of provisioning one slot.
type Outcome uint8

const (
	// Applied means the device accepted the fields.
	Applied Outcome = iota

	// AlreadyConfigured means the slot fields were locked earlier.
	AlreadyConfigured

	// Failed means the device rejected the write or the bus failed.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "APPLIED"
	case AlreadyConfigured:
		return "ALREADY_CONFIGURED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SlotResult is the outcome of provisioning one slot.
type SlotResult struct {
	Slot    uint8
	Outcome Outcome

	// Status is the device status of a Failed write rejected by the
	// device. It is zero for transport failures.
	Status stse.Status

	// Err is set for Failed results.
	Err error
}

// Summary counts slot outcomes.
type Summary struct {
	Applied           int
	AlreadyConfigured int
	Failed            int
}

// Tally counts the outcomes in results.
func Tally(results []SlotResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case Applied:
			s.Applied++
		case AlreadyConfigured:
			s.AlreadyConfigured++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Config configures a Controller.
type Config struct {
	// SlotCount is the number of slots Run visits. Defaults to
	// stse.SymmetricKeySlotCount.
	SlotCount int

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives one SlotEvent per slot. Nil disables it.
	ProtocolLogger log.Logger

	// RunID tags trace events.
	RunID string
}

// Controller provisions key slots on one device.
type Controller struct {
	device stse.Device
	config Config
	trace  log.Logger
}

// NewController returns a Controller for device.
func NewController(device stse.Device, config Config) *Controller {
	if config.SlotCount <= 0 {
		config.SlotCount = stse.SymmetricKeySlotCount
	}
	return &Controller{
		device: device,
		config: config,
		trace:  log.OrNoop(config.ProtocolLogger),
	}
}

// ProvisionSlot writes fields to one slot. It never retries.
func (c *Controller) ProvisionSlot(ctx context.Context, slot uint8, fields stse.ProvisioningControlFields) SlotResult {
	err := c.device.PutSymmetricKeySlotProvisioningFields(ctx, slot, fields)
	result := classify(slot, err)

	c.trace.Log(log.Event{
		Timestamp: time.Now(),
		RunID:     c.config.RunID,
		Layer:     log.LayerService,
		Category:  log.CategoryProvisioning,
		Slot: &log.SlotEvent{
			Slot:    slot,
			Outcome: result.Outcome.String(),
			Status:  uint16(result.Status),
		},
	})
	if c.config.Logger != nil {
		if result.Outcome == Failed {
			c.config.Logger.Warn("slot provisioning failed", "slot", slot, "error", result.Err)
		} else {
			c.config.Logger.Debug("slot provisioned", "slot", slot, "outcome", result.Outcome.String())
		}
	}
	return result
}

// Run provisions slots 0..SlotCount-1 in ascending order with the same
// fields. A failing slot does not stop the loop; one result is returned
// per slot.
func (c *Controller) Run(ctx context.Context, fields stse.ProvisioningControlFields) []SlotResult {
	results := make([]SlotResult, 0, c.config.SlotCount)
	for i := 0; i < c.config.SlotCount; i++ {
		results = append(results, c.ProvisionSlot(ctx, uint8(i), fields))
	}
	return results
}

func classify(slot uint8, err error) SlotResult {
	if err == nil {
		return SlotResult{Slot: slot, Outcome: Applied}
	}
	if errors.Is(err, stse.ErrAccessConditionNotSatisfied) {
		return SlotResult{Slot: slot, Outcome: AlreadyConfigured}
	}
	status, _ := stse.StatusOf(err)
	return SlotResult{
		Slot:    slot,
		Outcome: Failed,
		Status:  status,
		Err:     fmt.Errorf("slot %d: %w", slot, err),
	}
}
