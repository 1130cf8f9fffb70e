package sim

import (
	"errors"
	"fmt"

	"github.com/stse-tools/stse-go/pkg/persistence"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// ErrStateMismatch is returned by Restore for a state saved from a device
// with another address or command set.
var ErrStateMismatch = errors.New("sim: saved state does not match device")

// Snapshot returns the device state for persistence.
func (d *Device) Snapshot() *persistence.DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := &persistence.DeviceState{
		Address:      d.address,
		ChangeRights: d.cr,
		Commands:     make([]persistence.CommandState, len(d.opcodes)),
	}
	for i, op := range d.opcodes {
		state.Commands[i] = persistence.CommandState{
			Opcode:          op,
			AccessCondition: d.access[i],
			Encryption:      d.encryption[i],
		}
	}
	for i, s := range d.slots {
		if s.written {
			state.Slots = append(state.Slots, persistence.SlotState{
				Slot:   uint8(i),
				Fields: s.fields,
				Locked: s.locked,
			})
		}
	}
	return state
}

// Restore replaces the device state with a saved one. The saved command
// set must equal the device command set in order.
func (d *Device) Restore(state *persistence.DeviceState) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if state.Address != d.address {
		return fmt.Errorf("%w: address 0x%02X, device answers on 0x%02X", ErrStateMismatch, state.Address, d.address)
	}
	if len(state.Commands) != len(d.opcodes) {
		return fmt.Errorf("%w: %d commands, device has %d", ErrStateMismatch, len(state.Commands), len(d.opcodes))
	}
	for i, c := range state.Commands {
		if c.Opcode != d.opcodes[i] {
			return fmt.Errorf("%w: command %d is %s, device has %s", ErrStateMismatch, i, c.Opcode, d.opcodes[i])
		}
		if !c.AccessCondition.Known() || !c.Encryption.Known() {
			return fmt.Errorf("%w: command %s has unknown policy", ErrStateMismatch, c.Opcode)
		}
	}
	for _, s := range state.Slots {
		if int(s.Slot) >= len(d.slots) {
			return fmt.Errorf("%w: slot %d out of range", ErrStateMismatch, s.Slot)
		}
	}

	for i, c := range state.Commands {
		d.access[i] = c.AccessCondition
		d.encryption[i] = c.Encryption
	}
	d.cr = state.ChangeRights
	d.slots = [stse.SymmetricKeySlotCount]slotState{}
	for _, s := range state.Slots {
		d.slots[s.Slot] = slotState{fields: s.Fields, written: true, locked: s.Locked}
	}
	d.debugLog("state restored", "commands", len(state.Commands), "slots", len(state.Slots))
	return nil
}
