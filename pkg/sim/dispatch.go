package sim

import (
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/stse"
)

func status(s stse.Status) []byte {
	return []byte{byte(s)}
}

// dispatch executes one command frame. d.mu is held.
func (d *Device) dispatch(frame []byte) []byte {
	if len(frame) < 2 {
		return status(stse.StatusInvalidCommand)
	}
	header, tag, rest := frame[0], frame[1], frame[2:]

	switch {
	case header == stse.HeaderQuery && tag == stse.TagCommandConfiguration && len(rest) == 0:
		return []byte{byte(stse.StatusOK), byte(len(d.opcodes))}

	case header == stse.HeaderQuery && tag == stse.TagCommandAC:
		return d.queryTables(rest)

	case header == stse.HeaderPutAttribute && tag == stse.TagCommandAC:
		return d.putAccess(rest)

	case header == stse.HeaderPutAttribute && tag == stse.TagCommandEncryption:
		return d.putEncryption(rest)

	case header == stse.HeaderPutAttribute && tag == stse.TagSymmetricKeySlotFields:
		return d.putSlot(rest)
	}
	return status(stse.StatusInvalidCommand)
}

func (d *Device) queryTables(payload []byte) []byte {
	if len(payload) != 1 || int(payload[0]) != len(d.opcodes) {
		return status(stse.StatusInconsistentCommandData)
	}
	rsp := []byte{byte(stse.StatusOK), d.cr.AccessCondition, d.cr.Encryption, byte(len(d.opcodes))}
	for i, op := range d.opcodes {
		rsp = op.AppendWire(rsp)
		rsp = append(rsp, byte(d.access[i]))
	}
	for i, op := range d.opcodes {
		rsp = op.AppendWire(rsp)
		rsp = append(rsp, byte(d.encryption[i]))
	}
	return rsp
}

// tablePayload strips the configuration-record tag of a put table frame.
func tablePayload(rest []byte) ([]byte, bool) {
	if len(rest) < 1 || rest[0] != stse.TagCommandConfiguration {
		return nil, false
	}
	return rest[1:], true
}

// matchesCommandSet reports whether ops lists the device commands in
// device order.
func (d *Device) matchesCommandSet(ops []policy.Opcode) bool {
	if len(ops) != len(d.opcodes) {
		return false
	}
	for i := range ops {
		if ops[i] != d.opcodes[i] {
			return false
		}
	}
	return true
}

func (d *Device) putAccess(rest []byte) []byte {
	payload, ok := tablePayload(rest)
	if !ok {
		return status(stse.StatusInvalidCommand)
	}
	if d.cr.AccessCondition == 0 {
		return status(stse.StatusAccessConditionNotSatisfied)
	}
	table, err := policy.DecodeACTable(payload, len(d.opcodes))
	if err != nil || table.WireLen() != len(payload) || !d.matchesCommandSet(table.Opcodes()) || len(table.Unknown()) > 0 {
		return status(stse.StatusInconsistentCommandData)
	}
	for i, e := range table.Entries() {
		d.access[i] = e.Value
	}
	return status(stse.StatusOK)
}

func (d *Device) putEncryption(rest []byte) []byte {
	payload, ok := tablePayload(rest)
	if !ok {
		return status(stse.StatusInvalidCommand)
	}
	if d.cr.Encryption == 0 {
		return status(stse.StatusAccessConditionNotSatisfied)
	}
	table, err := policy.DecodeEncryptionTable(payload, len(d.opcodes))
	if err != nil || table.WireLen() != len(payload) || !d.matchesCommandSet(table.Opcodes()) || len(table.Unknown()) > 0 {
		return status(stse.StatusInconsistentCommandData)
	}
	for i, e := range table.Entries() {
		d.encryption[i] = e.Value
	}
	return status(stse.StatusOK)
}

func (d *Device) putSlot(payload []byte) []byte {
	if len(payload) != 1+stse.ProvisioningFieldsLen {
		return status(stse.StatusInconsistentCommandData)
	}
	slot := payload[0]
	if int(slot) >= len(d.slots) {
		return status(stse.StatusInconsistentCommandData)
	}
	if s, ok := d.forced[slot]; ok {
		return status(s)
	}
	st := &d.slots[slot]
	if st.locked {
		return status(stse.StatusAccessConditionNotSatisfied)
	}
	fields, err := stse.DecodeProvisioningFields(payload[1:])
	if err != nil {
		return status(stse.StatusInconsistentCommandData)
	}
	st.fields = fields
	st.written = true
	st.locked = !fields.ChangeRight
	return status(stse.StatusOK)
}
