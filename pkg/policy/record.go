package policy

import "fmt"

// Record is the merged view of one command: its opcode, access condition
// and encryption requirement. Records are produced only by decoding device
// tables. Both codes are kept as read, so a code outside the known set
// stays visible through Known.
type Record struct {
	Header            byte
	ExtendedHeader    byte
	HasExtendedHeader bool
	AccessCondition   AccessCondition
	Encryption        Encryption
}

// Opcode returns the opcode of r.
func (r Record) Opcode() Opcode {
	if r.HasExtendedHeader {
		return Extended(r.ExtendedHeader)
	}
	return Simple(r.Header)
}

// CommandEncrypted reports whether the command payload is encrypted. It is
// false for an unknown encryption code.
func (r Record) CommandEncrypted() bool {
	return r.Encryption.Known() && r.Encryption.CommandEncrypted()
}

// ResponseEncrypted reports whether the response payload is encrypted. It
// is false for an unknown encryption code.
func (r Record) ResponseEncrypted() bool {
	return r.Encryption.Known() && r.Encryption.ResponseEncrypted()
}

// ChangeRights is the change-rights policy reported by a table query. A
// zero level means the corresponding table can no longer be altered.
type ChangeRights struct {
	AccessCondition uint8
	Encryption      uint8
}

// FromWire decodes count records from both the access-condition and the
// encryption buffer and merges them by position.
//
// Decoding either buffer fails with ErrMalformedTable when it is truncated.
// If exactly one buffer is truncated, or the buffers differ in length, or
// the opcodes at a position differ, ErrTableMismatch is returned.
func FromWire(acBuf, encBuf []byte, count int) ([]Record, error) {
	ac, acErr := DecodeACTable(acBuf, count)
	enc, encErr := DecodeEncryptionTable(encBuf, count)
	switch {
	case acErr != nil && encErr != nil:
		return nil, fmt.Errorf("access condition table: %w", acErr)
	case acErr != nil:
		return nil, fmt.Errorf("%w: access condition table shorter than encryption table: %w", ErrTableMismatch, acErr)
	case encErr != nil:
		return nil, fmt.Errorf("%w: encryption table shorter than access condition table: %w", ErrTableMismatch, encErr)
	}
	if acRest, encRest := len(acBuf)-ac.WireLen(), len(encBuf)-enc.WireLen(); acRest != encRest {
		return nil, fmt.Errorf("%w: %d trailing access condition bytes, %d trailing encryption bytes",
			ErrTableMismatch, acRest, encRest)
	}
	return FromTables(ac, enc)
}

// FromTables merges two decoded tables by position.
func FromTables(ac ACTable, enc EncryptionTable) ([]Record, error) {
	if ac.Len() != enc.Len() {
		return nil, fmt.Errorf("%w: %d access condition records, %d encryption records", ErrTableMismatch, ac.Len(), enc.Len())
	}
	records := make([]Record, ac.Len())
	for i := range records {
		a, e := ac.At(i), enc.At(i)
		if a.Opcode != e.Opcode {
			return nil, fmt.Errorf("%w: position %d has opcode %s in access condition table and %s in encryption table",
				ErrTableMismatch, i, a.Opcode, e.Opcode)
		}
		sub, ext := a.Opcode.ExtendedHeader()
		records[i] = Record{
			Header:            a.Opcode.Header(),
			ExtendedHeader:    sub,
			HasExtendedHeader: ext,
			AccessCondition:   a.Value,
			Encryption:        e.Value,
		}
	}
	return records, nil
}
