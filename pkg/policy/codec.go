package policy

import "fmt"

// Encode serializes t as consecutive [header][ext-header?][value] records.
func (t Table[V]) Encode() []byte {
	return t.AppendEncode(make([]byte, 0, t.WireLen()))
}

// AppendEncode appends the serialized table to b.
func (t Table[V]) AppendEncode(b []byte) []byte {
	for _, e := range t.entries {
		b = e.Opcode.AppendWire(b)
		b = append(b, byte(e.Value))
	}
	return b
}

// DecodeACTable reads exactly count access-condition records from buf.
// Unknown codes are kept verbatim; see Table.Unknown.
func DecodeACTable(buf []byte, count int) (ACTable, error) {
	return decodeTable[AccessCondition](buf, count)
}

// DecodeEncryptionTable reads exactly count encryption records from buf.
// Unknown codes are kept verbatim; see Table.Unknown.
func DecodeEncryptionTable(buf []byte, count int) (EncryptionTable, error) {
	return decodeTable[Encryption](buf, count)
}

func decodeTable[V Value](buf []byte, count int) (Table[V], error) {
	if count < 0 {
		return Table[V]{}, fmt.Errorf("%w: negative record count %d", ErrMalformedTable, count)
	}
	entries := make([]Entry[V], 0, count)
	off := 0
	for i := 0; i < count; i++ {
		op, value, n, err := readRecord(buf[off:])
		if err != nil {
			return Table[V]{}, fmt.Errorf("record %d at offset %d: %w", i, off, err)
		}
		entries = append(entries, Entry[V]{Opcode: op, Value: V(value)})
		off += n
	}
	return Table[V]{entries: entries}, nil
}

// TableWireLen returns the number of bytes the first count records of buf
// occupy. It is used to split a buffer holding two tables back to back.
func TableWireLen(buf []byte, count int) (int, error) {
	off := 0
	for i := 0; i < count; i++ {
		_, _, n, err := readRecord(buf[off:])
		if err != nil {
			return 0, fmt.Errorf("record %d at offset %d: %w", i, off, err)
		}
		off += n
	}
	return off, nil
}

// readRecord decodes one record and returns its size.
func readRecord(buf []byte) (Opcode, byte, int, error) {
	if len(buf) < 2 {
		return Opcode{}, 0, 0, fmt.Errorf("%w: truncated record", ErrMalformedTable)
	}
	if buf[0] != ExtendedPrefix {
		return Simple(buf[0]), buf[1], 2, nil
	}
	if len(buf) < 3 {
		return Opcode{}, 0, 0, fmt.Errorf("%w: truncated extended record", ErrMalformedTable)
	}
	return Extended(buf[1]), buf[2], 3, nil
}
