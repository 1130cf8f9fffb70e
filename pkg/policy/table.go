package policy

import "fmt"

// Value is the per-command value carried by a policy table.
type Value interface {
	AccessCondition | Encryption
	Known() bool
	String() string
}

// Entry pairs an opcode with its table value.
type Entry[V Value] struct {
	Opcode Opcode
	Value  V
}

// Table is an ordered opcode table. Table order is wire order. A Table is
// immutable: constructors copy their input and accessors return copies.
type Table[V Value] struct {
	entries []Entry[V]
}

// ACTable is the command access-condition table.
type ACTable = Table[AccessCondition]

// EncryptionTable is the command encryption table.
type EncryptionTable = Table[Encryption]

// ACEntry is one row of an ACTable.
type ACEntry = Entry[AccessCondition]

// EncryptionEntry is one row of an EncryptionTable.
type EncryptionEntry = Entry[Encryption]

// NewACTable builds a target access-condition table.
func NewACTable(entries ...ACEntry) (ACTable, error) {
	return newTable(entries)
}

// NewEncryptionTable builds a target encryption table.
func NewEncryptionTable(entries ...EncryptionEntry) (EncryptionTable, error) {
	return newTable(entries)
}

// newTable validates entries and returns them as a Table. Opcodes must be
// valid and unique and every value must be a known code.
func newTable[V Value](entries []Entry[V]) (Table[V], error) {
	seen := make(map[Opcode]struct{}, len(entries))
	for i, e := range entries {
		if err := e.Opcode.Validate(); err != nil {
			return Table[V]{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := seen[e.Opcode]; dup {
			return Table[V]{}, fmt.Errorf("%w: %s", ErrDuplicateOpcode, e.Opcode)
		}
		seen[e.Opcode] = struct{}{}
		if !e.Value.Known() {
			return Table[V]{}, fmt.Errorf("%w: %s for %s", ErrUnknownCode, e.Value, e.Opcode)
		}
	}
	return Table[V]{entries: append([]Entry[V](nil), entries...)}, nil
}

// Len returns the number of entries.
func (t Table[V]) Len() int {
	return len(t.entries)
}

// At returns entry i.
func (t Table[V]) At(i int) Entry[V] {
	return t.entries[i]
}

// Entries returns a copy of the entries in wire order.
func (t Table[V]) Entries() []Entry[V] {
	return append([]Entry[V](nil), t.entries...)
}

// Opcodes returns the opcodes in wire order.
func (t Table[V]) Opcodes() []Opcode {
	ops := make([]Opcode, len(t.entries))
	for i, e := range t.entries {
		ops[i] = e.Opcode
	}
	return ops
}

// Lookup returns the value assigned to op.
func (t Table[V]) Lookup(op Opcode) (V, bool) {
	for _, e := range t.entries {
		if e.Opcode == op {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Unknown returns the opcodes whose value is not a known code. Only
// tables decoded from a device can contain such entries.
func (t Table[V]) Unknown() []Opcode {
	var ops []Opcode
	for _, e := range t.entries {
		if !e.Value.Known() {
			ops = append(ops, e.Opcode)
		}
	}
	return ops
}

// Equal reports whether t and other list the same entries in the same order.
func (t Table[V]) Equal(other Table[V]) bool {
	if len(t.entries) != len(other.entries) {
		return false
	}
	for i := range t.entries {
		a, b := t.entries[i], other.entries[i]
		if a.Opcode != b.Opcode || a.Value != b.Value {
			return false
		}
	}
	return true
}

// WireLen returns the encoded size of t in bytes.
func (t Table[V]) WireLen() int {
	n := 0
	for _, e := range t.entries {
		n += e.Opcode.WireLen() + 1
	}
	return n
}
