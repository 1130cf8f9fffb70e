package policy

import (
	"fmt"
	"strings"
)

// ExtendedPrefix is the header byte that introduces an extended command.
const ExtendedPrefix byte = 0x1F

// Opcode identifies a command: either a simple one-byte header or the
// extended prefix followed by a sub-opcode.
//
// The zero value is the simple opcode 0x00 (Echo).
type Opcode struct {
	header   byte
	sub      byte
	extended bool
}

// Simple returns the single-byte opcode h. Simple(0x1F) yields an opcode
// that fails Validate; use Extended for the 0x1F namespace.
func Simple(h byte) Opcode {
	return Opcode{header: h}
}

// Extended returns the extended opcode 0x1F/sub.
func Extended(sub byte) Opcode {
	return Opcode{header: ExtendedPrefix, sub: sub, extended: true}
}

// Header returns the first wire byte.
func (o Opcode) Header() byte {
	return o.header
}

// ExtendedHeader returns the sub-opcode and whether o is extended.
func (o Opcode) ExtendedHeader() (byte, bool) {
	return o.sub, o.extended
}

// IsExtended reports whether o lives in the 0x1F namespace.
func (o Opcode) IsExtended() bool {
	return o.extended
}

// Validate rejects a simple opcode equal to ExtendedPrefix.
func (o Opcode) Validate() error {
	if !o.extended && o.header == ExtendedPrefix {
		return fmt.Errorf("%w: simple opcode 0x%02X is reserved for extended commands", ErrInvalidOpcode, o.header)
	}
	return nil
}

// WireLen returns the number of header bytes o occupies on the wire.
func (o Opcode) WireLen() int {
	if o.extended {
		return 2
	}
	return 1
}

// AppendWire appends the header bytes of o to b.
func (o Opcode) AppendWire(b []byte) []byte {
	b = append(b, o.header)
	if o.extended {
		b = append(b, o.sub)
	}
	return b
}

// String returns "0xHH" for simple and "0x1F/0xSS" for extended opcodes.
func (o Opcode) String() string {
	if o.extended {
		return fmt.Sprintf("0x%02X/0x%02X", o.header, o.sub)
	}
	return fmt.Sprintf("0x%02X", o.header)
}

// ParseOpcode parses the String form of an opcode. A bare "0x1F" is
// rejected.
func ParseOpcode(s string) (Opcode, error) {
	head, sub, found := strings.Cut(strings.TrimSpace(s), "/")
	h, err := parseByte(strings.TrimSpace(head))
	if err != nil {
		return Opcode{}, fmt.Errorf("%w: %q", ErrInvalidOpcode, s)
	}
	if !found {
		o := Simple(h)
		if err := o.Validate(); err != nil {
			return Opcode{}, err
		}
		return o, nil
	}
	if h != ExtendedPrefix {
		return Opcode{}, fmt.Errorf("%w: %q: extended opcodes start with 0x1F", ErrInvalidOpcode, s)
	}
	x, err := parseByte(strings.TrimSpace(sub))
	if err != nil {
		return Opcode{}, fmt.Errorf("%w: %q", ErrInvalidOpcode, s)
	}
	return Extended(x), nil
}

// MarshalText implements encoding.TextMarshaler.
func (o Opcode) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Opcode) UnmarshalText(text []byte) error {
	v, err := ParseOpcode(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
