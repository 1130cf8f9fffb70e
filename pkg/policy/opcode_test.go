package policy

import (
	"errors"
	"testing"
)

func TestOpcodeAccessors(t *testing.T) {
	s := Simple(0x0A)
	if s.Header() != 0x0A || s.IsExtended() || s.WireLen() != 1 {
		t.Errorf("Simple(0x0A) = %+v", s)
	}
	if _, ok := s.ExtendedHeader(); ok {
		t.Error("simple opcode reports an extended header")
	}

	x := Extended(0x0B)
	sub, ok := x.ExtendedHeader()
	if x.Header() != ExtendedPrefix || !ok || sub != 0x0B || x.WireLen() != 2 {
		t.Errorf("Extended(0x0B) = %+v", x)
	}
	if Simple(0x1F).Validate() == nil {
		t.Error("Simple(0x1F) validated")
	}
	if err := x.Validate(); err != nil {
		t.Errorf("Extended(0x0B).Validate() = %v", err)
	}
}

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		in      string
		want    Opcode
		wantErr bool
	}{
		{"0x0A", Simple(0x0A), false},
		{"0", Simple(0x00), false},
		{"0x1F/0x0B", Extended(0x0B), false},
		{"0x1f / 0x1a", Extended(0x1A), false},
		{"0x1F", Opcode{}, true},
		{"0x10/0x01", Opcode{}, true},
		{"0x100", Opcode{}, true},
		{"echo", Opcode{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOpcode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOpcode) {
					t.Fatalf("ParseOpcode(%q) error = %v, want ErrInvalidOpcode", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOpcode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOpcode(%q) = %s, want %s", tt.in, got, tt.want)
			}
			if back, _ := ParseOpcode(got.String()); back != got {
				t.Errorf("String round trip %s -> %s", got, back)
			}
		})
	}
}
