package stse

import (
	"errors"
	"testing"
)

func TestProvisioningFieldsRoundTrip(t *testing.T) {
	tests := []ProvisioningControlFields{
		{},
		DefaultProvisioningFields(),
		{ChangeRight: true, Plaintext: true, WrappedAuthenticationKey: 0x01},
		{Derived: true, ECDHEAnonymous: true, ECDHEAuthenticationKey: 0x80},
	}

	for _, f := range tests {
		enc := f.Encode()
		got, err := DecodeProvisioningFields(enc[:])
		if err != nil {
			t.Fatalf("DecodeProvisioningFields(% X) error = %v", enc, err)
		}
		if got != f {
			t.Errorf("round trip %+v -> % X -> %+v", f, enc, got)
		}
	}
}

func TestDefaultProvisioningFieldsEncoding(t *testing.T) {
	if got := DefaultProvisioningFields().Encode(); got != [3]byte{0xF0, 0xFF, 0xFF} {
		t.Errorf("Encode() = % X", got)
	}
}

func TestChangeRightBit(t *testing.T) {
	if got := (ProvisioningControlFields{ChangeRight: true}).Encode(); got != [3]byte{0x01, 0x00, 0x00} {
		t.Errorf("Encode() = % X, want 01 00 00", got)
	}
	f, err := DecodeProvisioningFields([]byte{0xFE, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if f.ChangeRight {
		t.Errorf("ChangeRight set from % X", []byte{0xFE, 0x00, 0x00})
	}
}

func TestDecodeProvisioningFieldsShort(t *testing.T) {
	if _, err := DecodeProvisioningFields([]byte{0x01, 0x02}); !errors.Is(err, ErrShortResponse) {
		t.Errorf("error = %v, want ErrShortResponse", err)
	}
}

func TestStatusString(t *testing.T) {
	if StatusAccessConditionNotSatisfied.String() != "ACCESS_CONDITION_NOT_SATISFIED" {
		t.Errorf("String() = %q", StatusAccessConditionNotSatisfied.String())
	}
	if Status(0x6A82).String() != "UNKNOWN(0x6A82)" {
		t.Errorf("String() = %q", Status(0x6A82).String())
	}
	if !StatusOK.IsSuccess() || StatusInvalidCommand.IsSuccess() {
		t.Error("IsSuccess mismatch")
	}
}
