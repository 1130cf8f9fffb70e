package policy

import (
	"errors"
	"testing"
)

func TestAccessConditionBijection(t *testing.T) {
	tests := []struct {
		ac   AccessCondition
		code byte
		name string
	}{
		{AccessNever, 0x00, "NEVER"},
		{AccessFree, 0x01, "FREE"},
		{AccessAdmin, 0x02, "ADMIN"},
		{AccessHost, 0x03, "HOST"},
		{AccessAdminOrPassword, 0x04, "ADMIN_OR_PASSWORD"},
		{AccessAdminOrHost, 0x05, "ADMIN_OR_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeAccessCondition(tt.ac); got != tt.code {
				t.Errorf("EncodeAccessCondition(%s) = 0x%02X, want 0x%02X", tt.ac, got, tt.code)
			}
			got, err := DecodeAccessCondition(tt.code)
			if err != nil {
				t.Fatalf("DecodeAccessCondition(0x%02X) error = %v", tt.code, err)
			}
			if got != tt.ac {
				t.Errorf("DecodeAccessCondition(0x%02X) = %s, want %s", tt.code, got, tt.ac)
			}
			if got.String() != tt.name {
				t.Errorf("String() = %q, want %q", got.String(), tt.name)
			}
		})
	}
}

func TestDecodeAccessConditionUnknown(t *testing.T) {
	for _, code := range []byte{0x06, 0x7F, 0xFF} {
		got, err := DecodeAccessCondition(code)
		if !errors.Is(err, ErrUnknownCode) {
			t.Errorf("DecodeAccessCondition(0x%02X) error = %v, want ErrUnknownCode", code, err)
		}
		if byte(got) != code {
			t.Errorf("DecodeAccessCondition(0x%02X) = 0x%02X, want value kept verbatim", code, byte(got))
		}
		if got.Known() {
			t.Errorf("0x%02X reported as known", code)
		}
	}
}

func TestEncryptionBijection(t *testing.T) {
	tests := []struct {
		cmd, rsp bool
		code     byte
		want     Encryption
	}{
		{false, false, 0x00, EncryptNone},
		{false, true, 0x01, EncryptResponse},
		{true, false, 0x02, EncryptCommand},
		{true, true, 0x03, EncryptBoth},
	}

	for _, tt := range tests {
		e := NewEncryption(tt.cmd, tt.rsp)
		if e != tt.want {
			t.Errorf("NewEncryption(%v, %v) = %s, want %s", tt.cmd, tt.rsp, e, tt.want)
		}
		if got := EncodeEncryption(e); got != tt.code {
			t.Errorf("EncodeEncryption(%s) = 0x%02X, want 0x%02X", e, got, tt.code)
		}
		back, err := DecodeEncryption(tt.code)
		if err != nil {
			t.Fatalf("DecodeEncryption(0x%02X) error = %v", tt.code, err)
		}
		if back.CommandEncrypted() != tt.cmd || back.ResponseEncrypted() != tt.rsp {
			t.Errorf("DecodeEncryption(0x%02X) flags = (%v, %v), want (%v, %v)",
				tt.code, back.CommandEncrypted(), back.ResponseEncrypted(), tt.cmd, tt.rsp)
		}
	}
}

func TestDecodeEncryptionUnknown(t *testing.T) {
	got, err := DecodeEncryption(0x04)
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("error = %v, want ErrUnknownCode", err)
	}
	if got != Encryption(0x04) {
		t.Errorf("value = %v, want 0x04 kept verbatim", got)
	}
	if got.String() != "UNKNOWN(0x04)" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestAccessConditionUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    AccessCondition
		wantErr bool
	}{
		{"free", AccessFree, false},
		{"HOST_CMAC", AccessHost, false},
		{"Admin_Or_Pwd", AccessAdminOrPassword, false},
		{"0x05", AccessAdminOrHost, false},
		{"2", AccessAdmin, false},
		{"0x09", 0, true},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got AccessCondition
			err := got.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCode) {
					t.Fatalf("error = %v, want ErrUnknownCode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalText(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("UnmarshalText(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncryptionTextRoundTrip(t *testing.T) {
	for _, e := range []Encryption{EncryptNone, EncryptResponse, EncryptCommand, EncryptBoth} {
		text, err := e.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) error = %v", e, err)
		}
		var back Encryption
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if back != e {
			t.Errorf("round trip %s -> %q -> %s", e, text, back)
		}
	}

	var e Encryption
	if err := e.UnmarshalText([]byte("rsp")); err != nil || e != EncryptResponse {
		t.Errorf("UnmarshalText(rsp) = %s, %v", e, err)
	}
}
