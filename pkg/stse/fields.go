package stse

import "fmt"

// Flag bits of the first provisioning control field byte.
const (
	fieldChangeRight      = 0x01
	fieldDerived          = 0x10
	fieldECDHEAnonymous   = 0x20
	fieldWrappedAnonymous = 0x40
	fieldPlaintext        = 0x80
)

// ProvisioningFieldsLen is the encoded size of ProvisioningControlFields.
const ProvisioningFieldsLen = 3

// ProvisioningControlFields control how a symmetric key slot may be
// written. Writing the fields with ChangeRight cleared locks them.
type ProvisioningControlFields struct {
	// ChangeRight is bit 0 of the first field byte.
	ChangeRight      bool `yaml:"change_right"`
	Derived          bool `yaml:"derived"`
	Plaintext        bool `yaml:"plaintext"`
	WrappedAnonymous bool `yaml:"wrapped_anonymous"`
	ECDHEAnonymous   bool `yaml:"ecdhe_anonymous"`

	// WrappedAuthenticationKey is a bitmask of the host keys allowed to
	// authenticate a wrapped key write.
	WrappedAuthenticationKey uint8 `yaml:"wrapped_authentication_key"`

	// ECDHEAuthenticationKey is a bitmask of the host keys allowed to
	// authenticate an ECDHE key establishment.
	ECDHEAuthenticationKey uint8 `yaml:"ecdhe_authentication_key"`
}

// DefaultProvisioningFields enables every provisioning method for all
// authentication keys and spends the change right.
func DefaultProvisioningFields() ProvisioningControlFields {
	return ProvisioningControlFields{
		ChangeRight:              false,
		Derived:                  true,
		Plaintext:                true,
		WrappedAnonymous:         true,
		ECDHEAnonymous:           true,
		WrappedAuthenticationKey: 0xFF,
		ECDHEAuthenticationKey:   0xFF,
	}
}

// Encode returns the 3-byte wire form of f.
func (f ProvisioningControlFields) Encode() [ProvisioningFieldsLen]byte {
	var flags byte
	if f.ChangeRight {
		flags |= fieldChangeRight
	}
	if f.Derived {
		flags |= fieldDerived
	}
	if f.ECDHEAnonymous {
		flags |= fieldECDHEAnonymous
	}
	if f.WrappedAnonymous {
		flags |= fieldWrappedAnonymous
	}
	if f.Plaintext {
		flags |= fieldPlaintext
	}
	return [ProvisioningFieldsLen]byte{flags, f.WrappedAuthenticationKey, f.ECDHEAuthenticationKey}
}

// DecodeProvisioningFields parses the wire form produced by Encode.
func DecodeProvisioningFields(b []byte) (ProvisioningControlFields, error) {
	if len(b) < ProvisioningFieldsLen {
		return ProvisioningControlFields{}, fmt.Errorf("%w: %d provisioning field bytes", ErrShortResponse, len(b))
	}
	flags := b[0]
	return ProvisioningControlFields{
		ChangeRight:              flags&fieldChangeRight != 0,
		Derived:                  flags&fieldDerived != 0,
		ECDHEAnonymous:           flags&fieldECDHEAnonymous != 0,
		WrappedAnonymous:         flags&fieldWrappedAnonymous != 0,
		Plaintext:                flags&fieldPlaintext != 0,
		WrappedAuthenticationKey: b[1],
		ECDHEAuthenticationKey:   b[2],
	}, nil
}
