package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// AccessCondition identifies who may invoke a command.
type AccessCondition uint8

const (
	// AccessNever forbids the command entirely.
	AccessNever AccessCondition = 0x00

	// AccessFree allows the command without authentication.
	AccessFree AccessCondition = 0x01

	// AccessAdmin requires an admin session.
	AccessAdmin AccessCondition = 0x02

	// AccessHost requires a host session (C-MAC over the command).
	AccessHost AccessCondition = 0x03

	// AccessAdminOrPassword requires an admin session or password verification.
	AccessAdminOrPassword AccessCondition = 0x04

	// AccessAdminOrHost requires an admin or a host session.
	AccessAdminOrHost AccessCondition = 0x05
)

// String returns the access condition name.
func (a AccessCondition) String() string {
	switch a {
	case AccessNever:
		return "NEVER"
	case AccessFree:
		return "FREE"
	case AccessAdmin:
		return "ADMIN"
	case AccessHost:
		return "HOST"
	case AccessAdminOrPassword:
		return "ADMIN_OR_PASSWORD"
	case AccessAdminOrHost:
		return "ADMIN_OR_HOST"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(a))
	}
}

// Known reports whether a is one of the defined access conditions.
func (a AccessCondition) Known() bool {
	return a <= AccessAdminOrHost
}

// MarshalText implements encoding.TextMarshaler.
func (a AccessCondition) MarshalText() ([]byte, error) {
	if !a.Known() {
		return []byte(fmt.Sprintf("0x%02X", uint8(a))), nil
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the names
// returned by String (case-insensitive), the HOST_CMAC alias and a numeric
// code.
func (a *AccessCondition) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	switch s {
	case "NEVER":
		*a = AccessNever
	case "FREE":
		*a = AccessFree
	case "ADMIN":
		*a = AccessAdmin
	case "HOST", "HOST_CMAC":
		*a = AccessHost
	case "ADMIN_OR_PASSWORD", "ADMIN_OR_PWD":
		*a = AccessAdminOrPassword
	case "ADMIN_OR_HOST":
		*a = AccessAdminOrHost
	default:
		n, err := parseByte(s)
		if err != nil {
			return fmt.Errorf("%w: access condition %q", ErrUnknownCode, string(text))
		}
		v, err := DecodeAccessCondition(n)
		if err != nil {
			return err
		}
		*a = v
	}
	return nil
}

// EncodeAccessCondition returns the wire code for a.
func EncodeAccessCondition(a AccessCondition) byte {
	return byte(a)
}

// DecodeAccessCondition maps a wire code to an AccessCondition. An
// unknown code is returned verbatim together with ErrUnknownCode.
func DecodeAccessCondition(b byte) (AccessCondition, error) {
	a := AccessCondition(b)
	if !a.Known() {
		return a, fmt.Errorf("%w: access condition 0x%02X", ErrUnknownCode, b)
	}
	return a, nil
}

// Encryption is the encryption requirement of a command, combining a
// command-payload flag and a response-payload flag.
//
// The wire code carries the response flag in bit 0 and the command flag
// in bit 1.
type Encryption uint8

const (
	// EncryptNone leaves both payloads in clear.
	EncryptNone Encryption = 0x00

	// EncryptResponse encrypts the response payload only.
	EncryptResponse Encryption = 0x01

	// EncryptCommand encrypts the command payload only.
	EncryptCommand Encryption = 0x02

	// EncryptBoth encrypts command and response payloads.
	EncryptBoth Encryption = 0x03
)

const (
	rspEncryptedBit = 0x01
	cmdEncryptedBit = 0x02
)

// NewEncryption builds the Encryption value for the given flag pair.
func NewEncryption(cmdEncrypted, rspEncrypted bool) Encryption {
	var e Encryption
	if rspEncrypted {
		e |= rspEncryptedBit
	}
	if cmdEncrypted {
		e |= cmdEncryptedBit
	}
	return e
}

// CommandEncrypted reports whether the command payload is encrypted.
func (e Encryption) CommandEncrypted() bool {
	return e&cmdEncryptedBit != 0
}

// ResponseEncrypted reports whether the response payload is encrypted.
func (e Encryption) ResponseEncrypted() bool {
	return e&rspEncryptedBit != 0
}

// String returns the encryption requirement name.
func (e Encryption) String() string {
	switch e {
	case EncryptNone:
		return "NONE"
	case EncryptResponse:
		return "RESPONSE_ONLY"
	case EncryptCommand:
		return "COMMAND_ONLY"
	case EncryptBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(e))
	}
}

// Known reports whether e is one of the four defined combinations.
func (e Encryption) Known() bool {
	return e <= EncryptBoth
}

// MarshalText implements encoding.TextMarshaler.
func (e Encryption) MarshalText() ([]byte, error) {
	if !e.Known() {
		return []byte(fmt.Sprintf("0x%02X", uint8(e))), nil
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Besides the names
// returned by String it accepts NO, RSP, CMD and a numeric code.
func (e *Encryption) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	switch s {
	case "NONE", "NO":
		*e = EncryptNone
	case "RESPONSE_ONLY", "RSP":
		*e = EncryptResponse
	case "COMMAND_ONLY", "CMD":
		*e = EncryptCommand
	case "BOTH":
		*e = EncryptBoth
	default:
		n, err := parseByte(s)
		if err != nil {
			return fmt.Errorf("%w: encryption %q", ErrUnknownCode, string(text))
		}
		v, err := DecodeEncryption(n)
		if err != nil {
			return err
		}
		*e = v
	}
	return nil
}

// EncodeEncryption returns the wire code for e.
func EncodeEncryption(e Encryption) byte {
	return byte(e)
}

// DecodeEncryption maps a wire code to an Encryption value. An unknown
// code is returned verbatim together with ErrUnknownCode.
func DecodeEncryption(b byte) (Encryption, error) {
	e := Encryption(b)
	if !e.Known() {
		return e, fmt.Errorf("%w: encryption 0x%02X", ErrUnknownCode, b)
	}
	return e, nil
}

// parseByte parses a decimal or 0x-prefixed hexadecimal byte.
func parseByte(s string) (byte, error) {
	n, err := strconv.ParseUint(strings.ToLower(s), 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(n), nil
}
