package policy

import "errors"

// Policy codec errors.
var (
	// ErrMalformedTable is returned when a table buffer ends before the
	// declared number of records has been read.
	ErrMalformedTable = errors.New("policy: malformed table")

	// ErrTableMismatch is returned when the access-condition and encryption
	// tables disagree on length or on the opcode at a position.
	ErrTableMismatch = errors.New("policy: table mismatch")

	// ErrUnknownCode is returned when a byte does not map to a known
	// access condition or encryption value.
	ErrUnknownCode = errors.New("policy: unknown code")

	// ErrInvalidOpcode is returned for a simple opcode equal to the
	// extended-command prefix.
	ErrInvalidOpcode = errors.New("policy: invalid opcode")

	// ErrDuplicateOpcode is returned when a table lists the same opcode twice.
	ErrDuplicateOpcode = errors.New("policy: duplicate opcode")
)
