package stse

import (
	"errors"
	"fmt"
)

// Driver errors.
var (
	// ErrShortResponse is returned when a response frame is shorter than
	// its fixed header.
	ErrShortResponse = errors.New("stse: short response")

	// ErrClosed is returned for calls on a closed handler.
	ErrClosed = errors.New("stse: handler closed")

	// ErrAccessConditionNotSatisfied matches a *ProtocolError carrying
	// StatusAccessConditionNotSatisfied.
	ErrAccessConditionNotSatisfied = errors.New("stse: access condition not satisfied")

	// ErrInvalidSlot is returned for a slot index outside the device range.
	ErrInvalidSlot = errors.New("stse: invalid key slot")
)

// TransportError wraps a failure of the bus collaborator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stse: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a non-OK device status.
type ProtocolError struct {
	Op     string
	Status Status
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("stse: %s: device status 0x%04X (%s)", e.Op, uint16(e.Status), e.Status)
}

// Is reports ErrAccessConditionNotSatisfied for the matching status.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrAccessConditionNotSatisfied && e.Status == StatusAccessConditionNotSatisfied
}

// StatusOf extracts the device status carried by err. It returns false
// when err is not, and does not wrap, a *ProtocolError.
func StatusOf(err error) (Status, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Status, true
	}
	return 0, false
}
