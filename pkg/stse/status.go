package stse

import "fmt"

// Status is a device or driver return code. Device response codes fit in
// a byte; driver-level codes use the full 16 bits.
type Status uint16

const (
	// StatusOK indicates the command completed successfully.
	StatusOK Status = 0x00

	// StatusCommunicationError indicates a corrupted frame on the bus.
	StatusCommunicationError Status = 0x01

	// StatusInconsistentCommandData indicates the payload does not match
	// the command (wrong length, unknown opcode, out-of-range slot).
	StatusInconsistentCommandData Status = 0x02

	// StatusInvalidCommand indicates an unsupported header or tag.
	StatusInvalidCommand Status = 0x03

	// StatusAccessConditionNotSatisfied indicates the command is not
	// permitted, including writes to data whose change right is spent.
	StatusAccessConditionNotSatisfied Status = 0x08

	// StatusDeviceNotInitialized is returned by the driver when a command
	// is issued before initialization.
	StatusDeviceNotInitialized Status = 0x0110

	// StatusInvalidParameter is returned by the driver for bad arguments.
	StatusInvalidParameter Status = 0x0111
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCommunicationError:
		return "COMMUNICATION_ERROR"
	case StatusInconsistentCommandData:
		return "INCONSISTENT_COMMAND_DATA"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusAccessConditionNotSatisfied:
		return "ACCESS_CONDITION_NOT_SATISFIED"
	case StatusDeviceNotInitialized:
		return "DEVICE_NOT_INITIALIZED"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	default:
		return fmt.Sprintf("UNKNOWN(0x%04X)", uint16(s))
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}
