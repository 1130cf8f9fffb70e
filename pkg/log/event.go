package log

import "time"

// Event is one entry of a provisioning trace. Fields are CBOR-encoded
// under small integer keys.
type Event struct {
	// Timestamp is the capture time.
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the provisioning run (UUID) or bridge connection.
	RunID string `cbor:"2,keyasint"`

	// Direction indicates frame flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer is the stack level that produced the event.
	Layer Layer `cbor:"4,keyasint"`

	// Category says which payload the event carries.
	Category Category `cbor:"5,keyasint"`

	// Endpoint names the device link (bridge address or "sim").
	Endpoint string `cbor:"6,keyasint,omitempty"`

	// DeviceAddress is the bus address of the secure element.
	DeviceAddress uint8 `cbor:"7,keyasint,omitempty"`

	// Exactly one payload is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Bus layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Device layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Run state
	Slot        *SlotEvent        `cbor:"13,keyasint,omitempty"` // Key slot outcome
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates a frame received from the device.
	DirectionIn Direction = 0
	// DirectionOut indicates a frame sent to the device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerBus is the raw frame layer (bridge or simulator link).
	LayerBus Layer = 0
	// LayerDevice is the decoded device command layer.
	LayerDevice Layer = 1
	// LayerService is the provisioning run layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBus:
		return "BUS"
	case LayerDevice:
		return "DEVICE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category groups events by payload kind.
type Category uint8

const (
	// CategoryMessage indicates a device frame or command.
	CategoryMessage Category = 0
	// CategoryProvisioning indicates a key slot provisioning outcome.
	CategoryProvisioning Category = 1
	// CategoryState indicates a run state change.
	CategoryState Category = 2
	// CategoryError marks a failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryProvisioning:
		return "PROVISIONING"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the bus layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data holds at most MaxFrameDataSize bytes of the frame.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated is set when Data is shorter than Size.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures one device command exchange.
type CommandEvent struct {
	// Operation names the driver call, e.g. PUT_COMMAND_AC_TABLE.
	Operation string `cbor:"1,keyasint"`

	// Header is the command header byte.
	Header uint8 `cbor:"2,keyasint"`

	// Tags are the command tag bytes, if any.
	Tags []byte `cbor:"3,keyasint,omitempty"`

	// PayloadSize is the command payload length in bytes.
	PayloadSize int `cbor:"4,keyasint,omitempty"`

	// Status is the device response status (responses only).
	Status *uint16 `cbor:"5,keyasint,omitempty"`

	// Duration is the round-trip time (responses only).
	Duration *time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures provisioning run state transitions.
type StateChangeEvent struct {
	// OldState is empty for the first transition of a run.
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the state entered.
	NewState string `cbor:"2,keyasint"`

	// Reason names the step that caused the transition, if any.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// SlotEvent captures the outcome of provisioning one key slot.
type SlotEvent struct {
	// Slot is the key slot index.
	Slot uint8 `cbor:"1,keyasint"`

	// Outcome is APPLIED, ALREADY_CONFIGURED or FAILED.
	Outcome string `cbor:"2,keyasint"`

	// Status is the device status for failed slots.
	Status uint16 `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData describes a failure.
type ErrorEventData struct {
	// Layer reporting the failure.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Code is the device status code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context is the run state or operation that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}
