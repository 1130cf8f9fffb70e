package stse

// Command headers.
const (
	// HeaderPutAttribute writes a device attribute selected by tag.
	HeaderPutAttribute byte = 0x10

	// HeaderQuery reads a device attribute selected by tag.
	HeaderQuery byte = 0x14
)

// Attribute tags.
const (
	// TagSymmetricKeySlotFields selects the provisioning control fields of
	// a symmetric key slot.
	TagSymmetricKeySlotFields byte = 0x26

	// TagCommandAC selects the command access-condition table.
	TagCommandAC byte = 0x29

	// TagCommandEncryption selects the command encryption table.
	TagCommandEncryption byte = 0x2A

	// TagCommandConfiguration qualifies a table tag as the command
	// configuration record; queried alone it returns the command count.
	TagCommandConfiguration byte = 0x2D
)

// Device defaults for STSAFE-A120 evaluation boards.
const (
	DefaultDeviceAddress = 0x20
	DefaultBusID         = 1

	// SymmetricKeySlotCount is the number of symmetric key slots.
	SymmetricKeySlotCount = 15
)

// Operation names used in errors and trace events.
const (
	OpGetCommandCount      = "GET_COMMAND_COUNT"
	OpGetCommandACTable    = "GET_COMMAND_AC_TABLE"
	OpPutCommandACTable    = "PUT_COMMAND_AC_TABLE"
	OpPutCommandEncryption = "PUT_COMMAND_ENCRYPTION_TABLE"
	OpPutSlotFields        = "PUT_SLOT_PROVISIONING_FIELDS"
)
