// Package stse implements the STSAFE-A command set used to provision
// command access conditions, command encryption and symmetric key slot
// provisioning control fields.
//
// The package talks to the device through a Bus obtained from a
// Connector. A Bus carries one command frame and returns one response
// frame; how the frame reaches the device (I2C via a bridge, an in-process
// simulator) is the Connector's concern.
//
// Command frames are laid out as
//
//	[header] [tags...] [payload...]
//
// and response frames as
//
//	[status] [payload...]
//
// A non-OK status is returned as a *ProtocolError. Failures of the bus
// itself are returned as a *TransportError. Neither is retried.
package stse
