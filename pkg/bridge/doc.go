// Package bridge carries secure element command frames over TCP.
//
// A bridge server runs next to the device (on the board that owns the I2C
// bus, or in front of a simulator) and serves any stse.Connector. A host
// dials it with a Dialer, which is itself a stse.Connector.
//
// # Wire Format
//
// Every message is a frame with a 4-byte big-endian length prefix:
//
//	[length:4][payload:length]
//
// The first frame from the client is a CBOR-encoded InitRequest carrying
// the device address, bus and personalization words. The server answers
// with an InitResponse. Afterwards each client frame is one device command
// and is answered by exactly one response frame.
package bridge
