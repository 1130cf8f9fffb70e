// Package policy models the per-command security policy of an STSAFE-A
// secure element.
//
// Every command the device supports carries an access condition (who may
// invoke it) and an encryption requirement (whether the command and/or
// response payload is encrypted). The device exposes both as ordered opcode
// tables sharing one binary layout:
//
//	[header] [ext-header if header == 0x1F] [value]
//
// Single-byte commands use only the header byte. Extended commands use the
// 0x1F prefix followed by a sub-opcode.
//
// # Tables
//
// Target tables are built with NewACTable and NewEncryptionTable, which
// reject duplicate opcodes, unknown codes and a simple opcode of 0x1F.
// Tables decoded from the device keep unknown codes verbatim so that a
// decode/encode round trip reproduces the device bytes exactly.
//
// # Records
//
// FromWire merges an access-condition table and an encryption table into
// per-command Records, the unit used for reporting and for comparing the
// device state before and after provisioning (see Diff).
package policy
