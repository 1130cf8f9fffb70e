// Package log provides a machine-readable trace of provisioning runs.
//
// It is separate from operational logging (slog): the trace records every
// device frame, every decoded device command, run state changes and key
// slot outcomes so that a run can be replayed and audited afterwards.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For audits: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("provision.stlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Bus: raw frame bytes (FrameEvent)
//   - Device: decoded commands with status (CommandEvent)
//   - Service: run state changes (StateChangeEvent) and slot outcomes (SlotEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with the .stlog
// extension. The stse-log tool views, filters and summarizes them.
package log
