// Package log provides structured protocol capture for PowerUSB sessions.
//
// This package defines the Logger interface and Event types for recording
// every exchange with the device at several layers (transport, protocol,
// host). It is separate from operational logging (slog): a capture is a
// complete machine-readable trace of what went over the wire, useful when a
// power cycle happened that nobody expected.
//
// # Basic Usage
//
//	// Console during development
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	logger, _ := log.NewFileLogger("/var/log/pwrusb/watchdog.plog")
//
//	// Both
//	logger := log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Transport: raw 64-byte frames and reply bytes (FrameEvent)
//   - Protocol: named commands with parameters and decoded replies (CommandEvent)
//   - Host: watchdog and channel state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated ErrorEventData payload.
//
// # File Format
//
// Capture files are a concatenation of CBOR-encoded events with integer keys,
// conventionally named *.plog. The pwrusb-log tool views and summarizes them.
package log
