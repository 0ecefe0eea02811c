// Package protocol defines the PowerUSB command set and response encoding.
//
// Every command is a single opcode byte, optionally followed by parameter
// bytes, right-padded to a fixed 64-byte frame with 0xFF. Commands that
// produce a reply carry a ResponseSpec describing how the reply bytes are
// interpreted.
//
// # Command Table
//
// The table is built once at package initialization and never modified:
//
//   - Port switching: twelve single-byte opcodes (immediate and power-up
//     default, on and off, for ports 1 to 3)
//   - Port reads: boolean, one byte
//   - Current: instantaneous (2 bytes, mA) and cumulative (4 bytes, amp-minutes)
//   - Watchdog: start, stop, heartbeat, power cycle, planned power-off, status
//
// Port commands are resolved through fixed tables indexed by (port, state),
// so an invalid combination cannot produce a command.
//
// # Response Decoding
//
// Boolean replies are true when the single reply byte is nonzero. Integer
// replies are unsigned and big-endian: the first byte received is the most
// significant.
//
// # Errors
//
// All failures are reported with the sentinel errors in errors.go. Callers
// should use errors.Is to classify them.
package protocol
