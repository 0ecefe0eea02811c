// Package transport owns the USB connection to a PowerUSB strip.
//
// A Bus enumerates devices and opens them; a Device is one opened device
// whose control interface can be claimed and used for bulk transfers. The
// gousb-backed USBBus talks to real hardware; package simulator provides an
// in-memory Bus for tests and demos.
//
// Channel is the single owner of an open device. It frames commands into
// 64-byte buffers, performs send and query transactions with a per-transfer
// timeout, and releases the device exactly once. Calls on one Channel are
// serialized internally, so a shutdown path can never interleave with an
// in-flight transfer.
package transport
