// Package simulator provides an in-memory PowerUSB power strip.
//
// A PowerStrip implements both transport.Bus and transport.Device, so a
// transport.Channel can be opened on it exactly as on real hardware. It
// keeps outlet, current and watchdog state, answers query opcodes with
// 64-byte reply frames, and models the device-driven watchdog automaton on
// a virtual timeline moved forward with Advance.
//
// Faults (missing device, open and claim failures, transfer timeouts, short
// replies) can be injected to exercise error paths.
package simulator
