package log

import "time"

// Event represents a capture event at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one open/close cycle of the device channel (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Device describes the device, e.g. "04d8:003f bus=1 addr=7".
	Device string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Protocol layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Channel/watchdog state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data read from the device.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to the device.
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
	// LayerTransport is the bulk transfer layer (raw bytes).
	LayerTransport Layer = 0
	// LayerProtocol is the command layer (named opcodes, decoded replies).
	LayerProtocol Layer = 1
	// LayerHost is the host-side control layer (driver loop, shutdown).
	LayerHost Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerHost:
		return "HOST"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or command exchange.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw bytes at the transport layer.
type FrameEvent struct {
	// Size is the number of bytes transferred.
	Size int `cbor:"1,keyasint"`

	// Opcode is the first byte of an outgoing frame (0 for replies).
	Opcode uint8 `cbor:"2,keyasint,omitempty"`

	// Data is the significant part of the frame; trailing padding is trimmed.
	Data []byte `cbor:"3,keyasint,omitempty"`
}

// CommandEvent captures a named command at the protocol layer.
type CommandEvent struct {
	// Name is the command table name, e.g. "Heartbeat".
	Name string `cbor:"1,keyasint"`

	// Opcode is the command byte.
	Opcode uint8 `cbor:"2,keyasint"`

	// Params are the bytes that followed the opcode.
	Params []byte `cbor:"3,keyasint,omitempty"`

	// Reply holds the significant reply bytes for queries.
	Reply []byte `cbor:"4,keyasint,omitempty"`

	// Value is the decoded reply rendered as text.
	Value string `cbor:"5,keyasint,omitempty"`

	// Duration is the round-trip time.
	Duration time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures channel and watchdog lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityChannel is the device channel (open, closed).
	StateEntityChannel StateEntity = 0
	// StateEntityWatchdog is the device watchdog as seen by the host.
	StateEntityWatchdog StateEntity = 1
	// StateEntityDriver is the host heartbeat loop.
	StateEntityDriver StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityChannel:
		return "CHANNEL"
	case StateEntityWatchdog:
		return "WATCHDOG"
	case StateEntityDriver:
		return "DRIVER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
