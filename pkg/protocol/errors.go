package protocol

import "errors"

// Error taxonomy shared by every layer.
var (
	// ErrDeviceNotFound indicates no bus entry matches the PowerUSB vendor/product id.
	ErrDeviceNotFound = errors.New("powerusb device not found")

	// ErrOpen indicates the USB bus could not be enumerated, or the device was
	// found but could not be opened.
	ErrOpen = errors.New("failed to open device")

	// ErrClaim indicates the device was opened but its interface could not be claimed.
	ErrClaim = errors.New("failed to claim interface")

	// ErrIOTimeout indicates a bulk transfer did not complete within its timeout.
	ErrIOTimeout = errors.New("usb transfer timed out")

	// ErrProtocol indicates a malformed or unexpected response, or misuse of the command table.
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidArgument indicates a port, state, or numeric parameter out of range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed indicates use of a channel after it was released.
	ErrClosed = errors.New("channel closed")
)
