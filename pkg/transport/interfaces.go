package transport

import (
	"fmt"
	"time"
)

// DeviceInfo identifies one device on the bus.
type DeviceInfo struct {
	Vendor  uint16
	Product uint16
	Bus     int
	Address int
}

// String returns "vvvv:pppp bus=N addr=M".
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%04x:%04x bus=%d addr=%d", d.Vendor, d.Product, d.Bus, d.Address)
}

// Matches reports whether the device has the given vendor and product id.
func (d DeviceInfo) Matches(vendor, product uint16) bool {
	return d.Vendor == vendor && d.Product == product
}

// Bus enumerates and opens USB devices.
type Bus interface {
	// Devices lists every device currently attached, in bus order.
	Devices() ([]DeviceInfo, error)

	// OpenDevice opens the device described by info.
	OpenDevice(info DeviceInfo) (Device, error)
}

// Device is an opened USB device.
type Device interface {
	// Claim claims the interface and prepares its endpoints.
	Claim(iface int) error

	// BulkWrite writes data to the OUT endpoint. A transfer that does not
	// complete within timeout returns an error wrapping protocol.ErrIOTimeout.
	BulkWrite(endpoint uint8, data []byte, timeout time.Duration) (int, error)

	// BulkRead reads up to len(buf) bytes from the IN endpoint.
	BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error)

	// Release releases the claimed interface and closes the device.
	// Calling it on a device that was never claimed is allowed.
	Release() error
}
