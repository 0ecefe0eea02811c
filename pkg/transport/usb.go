package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// USBBus is a Bus backed by libusb through gousb.
type USBBus struct {
	ctx *gousb.Context
}

// NewUSBBus initializes a libusb context.
func NewUSBBus() *USBBus {
	return &USBBus{ctx: gousb.NewContext()}
}

// Close releases the libusb context. Devices must be released first.
func (b *USBBus) Close() error {
	return b.ctx.Close()
}

// Devices lists every attached device without opening any of them.
func (b *USBBus) Devices() ([]DeviceInfo, error) {
	var infos []DeviceInfo
	_, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		infos = append(infos, descInfo(desc))
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate usb devices: %w", err)
	}
	return infos, nil
}

// OpenDevice opens the device at info's bus position.
func (b *USBBus) OpenDevice(info DeviceInfo) (Device, error) {
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == info.Bus && desc.Address == info.Address
	})
	if err != nil {
		for _, d := range devs {
			_ = d.Close()
		}
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("device %s disappeared", info)
	}
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}
	return &usbDevice{dev: devs[0]}, nil
}

func descInfo(desc *gousb.DeviceDesc) DeviceInfo {
	return DeviceInfo{
		Vendor:  uint16(desc.Vendor),
		Product: uint16(desc.Product),
		Bus:     desc.Bus,
		Address: desc.Address,
	}
}

// usbDevice is one opened gousb device.
type usbDevice struct {
	mu       sync.Mutex
	dev      *gousb.Device
	cfg      *gousb.Config
	intf     *gousb.Interface
	out      *gousb.OutEndpoint
	in       *gousb.InEndpoint
	released bool
}

// Claim detaches any kernel driver, claims iface and opens the bulk endpoints.
func (d *usbDevice) Claim(iface int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("auto-detach: %w", err)
	}
	num, err := d.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("active config: %w", err)
	}
	cfg, err := d.dev.Config(num)
	if err != nil {
		return fmt.Errorf("config %d: %w", num, err)
	}
	intf, err := cfg.Interface(iface, 0)
	if err != nil {
		_ = cfg.Close()
		return fmt.Errorf("interface %d: %w", iface, err)
	}
	out, err := intf.OutEndpoint(int(protocol.EndpointOut & 0x0F))
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		return fmt.Errorf("out endpoint: %w", err)
	}
	in, err := intf.InEndpoint(int(protocol.EndpointIn & 0x0F))
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		return fmt.Errorf("in endpoint: %w", err)
	}

	d.cfg, d.intf, d.out, d.in = cfg, intf, out, in
	return nil
}

// BulkWrite writes data to the claimed OUT endpoint.
func (d *usbDevice) BulkWrite(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()
	if out == nil || endpoint != protocol.EndpointOut {
		return 0, fmt.Errorf("bulk write: endpoint 0x%02x not open", endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := out.WriteContext(ctx, data)
	if err != nil {
		return n, transferError("bulk write", err)
	}
	return n, nil
}

// BulkRead reads from the claimed IN endpoint.
func (d *usbDevice) BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	in := d.in
	d.mu.Unlock()
	if in == nil || endpoint != protocol.EndpointIn {
		return 0, fmt.Errorf("bulk read: endpoint 0x%02x not open", endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := in.ReadContext(ctx, buf)
	if err != nil {
		return n, transferError("bulk read", err)
	}
	return n, nil
}

// Release releases the interface, the config and the device handle.
func (d *usbDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	if d.intf != nil {
		d.intf.Close()
	}
	var errs []error
	if d.cfg != nil {
		errs = append(errs, d.cfg.Close())
	}
	errs = append(errs, d.dev.Close())
	d.out, d.in = nil, nil
	return errors.Join(errs...)
}

// transferError classifies libusb timeouts as protocol.ErrIOTimeout.
func transferError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gousb.ErrorTimeout) ||
		errors.Is(err, gousb.TransferTimedOut) ||
		errors.Is(err, gousb.TransferCancelled) {
		return fmt.Errorf("%s: %w (%v)", op, protocol.ErrIOTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Compile-time interface satisfaction checks.
var (
	_ Bus    = (*USBBus)(nil)
	_ Device = (*usbDevice)(nil)
)
