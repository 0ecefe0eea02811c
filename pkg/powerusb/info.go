package powerusb

import "github.com/pwrusb/pwrusb-go/pkg/protocol"

// FirmwareVersion reads the firmware revision.
func (d *Device) FirmwareVersion() (protocol.FirmwareVersion, error) {
	reply, err := d.askRaw(protocol.ReadFirmwareVersion)
	if err != nil {
		return protocol.FirmwareVersion{}, err
	}
	return protocol.ParseFirmwareVersion(reply)
}

// Model reads the hardware variant. Codes outside the known set are
// protocol errors.
func (d *Device) Model() (protocol.Model, error) {
	v, err := d.ask(protocol.ReadModel)
	if err != nil {
		return protocol.ModelUnknown, err
	}
	return protocol.ParseModel(v.Uint)
}

// Info summarizes the strip.
type Info struct {
	Firmware protocol.FirmwareVersion
	Model    protocol.Model
}

// Info reads firmware and model.
func (d *Device) Info() (Info, error) {
	fw, err := d.FirmwareVersion()
	if err != nil {
		return Info{}, err
	}
	m, err := d.Model()
	if err != nil {
		return Info{}, err
	}
	return Info{Firmware: fw, Model: m}, nil
}
