package powerusb

import "github.com/pwrusb/pwrusb-go/pkg/protocol"

// Current returns the instantaneous draw in milliamps.
func (d *Device) Current() (uint32, error) {
	v, err := d.ask(protocol.ReadCurrent)
	if err != nil {
		return 0, err
	}
	return v.Uint, nil
}

// TotalCurrent returns the cumulative counter in amp-minutes.
func (d *Device) TotalCurrent() (uint32, error) {
	v, err := d.ask(protocol.ReadCurrentCumulative)
	if err != nil {
		return 0, err
	}
	return v.Uint, nil
}

// ResetTotalCurrent zeroes the cumulative counter.
func (d *Device) ResetTotalCurrent() error {
	return d.exec(protocol.ResetCurrentCounter)
}
