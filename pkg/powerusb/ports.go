package powerusb

import (
	"strconv"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// SetPort switches port to state. With persistent set, the power-up default
// is changed and the immediate state is left alone.
func (d *Device) SetPort(port protocol.Port, state protocol.PortState, persistent bool) error {
	cmd, err := protocol.SetPortCommand(port, state, persistent)
	if err != nil {
		return err
	}
	return d.exec(cmd)
}

// GetPort reads the immediate state of port, or its power-up default when
// persistent is set.
func (d *Device) GetPort(port protocol.Port, persistent bool) (protocol.PortState, error) {
	cmd, err := protocol.ReadPortCommand(port, persistent)
	if err != nil {
		return protocol.Off, err
	}
	v, err := d.ask(cmd)
	if err != nil {
		return protocol.Off, err
	}
	return protocol.PortStateFromBool(v.Bool), nil
}

// SetAllPorts switches every outlet at once.
func (d *Device) SetAllPorts(state protocol.PortState) error {
	cmd, err := protocol.SetAllCommand(state)
	if err != nil {
		return err
	}
	return d.exec(cmd)
}

// PortStatus is the immediate and power-up state of one outlet.
type PortStatus struct {
	Port    protocol.Port
	State   protocol.PortState
	Default protocol.PortState
}

// PortStatuses reads both states of every outlet.
func (d *Device) PortStatuses() ([]PortStatus, error) {
	out := make([]PortStatus, 0, protocol.NumPorts)
	for _, p := range protocol.Ports() {
		state, err := d.GetPort(p, false)
		if err != nil {
			return nil, err
		}
		def, err := d.GetPort(p, true)
		if err != nil {
			return nil, err
		}
		out = append(out, PortStatus{Port: p, State: state, Default: def})
	}
	return out, nil
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
