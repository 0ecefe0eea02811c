package protocol

import (
	"fmt"
	"strings"
)

// Port identifies a switchable outlet.
type Port uint8

// Outlets on the strip.
const (
	Port1 Port = 1
	Port2 Port = 2
	Port3 Port = 3

	// NumPorts is the number of switchable outlets.
	NumPorts = 3
)

// Validate checks the port is within 1..3.
func (p Port) Validate() error {
	if p < Port1 || p > Port3 {
		return fmt.Errorf("%w: port %d out of range 1..%d", ErrInvalidArgument, p, NumPorts)
	}
	return nil
}

// Ports returns all outlets in order.
func Ports() []Port {
	return []Port{Port1, Port2, Port3}
}

// PortState is the switching state of an outlet.
type PortState uint8

const (
	// Off means the outlet is not powered.
	Off PortState = 0
	// On means the outlet is powered.
	On PortState = 1
)

// Validate checks the state is On or Off.
func (s PortState) Validate() error {
	if s != On && s != Off {
		return fmt.Errorf("%w: port state %d", ErrInvalidArgument, s)
	}
	return nil
}

// String returns "ON" or "OFF".
func (s PortState) String() string {
	switch s {
	case On:
		return "ON"
	case Off:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// PortStateFromBool maps a decoded boolean to a PortState.
func PortStateFromBool(b bool) PortState {
	if b {
		return On
	}
	return Off
}

// ParsePortState parses "on"/"off" (case-insensitive), also accepting 1/0.
func ParsePortState(s string) (PortState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1":
		return On, nil
	case "off", "0":
		return Off, nil
	default:
		return 0, fmt.Errorf("%w: port state %q (must be on or off)", ErrInvalidArgument, s)
	}
}

// Tables indexed by [port-1][state].
var (
	setPortTable = [NumPorts][2]Command{
		{SetPort1Off, SetPort1On},
		{SetPort2Off, SetPort2On},
		{SetPort3Off, SetPort3On},
	}
	setDefaultTable = [NumPorts][2]Command{
		{SetPort1DefaultOff, SetPort1DefaultOn},
		{SetPort2DefaultOff, SetPort2DefaultOn},
		{SetPort3DefaultOff, SetPort3DefaultOn},
	}
	readPortTable    = [NumPorts]Command{ReadPort1, ReadPort2, ReadPort3}
	readPowerUpTable = [NumPorts]Command{ReadPort1PowerUp, ReadPort2PowerUp, ReadPort3PowerUp}
)

// SetPortCommand resolves the opcode switching port to state.
// When persistent is set the power-up default is changed instead of the
// immediate state.
func SetPortCommand(port Port, state PortState, persistent bool) (Command, error) {
	if err := port.Validate(); err != nil {
		return Command{}, err
	}
	if err := state.Validate(); err != nil {
		return Command{}, err
	}
	if persistent {
		return setDefaultTable[port-1][state], nil
	}
	return setPortTable[port-1][state], nil
}

// ReadPortCommand resolves the boolean read for port's immediate state, or
// its power-up default when persistent is set.
func ReadPortCommand(port Port, persistent bool) (Command, error) {
	if err := port.Validate(); err != nil {
		return Command{}, err
	}
	if persistent {
		return readPowerUpTable[port-1], nil
	}
	return readPortTable[port-1], nil
}

// SetAllCommand resolves the opcode switching every outlet at once.
func SetAllCommand(state PortState) (Command, error) {
	if err := state.Validate(); err != nil {
		return Command{}, err
	}
	if state == On {
		return SetAllPortsOn, nil
	}
	return SetAllPortsOff, nil
}
