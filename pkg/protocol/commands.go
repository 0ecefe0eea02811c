package protocol

import (
	"fmt"
	"sort"
)

// USB identification and wire constants.
const (
	// VendorID is the PowerUSB (Microchip) vendor id, 0x04D8.
	VendorID uint16 = 1240

	// ProductID is the PowerUSB product id, 0x003F.
	ProductID uint16 = 63

	// EndpointOut is the bulk OUT endpoint address.
	EndpointOut uint8 = 0x01

	// EndpointIn is the bulk IN endpoint address.
	EndpointIn uint8 = 0x81

	// Interface is the claimed control interface number.
	Interface = 0

	// FrameSize is the fixed size of every frame in both directions.
	FrameSize = 64

	// PadByte fills the unused tail of an outgoing frame.
	PadByte byte = 0xFF
)

// Opcode identifies a device command.
type Opcode byte

// Opcodes understood by the device.
const (
	OpSetPort1On  Opcode = 'A'
	OpSetPort1Off Opcode = 'B'
	OpSetPort2On  Opcode = 'C'
	OpSetPort2Off Opcode = 'D'
	OpSetPort3On  Opcode = 'E'
	OpSetPort3Off Opcode = 'P'

	OpSetPort1DefaultOn  Opcode = 'N'
	OpSetPort1DefaultOff Opcode = 'F'
	OpSetPort2DefaultOn  Opcode = 'G'
	OpSetPort2DefaultOff Opcode = 'Q'
	OpSetPort3DefaultOn  Opcode = 'O'
	OpSetPort3DefaultOff Opcode = 'H'

	OpReadPort1        Opcode = 0xA1
	OpReadPort2        Opcode = 0xA2
	OpReadPort1PowerUp Opcode = 0xA3
	OpReadPort2PowerUp Opcode = 0xA4
	OpSetAllOn         Opcode = 0xA5
	OpSetAllOff        Opcode = 0xA6
	OpReadFirmware     Opcode = 0xA7
	OpReadModel        Opcode = 0xAA
	OpReadPort3        Opcode = 0xAC
	OpReadPort3PowerUp Opcode = 0xAD

	OpReadCurrent           Opcode = 0xB1
	OpReadCurrentCumulative Opcode = 0xB2
	OpResetCurrentCounter   Opcode = 0xB3

	OpStartWatchdog      Opcode = 0x90
	OpStopWatchdog       Opcode = 0x91
	OpPowerCycle         Opcode = 0x92
	OpReadWatchdogStatus Opcode = 0x93
	OpHeartbeat          Opcode = 0x94
	OpPlannedPoweroff    Opcode = 0x95
)

// ResponseKind selects how reply bytes are interpreted.
type ResponseKind uint8

const (
	// KindBool decodes a single byte, nonzero meaning true.
	KindBool ResponseKind = iota + 1

	// KindUint decodes 1 to 4 bytes as a big-endian unsigned integer.
	KindUint
)

// String returns the kind name.
func (k ResponseKind) String() string {
	switch k {
	case KindBool:
		return "BOOL"
	case KindUint:
		return "UINT"
	default:
		return "UNKNOWN"
	}
}

// ResponseSpec describes the reply of a query command.
type ResponseSpec struct {
	Kind   ResponseKind
	Length int
}

// Command is one entry of the command table.
// Response is nil for commands that produce no reply.
type Command struct {
	Name     string
	Opcode   Opcode
	Response *ResponseSpec
}

// HasResponse reports whether the command expects a reply.
func (c Command) HasResponse() bool {
	return c.Response != nil
}

// Encode returns the opcode followed by params, unpadded.
func (c Command) Encode(params ...byte) []byte {
	out := make([]byte, 0, 1+len(params))
	out = append(out, byte(c.Opcode))
	return append(out, params...)
}

// String returns the command name and opcode.
func (c Command) String() string {
	return fmt.Sprintf("%s(0x%02X)", c.Name, byte(c.Opcode))
}

func plain(name string, op Opcode) Command {
	return Command{Name: name, Opcode: op}
}

func query(name string, op Opcode, kind ResponseKind, length int) Command {
	return Command{Name: name, Opcode: op, Response: &ResponseSpec{Kind: kind, Length: length}}
}

// Command table entries.
var (
	SetPort1On  = plain("SetPort1On", OpSetPort1On)
	SetPort1Off = plain("SetPort1Off", OpSetPort1Off)
	SetPort2On  = plain("SetPort2On", OpSetPort2On)
	SetPort2Off = plain("SetPort2Off", OpSetPort2Off)
	SetPort3On  = plain("SetPort3On", OpSetPort3On)
	SetPort3Off = plain("SetPort3Off", OpSetPort3Off)

	SetPort1DefaultOn  = plain("SetPort1DefaultOn", OpSetPort1DefaultOn)
	SetPort1DefaultOff = plain("SetPort1DefaultOff", OpSetPort1DefaultOff)
	SetPort2DefaultOn  = plain("SetPort2DefaultOn", OpSetPort2DefaultOn)
	SetPort2DefaultOff = plain("SetPort2DefaultOff", OpSetPort2DefaultOff)
	SetPort3DefaultOn  = plain("SetPort3DefaultOn", OpSetPort3DefaultOn)
	SetPort3DefaultOff = plain("SetPort3DefaultOff", OpSetPort3DefaultOff)

	SetAllPortsOn  = plain("SetAllPortsOn", OpSetAllOn)
	SetAllPortsOff = plain("SetAllPortsOff", OpSetAllOff)

	ReadPort1        = query("ReadPort1", OpReadPort1, KindBool, 1)
	ReadPort2        = query("ReadPort2", OpReadPort2, KindBool, 1)
	ReadPort3        = query("ReadPort3", OpReadPort3, KindBool, 1)
	ReadPort1PowerUp = query("ReadPort1PowerUp", OpReadPort1PowerUp, KindBool, 1)
	ReadPort2PowerUp = query("ReadPort2PowerUp", OpReadPort2PowerUp, KindBool, 1)
	ReadPort3PowerUp = query("ReadPort3PowerUp", OpReadPort3PowerUp, KindBool, 1)

	ReadFirmwareVersion   = query("ReadFirmwareVersion", OpReadFirmware, KindUint, 2)
	ReadModel             = query("ReadModel", OpReadModel, KindUint, 1)
	ReadCurrent           = query("ReadCurrent", OpReadCurrent, KindUint, 2)
	ReadCurrentCumulative = query("ReadCurrentCumulative", OpReadCurrentCumulative, KindUint, 4)
	ResetCurrentCounter   = plain("ResetCurrentCounter", OpResetCurrentCounter)

	StartWatchdog      = plain("StartWatchdog", OpStartWatchdog)
	StopWatchdog       = plain("StopWatchdog", OpStopWatchdog)
	PowerCycle         = plain("PowerCycle", OpPowerCycle)
	Heartbeat          = plain("Heartbeat", OpHeartbeat)
	PlannedPoweroff    = plain("PlannedPoweroff", OpPlannedPoweroff)
	ReadWatchdogStatus = query("ReadWatchdogStatus", OpReadWatchdogStatus, KindUint, 1)
)

// byName and byOpcode are populated once in init and never written afterwards.
var (
	byName   map[string]Command
	byOpcode map[Opcode]Command
)

func init() {
	all := []Command{
		SetPort1On, SetPort1Off, SetPort2On, SetPort2Off, SetPort3On, SetPort3Off,
		SetPort1DefaultOn, SetPort1DefaultOff, SetPort2DefaultOn, SetPort2DefaultOff,
		SetPort3DefaultOn, SetPort3DefaultOff,
		SetAllPortsOn, SetAllPortsOff,
		ReadPort1, ReadPort2, ReadPort3, ReadPort1PowerUp, ReadPort2PowerUp, ReadPort3PowerUp,
		ReadFirmwareVersion, ReadModel, ReadCurrent, ReadCurrentCumulative, ResetCurrentCounter,
		StartWatchdog, StopWatchdog, PowerCycle, Heartbeat, PlannedPoweroff, ReadWatchdogStatus,
	}

	byName = make(map[string]Command, len(all))
	byOpcode = make(map[Opcode]Command, len(all))
	for _, c := range all {
		if _, dup := byOpcode[c.Opcode]; dup {
			panic(fmt.Sprintf("protocol: duplicate opcode 0x%02X", byte(c.Opcode)))
		}
		byName[c.Name] = c
		byOpcode[c.Opcode] = c
	}
}

// Lookup returns the command registered under name.
// An unknown name is a programming error and yields ErrProtocol.
func Lookup(name string) (Command, error) {
	c, ok := byName[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrProtocol, name)
	}
	return c, nil
}

// ByOpcode returns the command with the given opcode.
func ByOpcode(op Opcode) (Command, bool) {
	c, ok := byOpcode[op]
	return c, ok
}

// Names returns all command names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Frame right-pads cmd to FrameSize with PadByte.
func Frame(cmd []byte) ([]byte, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidArgument)
	}
	if len(cmd) > FrameSize {
		return nil, fmt.Errorf("%w: command length %d exceeds frame size %d", ErrInvalidArgument, len(cmd), FrameSize)
	}
	frame := make([]byte, FrameSize)
	n := copy(frame, cmd)
	for i := n; i < FrameSize; i++ {
		frame[i] = PadByte
	}
	return frame, nil
}
