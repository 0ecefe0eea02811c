package simulator

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
	"github.com/pwrusb/pwrusb-go/pkg/transport"
)

// Position of the simulated strip on the bus.
const (
	SimBus     = 1
	SimAddress = 7
)

// otherDevice is always present on the simulated bus so that enumeration
// has something to skip.
var otherDevice = transport.DeviceInfo{Vendor: 0x046d, Product: 0xc31c, Bus: 1, Address: 2}

// Faults selects injected failures. The zero value injects nothing.
type Faults struct {
	// Missing hides the strip from enumeration.
	Missing bool

	// EnumerateErr fails Devices.
	EnumerateErr error

	// OpenErr fails OpenDevice.
	OpenErr error

	// ClaimErr fails Claim.
	ClaimErr error

	// WriteTimeout makes every bulk write time out.
	WriteTimeout bool

	// ReadTimeout makes every bulk read time out.
	ReadTimeout bool

	// ShortReply, when positive, truncates every reply to that many bytes.
	ShortReply int

	// ReleaseErr fails Release (the strip still counts as released).
	ReleaseErr error
}

// PowerStrip is a simulated PowerUSB device.
type PowerStrip struct {
	mu sync.Mutex

	faults Faults

	firmware protocol.FirmwareVersion
	model    protocol.Model

	ports    [protocol.NumPorts]bool
	defaults [protocol.NumPorts]bool

	currentMA  uint16
	cumulative uint32

	wdStatus    protocol.WatchdogStatus
	wdResume    protocol.WatchdogStatus
	wdConfig    protocol.WatchdogConfig
	sinceBeat   time.Duration
	phaseLeft   time.Duration
	onAfterOff  time.Duration
	outlet      bool
	heartbeats  int
	powerCycles int

	elapsed  time.Duration
	claimed  bool
	releases int
	frames   [][]byte
	pending  []byte
}

// New returns a strip with every outlet off, the watchdog stopped, firmware
// 1.5 and the Watchdog model.
func New() *PowerStrip {
	return &PowerStrip{
		firmware: protocol.FirmwareVersion{Major: 1, Minor: 5},
		model:    protocol.ModelWatchdog,
		wdStatus: protocol.WatchdogNotRunning,
		wdConfig: protocol.DefaultWatchdogConfig(),
		outlet:   true,
	}
}

// SetFaults replaces the injected faults.
func (s *PowerStrip) SetFaults(f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = f
}

// SetCurrent sets the instantaneous current draw in milliamps.
func (s *PowerStrip) SetCurrent(mA uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentMA = mA
}

// SetCumulative sets the cumulative current counter.
func (s *PowerStrip) SetCumulative(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulative = v
}

// SetModel sets the reported model.
func (s *PowerStrip) SetModel(m protocol.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
}

// SetFirmware sets the reported firmware version.
func (s *PowerStrip) SetFirmware(v protocol.FirmwareVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firmware = v
}

// SetWatchdogStatus forces the watchdog status, including values a real
// strip would never report, for decoder tests.
func (s *PowerStrip) SetWatchdogStatus(st protocol.WatchdogStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wdStatus = st
}

// Devices implements transport.Bus.
func (s *PowerStrip) Devices() ([]transport.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.EnumerateErr != nil {
		return nil, s.faults.EnumerateErr
	}
	infos := []transport.DeviceInfo{otherDevice}
	if !s.faults.Missing {
		infos = append(infos, s.info())
	}
	return infos, nil
}

// OpenDevice implements transport.Bus.
func (s *PowerStrip) OpenDevice(info transport.DeviceInfo) (transport.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info != s.info() {
		return nil, fmt.Errorf("simulator: no device at %s", info)
	}
	if s.faults.OpenErr != nil {
		return nil, s.faults.OpenErr
	}
	return s, nil
}

func (s *PowerStrip) info() transport.DeviceInfo {
	return transport.DeviceInfo{
		Vendor:  protocol.VendorID,
		Product: protocol.ProductID,
		Bus:     SimBus,
		Address: SimAddress,
	}
}

// Claim implements transport.Device.
func (s *PowerStrip) Claim(iface int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faults.ClaimErr != nil {
		return s.faults.ClaimErr
	}
	if iface != protocol.Interface {
		return fmt.Errorf("simulator: no interface %d", iface)
	}
	s.claimed = true
	return nil
}

// Release implements transport.Device.
func (s *PowerStrip) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claimed = false
	s.releases++
	s.pending = nil
	return s.faults.ReleaseErr
}

// BulkWrite implements transport.Device. The frame is executed immediately.
func (s *PowerStrip) BulkWrite(endpoint uint8, data []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if endpoint != protocol.EndpointOut {
		return 0, fmt.Errorf("simulator: write to endpoint 0x%02x", endpoint)
	}
	if !s.claimed {
		return 0, fmt.Errorf("simulator: interface not claimed")
	}
	if s.faults.WriteTimeout {
		return 0, fmt.Errorf("simulator: write after %s: %w", timeout, protocol.ErrIOTimeout)
	}

	frame := append([]byte(nil), data...)
	s.frames = append(s.frames, frame)
	s.execute(frame)
	return len(data), nil
}

// BulkRead implements transport.Device. It returns the reply to the last
// query, or times out when none is pending.
func (s *PowerStrip) BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if endpoint != protocol.EndpointIn {
		return 0, fmt.Errorf("simulator: read from endpoint 0x%02x", endpoint)
	}
	if s.faults.ReadTimeout || s.pending == nil {
		return 0, fmt.Errorf("simulator: read after %s: %w", timeout, protocol.ErrIOTimeout)
	}

	reply := s.pending
	s.pending = nil
	if s.faults.ShortReply > 0 && s.faults.ShortReply < len(reply) {
		reply = reply[:s.faults.ShortReply]
	}
	return copy(buf, reply), nil
}

func (s *PowerStrip) execute(frame []byte) {
	if len(frame) == 0 {
		return
	}
	param := func(i int) byte {
		if i < len(frame) {
			return frame[i]
		}
		return 0
	}

	switch op := protocol.Opcode(frame[0]); op {
	case protocol.OpSetPort1On, protocol.OpSetPort2On, protocol.OpSetPort3On:
		s.ports[setIndex(op)] = true
	case protocol.OpSetPort1Off, protocol.OpSetPort2Off, protocol.OpSetPort3Off:
		s.ports[setIndex(op)] = false
	case protocol.OpSetPort1DefaultOn, protocol.OpSetPort2DefaultOn, protocol.OpSetPort3DefaultOn:
		s.defaults[setIndex(op)] = true
	case protocol.OpSetPort1DefaultOff, protocol.OpSetPort2DefaultOff, protocol.OpSetPort3DefaultOff:
		s.defaults[setIndex(op)] = false
	case protocol.OpSetAllOn:
		s.ports = [protocol.NumPorts]bool{true, true, true}
	case protocol.OpSetAllOff:
		s.ports = [protocol.NumPorts]bool{}

	case protocol.OpReadPort1, protocol.OpReadPort2, protocol.OpReadPort3:
		s.reply(boolByte(s.ports[readIndex(op)]))
	case protocol.OpReadPort1PowerUp, protocol.OpReadPort2PowerUp, protocol.OpReadPort3PowerUp:
		s.reply(boolByte(s.defaults[readIndex(op)]))
	case protocol.OpReadFirmware:
		s.reply(s.firmware.Major, s.firmware.Minor)
	case protocol.OpReadModel:
		s.reply(byte(s.model))
	case protocol.OpReadCurrent:
		s.reply(binary.BigEndian.AppendUint16(nil, s.currentMA)...)
	case protocol.OpReadCurrentCumulative:
		s.reply(binary.BigEndian.AppendUint32(nil, s.cumulative)...)
	case protocol.OpResetCurrentCounter:
		s.cumulative = 0

	case protocol.OpStartWatchdog:
		s.wdConfig = protocol.WatchdogConfig{
			IntervalSeconds: int(param(2)),
			AllowedMisses:   int(param(3)),
			OfftimeSeconds:  int(param(4)),
		}
		s.wdStatus = protocol.WatchdogActive
		s.sinceBeat = 0
	case protocol.OpStopWatchdog:
		s.wdStatus = protocol.WatchdogNotRunning
		s.outlet = true
	case protocol.OpHeartbeat:
		s.heartbeats++
		s.sinceBeat = 0
	case protocol.OpPowerCycle:
		s.beginPowerCycle(seconds(int(param(1))))
	case protocol.OpPlannedPoweroff:
		s.wdResume = s.resumeStatus()
		s.wdStatus = protocol.WatchdogAboutToPowerOff
		s.phaseLeft = minutes(int(param(1)))
		s.onAfterOff = minutes(int(param(2))<<8 | int(param(3)))
	case protocol.OpReadWatchdogStatus:
		s.reply(byte(s.wdStatus))
	}
}

// reply queues a 64-byte reply frame starting with data.
func (s *PowerStrip) reply(data ...byte) {
	frame := make([]byte, protocol.FrameSize)
	copy(frame, data)
	s.pending = frame
}

func (s *PowerStrip) resumeStatus() protocol.WatchdogStatus {
	if s.wdStatus == protocol.WatchdogNotRunning {
		return protocol.WatchdogNotRunning
	}
	return protocol.WatchdogActive
}

func (s *PowerStrip) beginPowerCycle(off time.Duration) {
	s.wdResume = s.resumeStatus()
	s.wdStatus = protocol.WatchdogPowerCycling
	s.phaseLeft = off
	s.outlet = false
	s.powerCycles++
}

// Advance moves the virtual clock forward by d and runs every watchdog
// transition that falls due.
func (s *PowerStrip) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elapsed += d
	for d > 0 {
		switch s.wdStatus {
		case protocol.WatchdogActive:
			trip := s.wdConfig.TripAfter()
			if trip <= 0 {
				return
			}
			left := trip - s.sinceBeat
			if d < left {
				s.sinceBeat += d
				return
			}
			d -= left
			s.sinceBeat = 0
			s.beginPowerCycle(seconds(s.wdConfig.OfftimeSeconds))

		case protocol.WatchdogPowerCycling, protocol.WatchdogAboutToPowerOff, protocol.WatchdogOffAfterPowerOff:
			if d < s.phaseLeft {
				s.phaseLeft -= d
				return
			}
			d -= s.phaseLeft
			s.phaseLeft = 0
			s.nextPhase()

		default:
			return
		}
	}
}

func (s *PowerStrip) nextPhase() {
	switch s.wdStatus {
	case protocol.WatchdogAboutToPowerOff:
		s.wdStatus = protocol.WatchdogOffAfterPowerOff
		s.phaseLeft = s.onAfterOff
		s.outlet = false
	default:
		s.wdStatus = s.wdResume
		s.sinceBeat = 0
		s.outlet = true
	}
}

// Port reports the immediate state of an outlet.
func (s *PowerStrip) Port(p protocol.Port) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ports[p-1]
}

// Default reports the power-up default of an outlet.
func (s *PowerStrip) Default(p protocol.Port) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults[p-1]
}

// Cumulative returns the cumulative current counter.
func (s *PowerStrip) Cumulative() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cumulative
}

// WatchdogStatus returns the current watchdog status.
func (s *PowerStrip) WatchdogStatus() protocol.WatchdogStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wdStatus
}

// WatchdogConfig returns the configuration of the last start command.
func (s *PowerStrip) WatchdogConfig() protocol.WatchdogConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wdConfig
}

// WatchdogOutlet reports whether the watchdog-controlled outlet is powered.
func (s *PowerStrip) WatchdogOutlet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outlet
}

// Heartbeats returns the number of heartbeats received.
func (s *PowerStrip) Heartbeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

// PowerCycles returns how many times the watchdog outlet was cycled.
func (s *PowerStrip) PowerCycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powerCycles
}

// Elapsed returns the total virtual time passed to Advance.
func (s *PowerStrip) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Claimed reports whether the interface is currently claimed.
func (s *PowerStrip) Claimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed
}

// Releases returns how many times Release was called.
func (s *PowerStrip) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// Frames returns a copy of every frame written so far.
func (s *PowerStrip) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	for i, f := range s.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Opcodes returns the first byte of every frame written so far.
func (s *PowerStrip) Opcodes() []protocol.Opcode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Opcode, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, protocol.Opcode(f[0]))
	}
	return out
}

func setIndex(op protocol.Opcode) int {
	switch op {
	case protocol.OpSetPort1On, protocol.OpSetPort1Off, protocol.OpSetPort1DefaultOn, protocol.OpSetPort1DefaultOff:
		return 0
	case protocol.OpSetPort2On, protocol.OpSetPort2Off, protocol.OpSetPort2DefaultOn, protocol.OpSetPort2DefaultOff:
		return 1
	default:
		return 2
	}
}

func readIndex(op protocol.Opcode) int {
	switch op {
	case protocol.OpReadPort1, protocol.OpReadPort1PowerUp:
		return 0
	case protocol.OpReadPort2, protocol.OpReadPort2PowerUp:
		return 1
	default:
		return 2
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// Compile-time interface satisfaction checks.
var (
	_ transport.Bus    = (*PowerStrip)(nil)
	_ transport.Device = (*PowerStrip)(nil)
)
