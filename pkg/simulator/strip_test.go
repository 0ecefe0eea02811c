package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

func claimed(t *testing.T) *PowerStrip {
	t.Helper()
	s := New()
	require.NoError(t, s.Claim(protocol.Interface))
	return s
}

func write(t *testing.T, s *PowerStrip, cmd []byte) {
	t.Helper()
	frame, err := protocol.Frame(cmd)
	require.NoError(t, err)
	_, err = s.BulkWrite(protocol.EndpointOut, frame, time.Second)
	require.NoError(t, err)
}

func read(t *testing.T, s *PowerStrip) []byte {
	t.Helper()
	buf := make([]byte, protocol.FrameSize)
	n, err := s.BulkRead(protocol.EndpointIn, buf, time.Second)
	require.NoError(t, err)
	return buf[:n]
}

func TestPortOpcodes(t *testing.T) {
	s := claimed(t)

	write(t, s, protocol.SetPort2On.Encode())
	assert.False(t, s.Port(protocol.Port1))
	assert.True(t, s.Port(protocol.Port2))

	write(t, s, protocol.SetPort3DefaultOn.Encode())
	assert.True(t, s.Default(protocol.Port3))
	assert.False(t, s.Port(protocol.Port3))

	write(t, s, protocol.ReadPort2.Encode())
	assert.Equal(t, byte(1), read(t, s)[0])

	write(t, s, protocol.SetAllPortsOn.Encode())
	for _, p := range protocol.Ports() {
		assert.True(t, s.Port(p))
	}
	write(t, s, protocol.SetAllPortsOff.Encode())
	for _, p := range protocol.Ports() {
		assert.False(t, s.Port(p))
	}
}

func TestReadWithoutQueryTimesOut(t *testing.T) {
	s := claimed(t)
	write(t, s, protocol.Heartbeat.Encode())

	_, err := s.BulkRead(protocol.EndpointIn, make([]byte, protocol.FrameSize), time.Second)
	assert.ErrorIs(t, err, protocol.ErrIOTimeout)
}

func TestWriteRequiresClaim(t *testing.T) {
	s := New()
	_, err := s.BulkWrite(protocol.EndpointOut, []byte{0x94}, time.Second)
	assert.Error(t, err)
}

func TestCurrentCounters(t *testing.T) {
	s := claimed(t)
	s.SetCurrent(0x0102)
	s.SetCumulative(0x01020304)

	write(t, s, protocol.ReadCurrent.Encode())
	assert.Equal(t, []byte{0x01, 0x02}, read(t, s)[:2])

	write(t, s, protocol.ReadCurrentCumulative.Encode())
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, read(t, s)[:4])

	write(t, s, protocol.ResetCurrentCounter.Encode())
	assert.Zero(t, s.Cumulative())
}

func TestWatchdogTripsAfterMissedHeartbeats(t *testing.T) {
	s := claimed(t)
	cfg := protocol.WatchdogConfig{IntervalSeconds: 10, AllowedMisses: 2, OfftimeSeconds: 5}
	start, err := protocol.EncodeStartWatchdog(cfg)
	require.NoError(t, err)
	write(t, s, start)

	assert.Equal(t, cfg, s.WatchdogConfig())
	assert.Equal(t, protocol.WatchdogActive, s.WatchdogStatus())

	// Heartbeats inside the window keep it active.
	for i := 0; i < 5; i++ {
		s.Advance(25 * time.Second)
		write(t, s, protocol.Heartbeat.Encode())
	}
	assert.Equal(t, protocol.WatchdogActive, s.WatchdogStatus())
	assert.Zero(t, s.PowerCycles())

	s.Advance(30 * time.Second)
	assert.Equal(t, protocol.WatchdogPowerCycling, s.WatchdogStatus())
	assert.False(t, s.WatchdogOutlet())
	assert.Equal(t, 1, s.PowerCycles())

	s.Advance(5 * time.Second)
	assert.Equal(t, protocol.WatchdogActive, s.WatchdogStatus())
	assert.True(t, s.WatchdogOutlet())
}

func TestWatchdogStopPreventsTrip(t *testing.T) {
	s := claimed(t)
	start, err := protocol.EncodeStartWatchdog(protocol.WatchdogConfig{IntervalSeconds: 1})
	require.NoError(t, err)
	write(t, s, start)
	write(t, s, protocol.StopWatchdog.Encode())

	s.Advance(time.Hour)
	assert.Equal(t, protocol.WatchdogNotRunning, s.WatchdogStatus())
	assert.Zero(t, s.PowerCycles())
}

func TestPowerCycleCommand(t *testing.T) {
	s := claimed(t)
	cmd, err := protocol.EncodePowerCycle(3)
	require.NoError(t, err)
	write(t, s, cmd)

	assert.Equal(t, protocol.WatchdogPowerCycling, s.WatchdogStatus())
	s.Advance(3 * time.Second)
	assert.Equal(t, protocol.WatchdogNotRunning, s.WatchdogStatus())
	assert.True(t, s.WatchdogOutlet())
}

func TestPlannedPoweroff(t *testing.T) {
	s := claimed(t)
	cmd, err := protocol.EncodePlannedPoweroff(2, 200)
	require.NoError(t, err)
	write(t, s, cmd)

	assert.Equal(t, protocol.WatchdogAboutToPowerOff, s.WatchdogStatus())

	s.Advance(2 * time.Minute)
	assert.Equal(t, protocol.WatchdogOffAfterPowerOff, s.WatchdogStatus())
	assert.False(t, s.WatchdogOutlet())

	s.Advance(200 * time.Minute)
	assert.Equal(t, protocol.WatchdogNotRunning, s.WatchdogStatus())
	assert.True(t, s.WatchdogOutlet())
}

func TestStatusReply(t *testing.T) {
	s := claimed(t)
	s.SetWatchdogStatus(protocol.WatchdogStatus(7))

	write(t, s, protocol.ReadWatchdogStatus.Encode())
	assert.Equal(t, byte(7), read(t, s)[0])
}

func TestShortReplyFault(t *testing.T) {
	s := claimed(t)
	s.SetFaults(Faults{ShortReply: 1})

	write(t, s, protocol.ReadFirmwareVersion.Encode())
	assert.Equal(t, []byte{1}, read(t, s))
}

func TestDevicesListsStripAfterOtherDevice(t *testing.T) {
	s := New()
	infos, err := s.Devices()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[1].Matches(protocol.VendorID, protocol.ProductID))

	s.SetFaults(Faults{Missing: true})
	infos, err = s.Devices()
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
