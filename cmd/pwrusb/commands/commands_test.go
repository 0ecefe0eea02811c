package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/powerusb"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
	"github.com/pwrusb/pwrusb-go/pkg/simulator"
	"github.com/pwrusb/pwrusb-go/pkg/transport"
)

func newDevice(t *testing.T) (*powerusb.Device, *simulator.PowerStrip) {
	t.Helper()
	strip := simulator.New()
	ch, err := transport.Open(strip, transport.ChannelConfig{})
	require.NoError(t, err)
	dev := powerusb.New(ch, powerusb.Config{SessionID: ch.SessionID(), Device: ch.Device()})
	t.Cleanup(func() { _ = dev.Close() })
	return dev, strip
}

func run(t *testing.T, dev *powerusb.Device, line string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Execute(dev, strings.Fields(line), &buf)
	return buf.String(), err
}

func TestPortSetAndGet(t *testing.T) {
	dev, strip := newDevice(t)

	out, err := run(t, dev, "port set 2 on")
	require.NoError(t, err)
	assert.Equal(t, "Port 2 state: ON\n", out)
	assert.True(t, strip.Port(protocol.Port2))

	out, err = run(t, dev, "port get 2")
	require.NoError(t, err)
	assert.Equal(t, "Port 2 state: ON\n", out)

	out, err = run(t, dev, "port set 3 on --default")
	require.NoError(t, err)
	assert.Equal(t, "Port 3 default: ON\n", out)
	assert.True(t, strip.Default(protocol.Port3))
	assert.False(t, strip.Port(protocol.Port3))

	out, err = run(t, dev, "port get -d 3")
	require.NoError(t, err)
	assert.Equal(t, "Port 3 default: ON\n", out)
}

func TestPortsTable(t *testing.T) {
	dev, _ := newDevice(t)
	_, err := run(t, dev, "port set 1 on")
	require.NoError(t, err)

	out, err := run(t, dev, "ports")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"PORT", "STATE", "DEFAULT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "ON", "OFF"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"3", "OFF", "OFF"}, strings.Fields(lines[3]))
}

func TestAll(t *testing.T) {
	dev, strip := newDevice(t)

	_, err := run(t, dev, "all on")
	require.NoError(t, err)
	for _, p := range protocol.Ports() {
		assert.True(t, strip.Port(p))
	}

	_, err = run(t, dev, "all off")
	require.NoError(t, err)
	for _, p := range protocol.Ports() {
		assert.False(t, strip.Port(p))
	}
}

func TestCurrentCommands(t *testing.T) {
	dev, strip := newDevice(t)
	strip.SetCurrent(420)
	strip.SetCumulative(100000)

	out, err := run(t, dev, "current")
	require.NoError(t, err)
	assert.Equal(t, "Current: 420 mA\n", out)

	out, err = run(t, dev, "total")
	require.NoError(t, err)
	assert.Equal(t, "Cumulative current: 100000\n", out)

	_, err = run(t, dev, "reset-total")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), strip.Cumulative())
}

func TestDeviceInfo(t *testing.T) {
	dev, strip := newDevice(t)

	out, err := run(t, dev, "firmware")
	require.NoError(t, err)
	assert.Equal(t, "Firmware: 1.5\n", out)

	out, err = run(t, dev, "model")
	require.NoError(t, err)
	assert.Equal(t, "Model: Watchdog\n", out)

	strip.SetModel(protocol.ModelBasic)
	out, err = run(t, dev, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Model:    Basic")
	assert.Contains(t, out, "no watchdog")
}

func TestWatchdogCommands(t *testing.T) {
	dev, strip := newDevice(t)

	out, err := run(t, dev, "watchdog status")
	require.NoError(t, err)
	assert.Equal(t, "Watchdog: NOT_RUNNING (Not running)\n", out)

	_, err = run(t, dev, "watchdog start 30 3")
	require.NoError(t, err)
	assert.Equal(t, protocol.WatchdogActive, strip.WatchdogStatus())
	assert.Equal(t, protocol.WatchdogConfig{IntervalSeconds: 30, AllowedMisses: 3, OfftimeSeconds: 2}, strip.WatchdogConfig())

	_, err = run(t, dev, "wd hb")
	require.NoError(t, err)
	assert.Equal(t, 1, strip.Heartbeats())

	_, err = run(t, dev, "watchdog stop")
	require.NoError(t, err)
	assert.Equal(t, protocol.WatchdogNotRunning, strip.WatchdogStatus())

	_, err = run(t, dev, "watchdog cycle 5")
	require.NoError(t, err)
	assert.Equal(t, protocol.WatchdogPowerCycling, strip.WatchdogStatus())
	assert.Equal(t, 1, strip.PowerCycles())
}

func TestWatchdogPoweroff(t *testing.T) {
	dev, strip := newDevice(t)

	out, err := run(t, dev, "watchdog poweroff 10 200")
	require.NoError(t, err)
	assert.Contains(t, out, "in 10 min")
	assert.Equal(t, protocol.WatchdogAboutToPowerOff, strip.WatchdogStatus())

	frames := strip.Frames()
	assert.Equal(t, []byte{0x95, 10, 0x00, 0xC8}, frames[len(frames)-1][:4])
}

func TestInvalidArguments(t *testing.T) {
	dev, strip := newDevice(t)
	before := len(strip.Frames())

	for _, line := range []string{
		"port set 0 on",
		"port set 4 on",
		"port set 259 on",
		"port get -1",
		"port set 1 maybe",
		"all dim",
		"watchdog start 256",
		"watchdog cycle 300",
		"watchdog poweroff 721 0",
		"watchdog poweroff 0 256",
	} {
		_, err := run(t, dev, line)
		assert.ErrorIs(t, err, protocol.ErrInvalidArgument, line)
	}
	assert.Len(t, strip.Frames(), before, "nothing reaches the device")
}

func TestUsageErrors(t *testing.T) {
	dev, _ := newDevice(t)

	for _, line := range []string{
		"",
		"explode",
		"port",
		"port toggle 1",
		"port set one on",
		"port set 1",
		"all",
		"watchdog",
		"watchdog start 1 2 3 4",
		"watchdog start x",
		"watchdog cycle",
		"watchdog poweroff 1",
		"watchdog dance",
	} {
		_, err := run(t, dev, line)
		assert.ErrorIs(t, err, ErrUsage, "%q", line)
	}
}

func TestDeviceErrorsPassThrough(t *testing.T) {
	dev, strip := newDevice(t)
	strip.SetFaults(simulator.Faults{ReadTimeout: true})

	_, err := run(t, dev, "current")
	assert.ErrorIs(t, err, protocol.ErrIOTimeout)
}
