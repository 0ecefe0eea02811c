package interactive

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/powerusb"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
	"github.com/pwrusb/pwrusb-go/pkg/simulator"
	"github.com/pwrusb/pwrusb-go/pkg/transport"
)

func testShell(t *testing.T, withStrip bool) (*Shell, *simulator.PowerStrip, *bytes.Buffer) {
	t.Helper()
	strip := simulator.New()
	ch, err := transport.Open(strip, transport.ChannelConfig{})
	require.NoError(t, err)
	dev := powerusb.New(ch, powerusb.Config{SessionID: ch.SessionID(), Device: ch.Device()})
	t.Cleanup(func() { _ = dev.Close() })

	var out bytes.Buffer
	var simStrip *simulator.PowerStrip
	if withStrip {
		simStrip = strip
	}
	return newShell(dev, simStrip, &out), strip, &out
}

func TestHandleDispatchesCommands(t *testing.T) {
	sh, strip, out := testShell(t, true)

	assert.False(t, sh.Handle("port set 1 on"))
	assert.True(t, strip.Port(protocol.Port1))
	assert.Contains(t, out.String(), "Port 1 state: ON")

	assert.False(t, sh.Handle("   "))
	assert.True(t, sh.Handle("quit"))
	assert.True(t, sh.Handle("EXIT"))
}

func TestHandleReportsErrors(t *testing.T) {
	sh, _, out := testShell(t, true)

	sh.Handle("frobnicate")
	assert.Contains(t, out.String(), "type 'help' for commands")

	out.Reset()
	sh.Handle("port set 7 on")
	assert.Contains(t, out.String(), "invalid argument")
}

func TestHelpListsSimulationOnlyWithStrip(t *testing.T) {
	sh, _, out := testShell(t, true)
	sh.Handle("help")
	assert.Contains(t, out.String(), "watchdog heartbeat")
	assert.Contains(t, out.String(), "sim advance")

	sh, _, out = testShell(t, false)
	sh.Handle("help")
	assert.NotContains(t, out.String(), "sim advance")

	out.Reset()
	sh.Handle("sim state")
	assert.Contains(t, out.String(), "Not running against the simulator")
}

func TestSimAdvanceTripsUnfedWatchdog(t *testing.T) {
	sh, strip, out := testShell(t, true)

	sh.Handle("watchdog start")
	out.Reset()

	sh.Handle("sim advance 200s")
	assert.Contains(t, out.String(), "Watchdog tripped 1 time(s)")
	assert.Contains(t, out.String(), "Watchdog: ACTIVE, outlet ON")
	assert.Equal(t, 1, strip.PowerCycles())

	out.Reset()
	sh.Handle("sim advance soon")
	assert.Contains(t, out.String(), "Invalid duration")
}

func TestSimAdvanceWithHeartbeatsDoesNotTrip(t *testing.T) {
	sh, strip, out := testShell(t, true)

	sh.Handle("watchdog start 60 2 2")
	for i := 0; i < 5; i++ {
		sh.Handle("sim advance 60s")
		sh.Handle("watchdog heartbeat")
	}
	assert.NotContains(t, out.String(), "tripped")
	assert.Equal(t, 0, strip.PowerCycles())
	assert.Equal(t, 5, strip.Heartbeats())
}

// blockingReader serves scripted lines, then blocks until closed like a
// terminal waiting for input.
type blockingReader struct {
	mu     sync.Mutex
	lines  []string
	closed chan struct{}
	closes int
}

func newBlockingReader(lines ...string) *blockingReader {
	return &blockingReader{lines: lines, closed: make(chan struct{})}
}

func (r *blockingReader) Readline() (string, error) {
	r.mu.Lock()
	if len(r.lines) > 0 {
		line := r.lines[0]
		r.lines = r.lines[1:]
		r.mu.Unlock()
		return line, nil
	}
	r.mu.Unlock()

	<-r.closed
	return "", io.EOF
}

func (r *blockingReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	close(r.closed)
	return nil
}

func (r *blockingReader) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

func TestRunExitsOnQuit(t *testing.T) {
	sh, strip, out := testShell(t, true)
	reader := newBlockingReader("port set 3 on", "quit")
	sh.rl = reader

	sh.Run(context.Background())

	assert.True(t, strip.Port(protocol.Port3))
	assert.Contains(t, out.String(), "Exiting...")
	assert.Equal(t, 1, reader.Closes())
}

func TestRunCancelInterruptsPendingRead(t *testing.T) {
	sh, _, _ := testShell(t, true)
	reader := newBlockingReader()
	sh.rl = reader

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sh.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shell still waiting for input after cancel")
	}
	assert.Equal(t, 1, reader.Closes())
}
