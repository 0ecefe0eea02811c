package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plog")
	l, err := log.NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		l.Log(e)
	}
	require.NoError(t, l.Close())
	return path
}

var ts = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: ts, SessionID: "a1b2c3d4-0000", Direction: log.DirectionOut,
			Layer: log.LayerTransport, Category: log.CategoryMessage, Device: "04d8:003f bus=1 addr=7",
			Frame: &log.FrameEvent{Size: 64, Opcode: 0x94, Data: []byte{0x94}},
		},
		{
			Timestamp: ts.Add(time.Millisecond), SessionID: "a1b2c3d4-0000", Direction: log.DirectionOut,
			Layer: log.LayerProtocol, Category: log.CategoryMessage,
			Command: &log.CommandEvent{Name: "Heartbeat", Opcode: 0x94, Duration: 250 * time.Microsecond},
		},
		{
			Timestamp: ts.Add(2 * time.Millisecond), SessionID: "a1b2c3d4-0000", Direction: log.DirectionIn,
			Layer: log.LayerTransport, Category: log.CategoryMessage,
			Frame: &log.FrameEvent{Size: 64, Data: []byte{0x01, 0x05}},
		},
		{
			Timestamp: ts.Add(3 * time.Millisecond), SessionID: "a1b2c3d4-0000", Direction: log.DirectionOut,
			Layer: log.LayerProtocol, Category: log.CategoryMessage,
			Command: &log.CommandEvent{Name: "ReadFirmwareVersion", Opcode: 0xA7, Reply: []byte{1, 5}, Value: "261"},
		},
		{
			Timestamp: ts.Add(time.Second), SessionID: "a1b2c3d4-0000", Direction: log.DirectionOut,
			Layer: log.LayerHost, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityDriver, OldState: "RUNNING", NewState: "STOPPING", Reason: "shutdown requested"},
		},
		{
			Timestamp: ts.Add(2 * time.Second), SessionID: "ffff0000-1111", Direction: log.DirectionOut,
			Layer: log.LayerTransport, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerTransport, Message: "usb transfer timed out", Context: "read (timeout)"},
		},
	}
}

func TestRunViewFormatsEveryKind(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunView(path, log.Filter{}, &buf))
	out := buf.String()

	assert.Contains(t, out, "2026-03-14T09:30:00.000000Z [a1b2c3d4] OUT TRANSPORT Frame")
	assert.Contains(t, out, "Opcode: 0x94 (Heartbeat)")
	assert.Contains(t, out, "OUT PROTOCOL Heartbeat")
	assert.Contains(t, out, "Duration: 250.000us")
	assert.Contains(t, out, "Reply: 0105")
	assert.Contains(t, out, "RUNNING -> STOPPING")
	assert.Contains(t, out, "Reason: shutdown requested")
	assert.Contains(t, out, "Context: read (timeout)")
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	tests := []struct {
		name  string
		flags FilterFlags
		want  int
	}{
		{"no filter", FilterFlags{}, 6},
		{"direction in", FilterFlags{Direction: "in"}, 1},
		{"category error", FilterFlags{Category: "error"}, 1},
		{"layer protocol", FilterFlags{Layer: "protocol"}, 2},
		{"opcode by name", FilterFlags{Opcode: "Heartbeat"}, 2},
		{"opcode by hex", FilterFlags{Opcode: "0xA7"}, 1},
		{"session", FilterFlags{Session: "ffff0000-1111"}, 1},
		{"time window", FilterFlags{TimeStart: "2026-03-14T09:30:01Z", TimeEnd: "2026-03-14T09:30:02Z"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := tt.flags.Build()
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, RunView(path, filter, &buf))
			assert.Equal(t, tt.want, strings.Count(buf.String(), "2026-03-14T"))
		})
	}
}

func TestFilterFlagsRejectInvalid(t *testing.T) {
	for _, f := range []FilterFlags{
		{Layer: "wire"},
		{Direction: "sideways"},
		{Category: "control"},
		{Opcode: "NotACommand"},
		{Opcode: "0x1FF"},
		{TimeStart: "yesterday"},
	} {
		_, err := f.Build()
		assert.Error(t, err, "%+v", f)
	}
}

func TestParseOpcodeFlag(t *testing.T) {
	op, err := ParseOpcodeFlag("StartWatchdog")
	require.NoError(t, err)
	assert.Equal(t, uint8(protocol.OpStartWatchdog), op)

	op, err = ParseOpcodeFlag("65")
	require.NoError(t, err)
	assert.Equal(t, uint8('A'), op)
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	out := buf.String()

	assert.Contains(t, out, "Total Events: 6")
	assert.Contains(t, out, "TRANSPORT:")
	assert.Contains(t, out, "PROTOCOL:")
	assert.Contains(t, out, "HOST:")
	assert.Contains(t, out, "Heartbeat:")
	assert.Contains(t, out, "Sessions: 2")
	assert.Contains(t, out, "Heartbeats: 1")
	assert.Contains(t, out, "Device: 04d8:003f bus=1 addr=7")
	assert.Contains(t, out, "Errors: 1 (timeouts: 1)")
}

func TestRunStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	assert.Contains(t, buf.String(), "Total Events: 0")
	assert.NotContains(t, buf.String(), "Time Range")
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, RunExport(path, "csv", out, log.Filter{}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,session_id"))
	assert.Contains(t, lines[2], "command,0x94,,Heartbeat")
	assert.Contains(t, lines[4], "ReadFirmwareVersion=261")
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	category := log.CategoryState
	require.NoError(t, RunExport(path, "jsonl", out, log.Filter{Category: &category}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "STOPPING")
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	assert.Error(t, RunExport(path, "xml", filepath.Join(t.TempDir(), "x"), log.Filter{}))
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "errors.plog")

	dir := log.DirectionIn
	n, err := RunFilter(path, out, log.Filter{Direction: &dir})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := log.NewReader(out)
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []byte{0x01, 0x05}, events[0].Frame.Data)

	_, err = RunFilter(path, path, log.Filter{})
	assert.Error(t, err)
	_, err = RunFilter(path, "", log.Filter{})
	assert.Error(t, err)
}
