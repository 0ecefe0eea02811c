package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, protocol.DefaultWatchdogConfig(), cfg.WatchdogConfig())
	assert.False(t, cfg.Watchdog.Init)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.Device.Timeout)
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
watchdog:
  init: true
  period: 30
log:
  level: debug
  protocol_log: /tmp/capture.plog
device:
  timeout: 500ms
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.True(t, cfg.Watchdog.Init)
	assert.Equal(t, 30, cfg.Watchdog.Period)
	assert.Equal(t, protocol.DefaultAllowedMisses, cfg.Watchdog.Misses)
	assert.Equal(t, protocol.DefaultOfftimeSeconds, cfg.Watchdog.Offtime)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/capture.plog", cfg.Log.ProtocolLog)
	assert.Equal(t, 500*time.Millisecond, cfg.Device.Timeout)
	assert.False(t, cfg.Device.Simulate)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("watchdog:\n  perod: 10\n"))
	assert.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"period zero", func(f *File) { f.Watchdog.Period = 0 }},
		{"period too large", func(f *File) { f.Watchdog.Period = 256 }},
		{"negative misses", func(f *File) { f.Watchdog.Misses = -1 }},
		{"offtime too large", func(f *File) { f.Watchdog.Offtime = 300 }},
		{"bad level", func(f *File) { f.Log.Level = "loud" }},
		{"zero timeout", func(f *File) { f.Device.Timeout = 0 }},
		{"huge timeout", func(f *File) { f.Device.Timeout = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), protocol.ErrInvalidArgument)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwrusb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  simulate: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Device.Simulate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("trace")
	assert.ErrorIs(t, err, protocol.ErrInvalidArgument)
}
