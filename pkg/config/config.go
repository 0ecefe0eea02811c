// Package config loads the YAML configuration shared by the pwrusb commands.
//
// Example file:
//
//	watchdog:
//	  init: true
//	  period: 60
//	  misses: 2
//	  offtime: 2
//	log:
//	  level: info
//	  protocol_log: /var/log/pwrusb/capture.plog
//	device:
//	  simulate: false
//	  timeout: 200ms
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// File is the top-level configuration document.
type File struct {
	Watchdog WatchdogSection `yaml:"watchdog"`
	Log      LogSection      `yaml:"log"`
	Device   DeviceSection   `yaml:"device"`
}

// WatchdogSection configures the heartbeat daemon.
type WatchdogSection struct {
	// Init stops and restarts the device watchdog on startup.
	Init bool `yaml:"init"`

	// Period is the heartbeat interval in seconds, also sent to the device.
	Period int `yaml:"period"`

	// Misses is the number of heartbeats the device tolerates missing.
	Misses int `yaml:"misses"`

	// Offtime is how many seconds the outlet stays off when cycled.
	Offtime int `yaml:"offtime"`
}

// LogSection configures operational and capture logging.
type LogSection struct {
	Level       string `yaml:"level"`
	ProtocolLog string `yaml:"protocol_log"`
}

// DeviceSection selects and tunes the device connection.
type DeviceSection struct {
	// Simulate uses the in-memory strip instead of USB.
	Simulate bool `yaml:"simulate"`

	// Timeout bounds each bulk transfer.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Watchdog: WatchdogSection{
			Period:  protocol.DefaultIntervalSeconds,
			Misses:  protocol.DefaultAllowedMisses,
			Offtime: protocol.DefaultOfftimeSeconds,
		},
		Log: LogSection{
			Level: "info",
		},
		Device: DeviceSection{
			Timeout: 200 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults. Unknown keys are errors.
func Parse(r io.Reader) (*File, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WatchdogConfig converts the watchdog section to the device encoding.
func (c *File) WatchdogConfig() protocol.WatchdogConfig {
	return protocol.WatchdogConfig{
		IntervalSeconds: c.Watchdog.Period,
		AllowedMisses:   c.Watchdog.Misses,
		OfftimeSeconds:  c.Watchdog.Offtime,
	}
}
