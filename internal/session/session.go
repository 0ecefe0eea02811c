// Package session wires a PowerUSB device for the command-line tools: bus
// selection (USB or simulator), capture logging and the device channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/powerusb"
	"github.com/pwrusb/pwrusb-go/pkg/simulator"
	"github.com/pwrusb/pwrusb-go/pkg/transport"
)

// Options selects how the device is reached.
type Options struct {
	// Simulate uses an in-memory strip instead of USB.
	Simulate bool

	// Strip is the simulated strip to use; a fresh one when nil.
	Strip *simulator.PowerStrip

	// Timeout bounds each bulk transfer (default: transport.DefaultTimeout).
	Timeout time.Duration

	// ProtocolLog is a capture file path (optional).
	ProtocolLog string

	// Logger receives operational logs; capture events are mirrored to it
	// at debug level (default: slog.Default()).
	Logger *slog.Logger
}

// Session holds an open device and everything that must be released with it.
type Session struct {
	Device  *powerusb.Device
	Channel *transport.Channel

	// Strip is set when running against the simulator.
	Strip *simulator.PowerStrip

	capture log.Logger
	file    *log.FileLogger
	bus     *transport.USBBus

	closeOnce sync.Once
	closeErr  error
}

// Open builds the capture logger, opens the bus and claims the device.
func Open(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{}

	var loggers []log.Logger
	if opts.ProtocolLog != "" {
		f, err := log.NewFileLogger(opts.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("protocol log: %w", err)
		}
		s.file = f
		loggers = append(loggers, f)
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(opts.Logger))
	}
	s.capture = log.NewMultiLogger(loggers...)

	var bus transport.Bus
	if opts.Simulate {
		s.Strip = opts.Strip
		if s.Strip == nil {
			s.Strip = simulator.New()
		}
		bus = s.Strip
	} else {
		s.bus = transport.NewUSBBus()
		bus = s.bus
	}

	ch, err := transport.Open(bus, transport.ChannelConfig{
		Timeout:        opts.Timeout,
		ProtocolLogger: s.capture,
	})
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.Channel = ch
	s.Device = powerusb.New(ch, powerusb.Config{
		ProtocolLogger: s.capture,
		SessionID:      ch.SessionID(),
		Device:         ch.Device(),
	})

	opts.Logger.Debug("device opened", "device", ch.Device(), "session", ch.SessionID(), "simulated", opts.Simulate)
	return s, nil
}

// Capture returns the capture logger shared by every layer.
func (s *Session) Capture() log.Logger {
	return s.capture
}

// SessionID returns the channel's capture session id.
func (s *Session) SessionID() string {
	if s.Channel == nil {
		return ""
	}
	return s.Channel.SessionID()
}

// Close releases the device, then the bus, then the capture file. It is
// safe to call after the device was already closed elsewhere.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.Channel != nil {
			errs = append(errs, s.Channel.Close())
		}
		if s.bus != nil {
			errs = append(errs, s.bus.Close())
		}
		if s.file != nil {
			errs = append(errs, s.file.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
