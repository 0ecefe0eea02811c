package protocol

import (
	"fmt"
	"time"
)

// Parameter bounds.
const (
	// MaxByteParam is the largest value carried in a one-byte parameter.
	MaxByteParam = 255

	// MaxMinutesToOff is the longest planned power-off delay the device accepts.
	MaxMinutesToOff = 720

	// MaxMinutesToOn is the longest planned off period before re-powering.
	MaxMinutesToOn = 255
)

// Defaults used by the heartbeat daemon.
const (
	DefaultIntervalSeconds = 60
	DefaultAllowedMisses   = 2
	DefaultOfftimeSeconds  = 2
)

// WatchdogConfig configures the device watchdog.
type WatchdogConfig struct {
	// IntervalSeconds is the expected time between heartbeats.
	IntervalSeconds int

	// AllowedMisses is the number of consecutive heartbeats that may be missed.
	AllowedMisses int

	// OfftimeSeconds is how long the watchdog outlet stays off when cycled.
	OfftimeSeconds int
}

// DefaultWatchdogConfig returns the stock 60s/2 misses/2s configuration.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		IntervalSeconds: DefaultIntervalSeconds,
		AllowedMisses:   DefaultAllowedMisses,
		OfftimeSeconds:  DefaultOfftimeSeconds,
	}
}

// Validate checks every field fits in one byte.
func (c WatchdogConfig) Validate() error {
	if err := checkByte("interval", c.IntervalSeconds); err != nil {
		return err
	}
	if err := checkByte("allowed misses", c.AllowedMisses); err != nil {
		return err
	}
	return checkByte("offtime", c.OfftimeSeconds)
}

// Interval returns the heartbeat period.
func (c WatchdogConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// TripAfter returns how long the device waits without heartbeats before it
// power-cycles: interval * (allowedMisses + 1).
func (c WatchdogConfig) TripAfter() time.Duration {
	return c.Interval() * time.Duration(c.AllowedMisses+1)
}

func checkByte(name string, v int) error {
	if v < 0 || v > MaxByteParam {
		return fmt.Errorf("%w: %s %d out of range 0..%d", ErrInvalidArgument, name, v, MaxByteParam)
	}
	return nil
}

// EncodeStartWatchdog encodes opcode, a reserved zero byte, interval,
// allowed misses and offtime.
func EncodeStartWatchdog(cfg WatchdogConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return StartWatchdog.Encode(
		0x00,
		byte(cfg.IntervalSeconds),
		byte(cfg.AllowedMisses),
		byte(cfg.OfftimeSeconds),
	), nil
}

// EncodePowerCycle encodes a one-shot power cycle of the watchdog outlet.
func EncodePowerCycle(seconds int) ([]byte, error) {
	if err := checkByte("power cycle duration", seconds); err != nil {
		return nil, err
	}
	return PowerCycle.Encode(byte(seconds)), nil
}

// EncodePlannedPoweroff encodes minutesToOff as one byte and minutesToOn as
// two bytes, high byte first.
func EncodePlannedPoweroff(minutesToOff, minutesToOn int) ([]byte, error) {
	if minutesToOff < 0 || minutesToOff > MaxMinutesToOff {
		return nil, fmt.Errorf("%w: minutes to off %d out of range 0..%d", ErrInvalidArgument, minutesToOff, MaxMinutesToOff)
	}
	if minutesToOn < 0 || minutesToOn > MaxMinutesToOn {
		return nil, fmt.Errorf("%w: minutes to on %d out of range 0..%d", ErrInvalidArgument, minutesToOn, MaxMinutesToOn)
	}
	// The wire field for minutesToOff is a single byte.
	if minutesToOff > MaxByteParam {
		return nil, fmt.Errorf("%w: minutes to off %d does not fit the one-byte field", ErrInvalidArgument, minutesToOff)
	}
	return PlannedPoweroff.Encode(
		byte(minutesToOff),
		byte(minutesToOn>>8),
		byte(minutesToOn),
	), nil
}
