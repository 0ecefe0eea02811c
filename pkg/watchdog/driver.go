package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/log"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// Controller is the subset of powerusb.Device the driver needs.
type Controller interface {
	StopWatchdog() error
	StartWatchdog(cfg protocol.WatchdogConfig) error
	Heartbeat() error
	Close() error
}

// Driver states reported in capture events and Stats.
const (
	StateIdle     = "IDLE"
	StateRunning  = "RUNNING"
	StateStopping = "STOPPING"
	StateStopped  = "STOPPED"
)

// Config configures a Driver.
type Config struct {
	// Watchdog is sent to the device when Init is set. Its interval is
	// also the heartbeat period.
	Watchdog protocol.WatchdogConfig

	// Init stops and restarts the device watchdog before the first
	// heartbeat.
	Init bool

	// Clock drives the wait between heartbeats (default: wall clock).
	Clock Clock

	// Logger receives operational logs (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger receives driver state changes (optional).
	ProtocolLogger log.Logger

	// SessionID tags capture events.
	SessionID string
}

// Stats describes a driver's progress.
type Stats struct {
	State         string
	Heartbeats    int
	LastHeartbeat time.Time
	Started       time.Time
}

// Driver sends periodic heartbeats and owns the shutdown sequence.
type Driver struct {
	ctrl    Controller
	config  Config
	period  time.Duration
	clock   Clock
	logger  *slog.Logger
	capture log.Logger

	mu    sync.Mutex
	stats Stats

	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates config and returns an idle driver.
func New(ctrl Controller, config Config) (*Driver, error) {
	if err := config.Watchdog.Validate(); err != nil {
		return nil, err
	}
	if config.Watchdog.IntervalSeconds < 1 {
		return nil, fmt.Errorf("%w: heartbeat period must be at least 1 second", protocol.ErrInvalidArgument)
	}
	if config.Clock == nil {
		config.Clock = RealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Driver{
		ctrl:    ctrl,
		config:  config,
		period:  config.Watchdog.Interval(),
		clock:   config.Clock,
		logger:  config.Logger,
		capture: log.OrNoop(config.ProtocolLogger),
		stats:   Stats{State: StateIdle},
	}, nil
}

// Period returns the time between heartbeats.
func (d *Driver) Period() time.Duration {
	return d.period
}

// Stats returns a snapshot of the driver's progress.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Run sends heartbeats until ctx is done, then shuts down. A failed
// transfer also shuts down; its error is returned joined with any shutdown
// error. Run returns nil after a clean cancellation. A panic in the
// controller or the clock still runs the shutdown before it propagates.
func (d *Driver) Run(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("watchdog driver panicked", "panic", r)
			_ = d.shutdown(fmt.Sprint("panic: ", r))
			panic(r)
		}
	}()

	d.setState(StateRunning, "start")
	d.mu.Lock()
	d.stats.Started = d.clock.Now()
	d.mu.Unlock()

	if d.config.Init {
		cfg := d.config.Watchdog
		if err := d.ctrl.StopWatchdog(); err != nil {
			return d.abort(fmt.Errorf("reset watchdog: %w", err))
		}
		if err := d.ctrl.StartWatchdog(cfg); err != nil {
			return d.abort(fmt.Errorf("start watchdog: %w", err))
		}
		d.logger.Info("watchdog configured",
			"interval", cfg.Interval(),
			"misses", cfg.AllowedMisses,
			"offtime", time.Duration(cfg.OfftimeSeconds)*time.Second,
			"trip_after", cfg.TripAfter())
	}

	d.logger.Info("heartbeat loop started", "period", d.period)
	for {
		// Checked before every heartbeat so that a cancellation racing
		// with the timer never lets one more heartbeat through.
		if ctx.Err() != nil {
			return d.Shutdown()
		}
		if err := d.ctrl.Heartbeat(); err != nil {
			return d.abort(fmt.Errorf("heartbeat: %w", err))
		}
		d.recordHeartbeat()

		select {
		case <-ctx.Done():
			return d.Shutdown()
		case <-d.clock.After(d.period):
		}
	}
}

func (d *Driver) recordHeartbeat() {
	now := d.clock.Now()
	d.mu.Lock()
	d.stats.Heartbeats++
	d.stats.LastHeartbeat = now
	n := d.stats.Heartbeats
	d.mu.Unlock()
	d.logger.Debug("heartbeat sent", "count", n)
}

// abort runs the shutdown sequence after a fatal error.
func (d *Driver) abort(cause error) error {
	d.logger.Error("watchdog driver failed", "error", cause)
	d.captureError(cause)
	return errors.Join(cause, d.shutdown(cause.Error()))
}

// Shutdown stops the device watchdog and then releases the device. Only the
// first call does any work; later calls return the first result.
func (d *Driver) Shutdown() error {
	return d.shutdown("shutdown requested")
}

func (d *Driver) shutdown(reason string) error {
	d.shutdownOnce.Do(func() {
		d.setState(StateStopping, reason)
		d.logger.Info("stopping watchdog", "reason", reason)

		var errs []error
		if err := d.ctrl.StopWatchdog(); err != nil {
			errs = append(errs, fmt.Errorf("stop watchdog: %w", err))
		}
		if err := d.ctrl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close device: %w", err))
		}
		d.shutdownErr = errors.Join(errs...)

		if d.shutdownErr != nil {
			d.logger.Error("shutdown incomplete", "error", d.shutdownErr)
			d.captureError(d.shutdownErr)
		}
		d.setState(StateStopped, reason)
		d.logger.Info("watchdog driver stopped", "heartbeats", d.Stats().Heartbeats)
	})
	return d.shutdownErr
}

func (d *Driver) setState(state, reason string) {
	d.mu.Lock()
	old := d.stats.State
	d.stats.State = state
	d.mu.Unlock()

	d.capture.Log(log.Event{
		Timestamp: d.clock.Now(),
		SessionID: d.config.SessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerHost,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDriver,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}

func (d *Driver) captureError(err error) {
	d.capture.Log(log.Event{
		Timestamp: d.clock.Now(),
		SessionID: d.config.SessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerHost,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerHost,
			Message: err.Error(),
			Context: "driver",
		},
	})
}
