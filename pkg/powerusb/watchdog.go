package powerusb

import (
	"fmt"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// StartWatchdog configures and arms the device watchdog.
func (d *Device) StartWatchdog(cfg protocol.WatchdogConfig) error {
	raw, err := protocol.EncodeStartWatchdog(cfg)
	if err != nil {
		return err
	}
	if err := d.send(protocol.StartWatchdog, raw); err != nil {
		return err
	}
	d.logWatchdog("", protocol.WatchdogActive.String(),
		fmt.Sprintf("interval=%ds misses=%d offtime=%ds",
			cfg.IntervalSeconds, cfg.AllowedMisses, cfg.OfftimeSeconds))
	return nil
}

// StopWatchdog disarms the watchdog from any state.
func (d *Device) StopWatchdog() error {
	if err := d.exec(protocol.StopWatchdog); err != nil {
		return err
	}
	d.logWatchdog("", protocol.WatchdogNotRunning.String(), "stop")
	return nil
}

// Heartbeat resets the device's missed-heartbeat counter.
func (d *Device) Heartbeat() error {
	return d.exec(protocol.Heartbeat)
}

// WatchdogStatus reads the watchdog state.
func (d *Device) WatchdogStatus() (protocol.WatchdogStatus, error) {
	v, err := d.ask(protocol.ReadWatchdogStatus)
	if err != nil {
		return protocol.WatchdogNotRunning, err
	}
	return protocol.ParseWatchdogStatus(v.Uint)
}

// PowerCycle turns the watchdog outlet off for seconds, then back on.
func (d *Device) PowerCycle(seconds int) error {
	raw, err := protocol.EncodePowerCycle(seconds)
	if err != nil {
		return err
	}
	if err := d.send(protocol.PowerCycle, raw); err != nil {
		return err
	}
	d.logWatchdog("", protocol.WatchdogPowerCycling.String(), fmt.Sprintf("manual %ds", seconds))
	return nil
}

// PlannedPoweroff schedules the watchdog outlet to switch off after
// minutesToOff and back on minutesToOn later.
func (d *Device) PlannedPoweroff(minutesToOff, minutesToOn int) error {
	raw, err := protocol.EncodePlannedPoweroff(minutesToOff, minutesToOn)
	if err != nil {
		return err
	}
	if err := d.send(protocol.PlannedPoweroff, raw); err != nil {
		return err
	}
	d.logWatchdog("", protocol.WatchdogAboutToPowerOff.String(),
		fmt.Sprintf("off in %dm, on %dm later", minutesToOff, minutesToOn))
	return nil
}
