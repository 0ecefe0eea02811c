package protocol

import "fmt"

// WatchdogStatus is the device-side watchdog state.
type WatchdogStatus uint8

const (
	// WatchdogNotRunning is the initial state; no heartbeats are expected.
	WatchdogNotRunning WatchdogStatus = 0
	// WatchdogActive counts missed heartbeats.
	WatchdogActive WatchdogStatus = 1
	// WatchdogPowerCycling has the watchdog outlet switched off temporarily.
	WatchdogPowerCycling WatchdogStatus = 2
	// WatchdogAboutToPowerOff is waiting for a planned power-off.
	WatchdogAboutToPowerOff WatchdogStatus = 3
	// WatchdogOffAfterPowerOff has the outlet off during a planned power-off.
	WatchdogOffAfterPowerOff WatchdogStatus = 4
)

// ParseWatchdogStatus validates a raw status byte.
func ParseWatchdogStatus(v uint32) (WatchdogStatus, error) {
	if v > uint32(WatchdogOffAfterPowerOff) {
		return 0, fmt.Errorf("%w: invalid watchdog status %d", ErrProtocol, v)
	}
	return WatchdogStatus(v), nil
}

// String returns the state name.
func (s WatchdogStatus) String() string {
	switch s {
	case WatchdogNotRunning:
		return "NOT_RUNNING"
	case WatchdogActive:
		return "ACTIVE"
	case WatchdogPowerCycling:
		return "POWER_CYCLING"
	case WatchdogAboutToPowerOff:
		return "ABOUT_TO_POWER_OFF"
	case WatchdogOffAfterPowerOff:
		return "OFF_AFTER_POWER_OFF"
	default:
		return "UNKNOWN"
	}
}

// Description returns an operator-facing explanation of the state.
func (s WatchdogStatus) Description() string {
	switch s {
	case WatchdogNotRunning:
		return "Not running"
	case WatchdogActive:
		return "Active"
	case WatchdogPowerCycling:
		return "Power cycling"
	case WatchdogAboutToPowerOff:
		return "On but about to do a planned power off"
	case WatchdogOffAfterPowerOff:
		return "Off during planned power off, or not running right after a (planned) power off"
	default:
		return "Unknown"
	}
}

// Model is the hardware variant reported by the device.
type Model uint8

const (
	ModelUnknown   Model = 0
	ModelBasic     Model = 1
	ModelDigitalIO Model = 2
	ModelWatchdog  Model = 3
	ModelSmartPro  Model = 4
)

// ParseModel validates a raw model code.
func ParseModel(v uint32) (Model, error) {
	if v > uint32(ModelSmartPro) {
		return 0, fmt.Errorf("%w: invalid model code %d", ErrProtocol, v)
	}
	return Model(v), nil
}

// String returns the model display name.
func (m Model) String() string {
	switch m {
	case ModelUnknown:
		return "Unknown"
	case ModelBasic:
		return "Basic"
	case ModelDigitalIO:
		return "Digital IO"
	case ModelWatchdog:
		return "Watchdog"
	case ModelSmartPro:
		return "Smart Pro"
	default:
		return fmt.Sprintf("Model(%d)", uint8(m))
	}
}

// HasWatchdog reports whether the model carries the hardware watchdog.
// Unknown models are given the benefit of the doubt.
func (m Model) HasWatchdog() bool {
	return m == ModelWatchdog || m == ModelSmartPro || m == ModelUnknown
}

// FirmwareVersion is the two-byte firmware revision.
type FirmwareVersion struct {
	Major uint8
	Minor uint8
}

// ParseFirmwareVersion builds a version from the raw reply bytes.
func ParseFirmwareVersion(data []byte) (FirmwareVersion, error) {
	if len(data) < 2 {
		return FirmwareVersion{}, fmt.Errorf("%w: firmware reply has %d bytes, want 2", ErrProtocol, len(data))
	}
	return FirmwareVersion{Major: data[0], Minor: data[1]}, nil
}

// String returns the version as "major.minor".
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
