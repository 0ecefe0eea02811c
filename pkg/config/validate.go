package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// MaxTimeout caps the bulk transfer timeout.
const MaxTimeout = 10 * time.Second

// Validate checks ranges. It does not modify the configuration.
func (c *File) Validate() error {
	if c.Watchdog.Period < 1 || c.Watchdog.Period > protocol.MaxByteParam {
		return fmt.Errorf("%w: watchdog.period %d out of range 1..%d",
			protocol.ErrInvalidArgument, c.Watchdog.Period, protocol.MaxByteParam)
	}
	if err := c.WatchdogConfig().Validate(); err != nil {
		return fmt.Errorf("watchdog: %w", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Device.Timeout <= 0 || c.Device.Timeout > MaxTimeout {
		return fmt.Errorf("%w: device.timeout %s out of range (0, %s]",
			protocol.ErrInvalidArgument, c.Device.Timeout, MaxTimeout)
	}
	return nil
}

// ParseLevel maps a level name to an slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log level %q (want debug, info, warn or error)",
			protocol.ErrInvalidArgument, s)
	}
}
