// Command pwrusb-watchdog keeps a PowerUSB watchdog fed.
//
// It sends a heartbeat to the strip once per period until it receives
// SIGINT or SIGTERM. On the way out it always stops the device watchdog
// and then releases the device, also when a transfer fails, so the
// protected machine is not power-cycled by accident.
//
// Usage:
//
//	pwrusb-watchdog [flags]
//
// Flags:
//
//	-init               Stop and restart the device watchdog before the first heartbeat
//	-period int         Heartbeat period in seconds, 1-255 (default 60)
//	-misses int         Heartbeats the device may miss before cycling (default 2)
//	-offtime int        Seconds the outlet stays off when cycled (default 2)
//	-config string      YAML configuration file; flags given explicitly win
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a CBOR capture of every exchange to this file
//	-simulate           Run against an in-memory strip instead of USB
//	-timeout duration   Per-transfer USB timeout (default 200ms)
//
// Examples:
//
//	# Re-arm the watchdog with a 30 second period and feed it
//	pwrusb-watchdog -init -period 30 -misses 3
//
//	# Use a config file and record a capture for pwrusb-log
//	pwrusb-watchdog -config /etc/pwrusb.yaml -protocol-log /var/log/pwrusb.plog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pwrusb/pwrusb-go/internal/session"
	"github.com/pwrusb/pwrusb-go/pkg/config"
	"github.com/pwrusb/pwrusb-go/pkg/watchdog"
)

// Flags holds the command-line values.
type Flags struct {
	Init        bool
	Period      int
	Misses      int
	Offtime     int
	ConfigFile  string
	LogLevel    string
	ProtocolLog string
	Simulate    bool
	Timeout     time.Duration
}

var flags Flags

func init() {
	def := config.Default()
	flag.BoolVar(&flags.Init, "init", false, "Stop and restart the device watchdog before the first heartbeat")
	flag.IntVar(&flags.Period, "period", def.Watchdog.Period, "Heartbeat period in seconds (1-255)")
	flag.IntVar(&flags.Misses, "misses", def.Watchdog.Misses, "Heartbeats the device may miss before cycling (0-255)")
	flag.IntVar(&flags.Offtime, "offtime", def.Watchdog.Offtime, "Seconds the outlet stays off when cycled (0-255)")
	flag.StringVar(&flags.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&flags.LogLevel, "log-level", def.Log.Level, "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Capture file for protocol events (CBOR)")
	flag.BoolVar(&flags.Simulate, "simulate", false, "Use an in-memory strip instead of USB")
	flag.DurationVar(&flags.Timeout, "timeout", def.Device.Timeout, "Per-transfer USB timeout")
}

func main() {
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(flags, set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pwrusb-watchdog: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogging(cfg.Log.Level)

	ctx, stop := watchdog.NotifyContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("watchdog exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig starts from the file (or defaults) and applies every flag
// that was set explicitly.
func loadConfig(f Flags, set map[string]bool) (*config.File, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return nil, err
		}
	}

	if set["init"] {
		cfg.Watchdog.Init = f.Init
	}
	if set["period"] {
		cfg.Watchdog.Period = f.Period
	}
	if set["misses"] {
		cfg.Watchdog.Misses = f.Misses
	}
	if set["offtime"] {
		cfg.Watchdog.Offtime = f.Offtime
	}
	if set["log-level"] {
		cfg.Log.Level = f.LogLevel
	}
	if set["protocol-log"] {
		cfg.Log.ProtocolLog = f.ProtocolLog
	}
	if set["simulate"] {
		cfg.Device.Simulate = f.Simulate
	}
	if set["timeout"] {
		cfg.Device.Timeout = f.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// run opens the device and feeds the watchdog until ctx is done. The
// driver owns stop-then-release of the device; the session only closes
// what is left (bus, capture file) afterwards.
func run(ctx context.Context, cfg *config.File, logger *slog.Logger) (err error) {
	sess, err := session.Open(session.Options{
		Simulate:    cfg.Device.Simulate,
		Timeout:     cfg.Device.Timeout,
		ProtocolLog: cfg.Log.ProtocolLog,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	drv, err := watchdog.New(sess.Device, watchdog.Config{
		Watchdog:       cfg.WatchdogConfig(),
		Init:           cfg.Watchdog.Init,
		Logger:         logger,
		ProtocolLogger: sess.Capture(),
		SessionID:      sess.SessionID(),
	})
	if err != nil {
		// The device is open but the loop never started; the session
		// closes it, and the watchdog state is left as found.
		return err
	}

	logger.Info("pwrusb watchdog",
		"device", sess.Channel.Device(),
		"period", drv.Period(),
		"init", cfg.Watchdog.Init,
		"simulated", cfg.Device.Simulate)

	return drv.Run(ctx)
}
