// Command pwrusb controls a PowerUSB power strip.
//
// Each invocation runs one command and releases the device again; the
// shell command keeps the device open for an interactive session.
//
// Usage:
//
//	pwrusb [flags] <command> [args]
//
// Flags:
//
//	-config string        YAML configuration file (log and device sections)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a CBOR capture of every exchange to this file
//	-simulate             Run against an in-memory strip instead of USB
//	-timeout duration     Per-transfer USB timeout (default 200ms)
//
// Examples:
//
//	# Switch outlet 2 on and make it come up on after a power loss
//	pwrusb port set 2 on
//	pwrusb port set 2 on --default
//
//	# Show the watchdog state
//	pwrusb watchdog status
//
//	# Explore the commands without hardware
//	pwrusb -simulate shell
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pwrusb/pwrusb-go/cmd/pwrusb/commands"
	"github.com/pwrusb/pwrusb-go/cmd/pwrusb/interactive"
	"github.com/pwrusb/pwrusb-go/internal/session"
	"github.com/pwrusb/pwrusb-go/pkg/config"
	"github.com/pwrusb/pwrusb-go/pkg/watchdog"
)

// Flags holds the command-line values.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	ProtocolLog string
	Simulate    bool
	Timeout     time.Duration
}

var flags Flags

func init() {
	def := config.Default()
	flag.StringVar(&flags.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&flags.LogLevel, "log-level", def.Log.Level, "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Capture file for protocol events (CBOR)")
	flag.BoolVar(&flags.Simulate, "simulate", false, "Use an in-memory strip instead of USB")
	flag.DurationVar(&flags.Timeout, "timeout", def.Device.Timeout, "Per-transfer USB timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pwrusb - PowerUSB power strip control\n\nUsage:\n  pwrusb [flags] <command> [args]\n\n")
		fmt.Fprint(os.Stderr, commands.Usage)
		fmt.Fprintf(os.Stderr, "\nInteractive:\n  shell                              Interactive shell\n\nFlags:\n")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(flags, set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pwrusb: %v\n", err)
		os.Exit(2)
	}
	logger := setupLogging(cfg.Log.Level)

	if err := run(cfg, logger, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pwrusb: %v\n", err)
		if errors.Is(err, commands.ErrUsage) {
			os.Exit(2)
		}
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

func run(cfg *config.File, logger *slog.Logger, args []string, w io.Writer) (err error) {
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

	if args[0] == "shell" {
		return runShell(sess)
	}
	return commands.Execute(sess.Device, args, w)
}

func runShell(sess *session.Session) error {
	sh, err := interactive.New(sess.Device, sess.Strip)
	if err != nil {
		return err
	}

	ctx, stop := watchdog.NotifyContext(context.Background())
	defer stop()

	fmt.Fprintf(sh.Stdout(), "Connected to %s\n", sess.Channel.Device())
	sh.Run(ctx)
	return nil
}
