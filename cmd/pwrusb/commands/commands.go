// Package commands implements the pwrusb subcommands. The same dispatcher
// serves one-shot invocations and the interactive shell.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pwrusb/pwrusb-go/pkg/powerusb"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

// Usage lists the subcommands.
const Usage = `Outlets:
  port get <1-3> [--default]         Show outlet state (or power-up default)
  port set <1-3> <on|off> [--default] Switch outlet (or change power-up default)
  ports                              Show all outlets
  all <on|off>                       Switch every outlet

Current:
  current                            Instantaneous current (mA)
  total                              Cumulative current counter
  reset-total                        Reset the cumulative counter

Device:
  firmware                           Firmware version
  model                              Hardware model
  info                               Firmware and model

Watchdog:
  watchdog status                    Watchdog state
  watchdog start [period] [misses] [offtime]
                                     Arm the watchdog (defaults 60 2 2)
  watchdog stop                      Disarm the watchdog
  watchdog heartbeat                 Send one heartbeat
  watchdog cycle <seconds>           Power-cycle the watchdog outlet
  watchdog poweroff <off-min> <on-min>
                                     Planned power-off, then power on again
`

// Execute runs one subcommand against dev and writes its output to w.
func Execute(dev *powerusb.Device, args []string, w io.Writer) error {
	if len(args) == 0 {
		return usageErr("missing command")
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "port":
		return cmdPort(dev, rest, w)
	case "ports":
		return cmdPorts(dev, w)
	case "all":
		return cmdAll(dev, rest, w)
	case "current":
		return cmdCurrent(dev, w)
	case "total":
		return cmdTotal(dev, w)
	case "reset-total":
		if err := dev.ResetTotalCurrent(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Cumulative current reset")
		return nil
	case "firmware":
		fw, err := dev.FirmwareVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Firmware: %s\n", fw)
		return nil
	case "model":
		m, err := dev.Model()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Model: %s\n", m)
		return nil
	case "info":
		return cmdInfo(dev, w)
	case "watchdog", "wd":
		return cmdWatchdog(dev, rest, w)
	default:
		return usageErr("unknown command %q", cmd)
	}
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// splitDefault removes a --default (or -d) flag from args.
func splitDefault(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	persistent := false
	for _, a := range args {
		switch a {
		case "--default", "-default", "-d":
			persistent = true
		default:
			out = append(out, a)
		}
	}
	return out, persistent
}

// parsePort parses an outlet number. Range errors are InvalidArgument so
// they read the same as the device layer's.
func parsePort(s string) (protocol.Port, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageErr("port must be a number, got %q", s)
	}
	if n < 1 || n > protocol.NumPorts {
		return 0, fmt.Errorf("%w: port %d out of range 1..%d", protocol.ErrInvalidArgument, n, protocol.NumPorts)
	}
	return protocol.Port(n), nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usageErr("%s must be a number, got %q", name, s)
	}
	return n, nil
}

func cmdPort(dev *powerusb.Device, args []string, w io.Writer) error {
	args, persistent := splitDefault(args)
	if len(args) < 2 {
		return usageErr("port get|set <1-3> ...")
	}

	port, err := parsePort(args[1])
	if err != nil {
		return err
	}
	label := "state"
	if persistent {
		label = "default"
	}

	switch args[0] {
	case "get":
		state, err := dev.GetPort(port, persistent)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Port %d %s: %s\n", port, label, state)
		return nil
	case "set":
		if len(args) < 3 {
			return usageErr("port set <1-3> <on|off>")
		}
		state, err := protocol.ParsePortState(args[2])
		if err != nil {
			return err
		}
		if err := dev.SetPort(port, state, persistent); err != nil {
			return err
		}
		fmt.Fprintf(w, "Port %d %s: %s\n", port, label, state)
		return nil
	default:
		return usageErr("unknown port action %q", args[0])
	}
}

func cmdPorts(dev *powerusb.Device, w io.Writer) error {
	statuses, err := dev.PortStatuses()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSTATE\tDEFAULT")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Port, s.State, s.Default)
	}
	return tw.Flush()
}

func cmdAll(dev *powerusb.Device, args []string, w io.Writer) error {
	if len(args) < 1 {
		return usageErr("all <on|off>")
	}
	state, err := protocol.ParsePortState(args[0])
	if err != nil {
		return err
	}
	if err := dev.SetAllPorts(state); err != nil {
		return err
	}
	fmt.Fprintf(w, "All ports: %s\n", state)
	return nil
}

func cmdCurrent(dev *powerusb.Device, w io.Writer) error {
	ma, err := dev.Current()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Current: %d mA\n", ma)
	return nil
}

func cmdTotal(dev *powerusb.Device, w io.Writer) error {
	total, err := dev.TotalCurrent()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Cumulative current: %d\n", total)
	return nil
}

func cmdInfo(dev *powerusb.Device, w io.Writer) error {
	info, err := dev.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Firmware: %s\n", info.Firmware)
	fmt.Fprintf(w, "Model:    %s\n", info.Model)
	if !info.Model.HasWatchdog() {
		fmt.Fprintln(w, "          (no watchdog on this model)")
	}
	return nil
}

func cmdWatchdog(dev *powerusb.Device, args []string, w io.Writer) error {
	if len(args) == 0 {
		return usageErr("watchdog status|start|stop|heartbeat|cycle|poweroff")
	}

	switch args[0] {
	case "status":
		st, err := dev.WatchdogStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Watchdog: %s (%s)\n", st, st.Description())
		return nil

	case "start":
		cfg := protocol.DefaultWatchdogConfig()
		fields := []*int{&cfg.IntervalSeconds, &cfg.AllowedMisses, &cfg.OfftimeSeconds}
		names := []string{"period", "misses", "offtime"}
		if len(args)-1 > len(fields) {
			return usageErr("watchdog start [period] [misses] [offtime]")
		}
		for i, a := range args[1:] {
			n, err := parseInt(names[i], a)
			if err != nil {
				return err
			}
			*fields[i] = n
		}
		if err := dev.StartWatchdog(cfg); err != nil {
			return err
		}
		fmt.Fprintf(w, "Watchdog started: period %ds, %d misses, offtime %ds\n",
			cfg.IntervalSeconds, cfg.AllowedMisses, cfg.OfftimeSeconds)
		return nil

	case "stop":
		if err := dev.StopWatchdog(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Watchdog stopped")
		return nil

	case "heartbeat", "hb":
		if err := dev.Heartbeat(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Heartbeat sent")
		return nil

	case "cycle":
		if len(args) < 2 {
			return usageErr("watchdog cycle <seconds>")
		}
		secs, err := parseInt("seconds", args[1])
		if err != nil {
			return err
		}
		if err := dev.PowerCycle(secs); err != nil {
			return err
		}
		fmt.Fprintf(w, "Power cycle: off for %ds\n", secs)
		return nil

	case "poweroff":
		if len(args) < 3 {
			return usageErr("watchdog poweroff <off-minutes> <on-minutes>")
		}
		off, err := parseInt("off-minutes", args[1])
		if err != nil {
			return err
		}
		on, err := parseInt("on-minutes", args[2])
		if err != nil {
			return err
		}
		if err := dev.PlannedPoweroff(off, on); err != nil {
			return err
		}
		fmt.Fprintf(w, "Planned power-off in %d min, back on after %d min\n", off, on)
		return nil

	default:
		return usageErr("unknown watchdog action %q", args[0])
	}
}
