// Package interactive provides the interactive command-line interface
// for pwrusb.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/pwrusb/pwrusb-go/cmd/pwrusb/commands"
	"github.com/pwrusb/pwrusb-go/pkg/powerusb"
	"github.com/pwrusb/pwrusb-go/pkg/protocol"
	"github.com/pwrusb/pwrusb-go/pkg/simulator"
)

// lineReader is the part of *readline.Instance the shell uses. Close must
// make a blocked Readline return.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// Shell handles interactive mode for pwrusb.
type Shell struct {
	dev       *powerusb.Device
	rl        lineReader
	out       io.Writer
	closeOnce sync.Once

	// Simulated strip, nil on real hardware.
	strip *simulator.PowerStrip
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("port",
		readline.PcItem("get"),
		readline.PcItem("set"),
	),
	readline.PcItem("ports"),
	readline.PcItem("all",
		readline.PcItem("on"),
		readline.PcItem("off"),
	),
	readline.PcItem("current"),
	readline.PcItem("total"),
	readline.PcItem("reset-total"),
	readline.PcItem("firmware"),
	readline.PcItem("model"),
	readline.PcItem("info"),
	readline.PcItem("watchdog",
		readline.PcItem("status"),
		readline.PcItem("start"),
		readline.PcItem("stop"),
		readline.PcItem("heartbeat"),
		readline.PcItem("cycle"),
		readline.PcItem("poweroff"),
	),
	readline.PcItem("sim",
		readline.PcItem("advance"),
		readline.PcItem("state"),
	),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)

// New creates a shell on a terminal. strip may be nil.
func New(dev *powerusb.Device, strip *simulator.PowerStrip) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pwrusb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(dev, strip, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(dev *powerusb.Device, strip *simulator.PowerStrip, out io.Writer) *Shell {
	return &Shell{dev: dev, strip: strip, out: out}
}

// Stdout returns a writer that properly coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx is done. Cancelling ctx also
// interrupts a pending Readline.
func (s *Shell) Run(ctx context.Context) {
	done := make(chan struct{})
	defer func() {
		close(done)
		s.closeReader()
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.closeReader()
		case <-done:
		}
	}()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && ctx.Err() == nil {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if s.Handle(line) {
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
	}
}

func (s *Shell) closeReader() {
	s.closeOnce.Do(func() { _ = s.rl.Close() })
}

// Handle executes one input line and reports whether the shell should exit.
func (s *Shell) Handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "help", "?":
		s.printHelp()
	case "quit", "exit", "q":
		return true
	case "sim":
		s.cmdSim(parts[1:])
	default:
		if err := commands.Execute(s.dev, parts, s.out); err != nil {
			s.printError(err)
		}
	}
	return false
}

func (s *Shell) printError(err error) {
	switch {
	case errors.Is(err, commands.ErrUsage):
		fmt.Fprintf(s.out, "Error: %v (type 'help' for commands)\n", err)
	case errors.Is(err, protocol.ErrIOTimeout):
		fmt.Fprintf(s.out, "Error: %v (is the strip still connected?)\n", err)
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "\nPowerUSB Commands:")
	fmt.Fprint(s.out, commands.Usage)
	if s.strip != nil {
		fmt.Fprint(s.out, `
Simulation:
  sim advance <duration>             Move the simulated clock (e.g. 90s, 5m)
  sim state                          Show simulated watchdog and outlet
`)
	}
	fmt.Fprintln(s.out, `
  help                               Show this help
  quit                               Exit`)
}

func (s *Shell) cmdSim(args []string) {
	if s.strip == nil {
		fmt.Fprintln(s.out, "Not running against the simulator")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: sim advance <duration> | sim state")
		return
	}

	switch args[0] {
	case "advance":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: sim advance <duration>")
			return
		}
		d, err := time.ParseDuration(args[1])
		if err != nil || d < 0 {
			fmt.Fprintf(s.out, "Invalid duration: %s\n", args[1])
			return
		}
		cycles := s.strip.PowerCycles()
		s.strip.Advance(d)
		fmt.Fprintf(s.out, "Advanced %s (elapsed %s)\n", d, s.strip.Elapsed())
		if n := s.strip.PowerCycles() - cycles; n > 0 {
			fmt.Fprintf(s.out, "Watchdog tripped %d time(s)\n", n)
		}
		s.printSimState()
	case "state":
		s.printSimState()
	default:
		fmt.Fprintf(s.out, "Unknown sim action: %s\n", args[0])
	}
}

func (s *Shell) printSimState() {
	outlet := protocol.PortStateFromBool(s.strip.WatchdogOutlet())
	st := s.strip.WatchdogStatus()
	fmt.Fprintf(s.out, "Watchdog: %s, outlet %s, heartbeats %d, power cycles %d\n",
		st, outlet, s.strip.Heartbeats(), s.strip.PowerCycles())
}
