// Command pwrusb-log views and analyzes PowerUSB capture files.
//
// Capture files are written by pwrusb and pwrusb-watchdog when run with
// the -protocol-log flag.
//
// Usage:
//
//	pwrusb-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON lines or CSV
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	pwrusb-log view watchdog.plog
//
//	# View only heartbeats
//	pwrusb-log view -opcode Heartbeat watchdog.plog
//
//	# View only replies read from the device
//	pwrusb-log view -direction in watchdog.plog
//
//	# Keep only the errors of one session
//	pwrusb-log filter -category error -session 3f2a9c1e-... -o errors.plog watchdog.plog
//
//	# Show statistics
//	pwrusb-log stats watchdog.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pwrusb/pwrusb-go/cmd/pwrusb-log/commands"
)

const usage = `pwrusb-log - PowerUSB Capture Analyzer

Usage:
  pwrusb-log <command> [flags] <file.plog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSON lines or CSV
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "pwrusb-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterFlags {
	f := &commands.FilterFlags{}
	fs.StringVar(&f.Session, "session", "", "Filter by session ID")
	fs.StringVar(&f.Layer, "layer", "", "Filter by layer (transport, protocol, host)")
	fs.StringVar(&f.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&f.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&f.Opcode, "opcode", "", "Filter by opcode (command name, 0x94, or 148)")
	fs.StringVar(&f.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&f.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return f
}

// parseArgs parses fs and returns the capture path, exiting on misuse.
func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `pwrusb-log view - View capture file in human-readable format

Usage:
  pwrusb-log view [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}
	ff := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := ff.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `pwrusb-log export - Export capture file to JSON lines or CSV

Usage:
  pwrusb-log export [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	ff := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := ff.Build()
	if err != nil {
		fail(err)
	}
	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `pwrusb-log filter - Filter capture file and write to new file

Usage:
  pwrusb-log filter [flags] -o <out.plog> <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}
	output := fs.String("o", "", "Output file (required)")
	ff := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := ff.Build()
	if err != nil {
		fail(err)
	}
	n, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `pwrusb-log stats - Show statistics about the capture file

Usage:
  pwrusb-log stats <file.plog>

`)
	}
	path := parseArgs(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
