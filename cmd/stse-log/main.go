// Command stse-log inspects provisioning trace files.
//
// Trace files are written by stse-prov and stse-sim when run with the
// -protocol-log flag. They hold a CBOR stream of bus frames, decoded
// device commands, run state changes and key slot outcomes.
//
// Usage:
//
//	stse-log <command> [flags] <file.stlog>
//
// Examples:
//
//	# View the device commands of one run
//	stse-log view -layer device -run-id 3f2a9c1e run.stlog
//
//	# Export failed slots to CSV
//	stse-log export -format csv -category provisioning run.stlog
//
//	# Keep only one run
//	stse-log filter -run-id 3f2a9c1e -o single.stlog run.stlog
//
//	# Show statistics
//	stse-log stats run.stlog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/stse-tools/stse-go/cmd/stse-log/commands"
)

const usage = `stse-log - secure element provisioning trace analyzer

Usage:
  stse-log <command> [flags] <file.stlog>

Commands:
  view     Print events in human-readable form
  export   Export events as JSON lines or CSV
  filter   Write matching events to a new trace file
  stats    Show statistics about the trace file

Use "stse-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set whose usage text starts with summary.
func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "stse-log %s - %s\n\nUsage:\n  stse-log %s [flags] <file.stlog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the event selection flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.RunID, "run-id", "", "Filter by run or bridge connection ID")
	fs.StringVar(&opts.Operation, "operation", "", "Filter by device operation (e.g. PUT_COMMAND_AC_TABLE)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (bus, device, service)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, provisioning, state, error)")
	return opts
}

// tracePath parses args and returns the single positional trace file.
func tracePath(fs *flag.FlagSet, args []string) string {
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

func runView(args []string) error {
	fs := newFlagSet("view", "Print events in human-readable form")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Export events as JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	filter, err := opts.Build()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return commands.RunExport(path, *format, filter, w)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Write matching events to a new trace file")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := tracePath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	return commands.RunFilter(path, *output, filter, os.Stdout)
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Show statistics about the trace file")
	path := tracePath(fs, args)
	return commands.RunStats(path, os.Stdout)
}
