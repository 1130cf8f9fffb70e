package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Commands          map[string]*CommandStats
	Runs              map[string]*TraceRunStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// CommandStats counts the responses of one device operation.
type CommandStats struct {
	Responses     int
	Failures      int
	TotalDuration time.Duration
}

// TraceRunStats holds statistics for one provisioning run or bridge
// connection.
type TraceRunStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	FinalState string
	Slots      map[string]int // keyed by outcome
}

// CollectStats reads every event of path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Commands:          make(map[string]*CommandStats),
		Runs:              make(map[string]*TraceRunStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	run, ok := s.Runs[event.RunID]
	if !ok {
		run = &TraceRunStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Slots:     make(map[string]int),
		}
		s.Runs[event.RunID] = run
	}
	run.Events++
	if event.Timestamp.After(run.LastSeen) {
		run.LastSeen = event.Timestamp
	}

	switch {
	case event.Command != nil && event.Command.Status != nil:
		cmd, ok := s.Commands[event.Command.Operation]
		if !ok {
			cmd = &CommandStats{}
			s.Commands[event.Command.Operation] = cmd
		}
		cmd.Responses++
		if !stse.Status(*event.Command.Status).IsSuccess() {
			cmd.Failures++
		}
		if event.Command.Duration != nil {
			cmd.TotalDuration += *event.Command.Duration
		}
	case event.StateChange != nil:
		run.FinalState = event.StateChange.NewState
	case event.Slot != nil:
		run.Slots[event.Slot.Outcome]++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats prints statistics about the trace file to w.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Provisioning Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerBus, log.LayerDevice, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryProvisioning, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Commands) > 0 {
		fmt.Fprintln(w, "Device Commands:")
		ops := make([]string, 0, len(stats.Commands))
		for op := range stats.Commands {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			c := stats.Commands[op]
			avg := c.TotalDuration / time.Duration(c.Responses)
			fmt.Fprintf(w, "  %-36s %d responses, %d failed, avg %s\n", op, c.Responses, c.Failures, formatDuration(avg))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *TraceRunStats
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(r.id), r.stats.Events, duration)
			if r.stats.FinalState != "" {
				fmt.Fprintf(w, "           State: %s\n", r.stats.FinalState)
			}
			if len(r.stats.Slots) > 0 {
				fmt.Fprintf(w, "           Slots: %d applied, %d already configured, %d failed\n",
					r.stats.Slots["APPLIED"], r.stats.Slots["ALREADY_CONFIGURED"], r.stats.Slots["FAILED"])
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
