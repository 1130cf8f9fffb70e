package report

import (
	"fmt"
	"io"

	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/provision"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
)

// TextReporter writes the terminal report.
type TextReporter struct {
	writer io.Writer
	opts   Options
}

// NewTextReporter creates a text reporter writing to w.
func NewTextReporter(w io.Writer, opts Options) *TextReporter {
	return &TextReporter{writer: w, opts: opts}
}

// ReportTable writes records as a five-column table:
//
//	HEADER | EXT-HEADER |    AC   | CMDEnc | RSPEnc
func (r *TextReporter) ReportTable(title string, cr policy.ChangeRights, records []policy.Record) {
	fmt.Fprintf(r.writer, "\n - %s (AC CR=%d / Enc CR=%d)\n", title, cr.AccessCondition, cr.Encryption)
	fmt.Fprintf(r.writer, "\n  HEADER | EXT-HEADER |    AC    | CMDEnc | RSPEnc |")
	if r.opts.Names != nil {
		fmt.Fprintf(r.writer, " NAME")
	}
	fmt.Fprintln(r.writer)

	for _, rec := range records {
		fmt.Fprintf(r.writer, "   0x%02X | %s | %s | %s | %s |",
			rec.Header, extHeader(rec), acLabel(rec.AccessCondition),
			flagLabel(rec.Encryption, rec.CommandEncrypted()), flagLabel(rec.Encryption, rec.ResponseEncrypted()))
		if r.opts.Names != nil {
			fmt.Fprintf(r.writer, " %s", r.opts.Names[rec.Opcode()])
		}
		fmt.Fprintln(r.writer)
	}
}

// ReportChanges writes one line per changed command.
func (r *TextReporter) ReportChanges(changes []policy.Change) {
	if len(changes) == 0 {
		fmt.Fprintf(r.writer, "\n - No command policy changes\n")
		return
	}
	fmt.Fprintf(r.writer, "\n - %d command policy change(s)\n", len(changes))
	for _, c := range changes {
		switch {
		case c.Before == nil:
			fmt.Fprintf(r.writer, "   %-10s added   %s\n", c.Opcode, describe(*c.After))
		case c.After == nil:
			fmt.Fprintf(r.writer, "   %-10s removed %s\n", c.Opcode, describe(*c.Before))
		default:
			fmt.Fprintf(r.writer, "   %-10s %s -> %s\n", c.Opcode, describe(*c.Before), describe(*c.After))
		}
	}
}

// ReportSlots writes one line per key slot.
func (r *TextReporter) ReportSlots(results []provision.SlotResult) {
	fmt.Fprintln(r.writer)
	for _, res := range results {
		fmt.Fprintf(r.writer, " - Put slot %d provisioning ctrl fields : %s\n", res.Slot, r.slotText(res))
	}
}

// ReportSummary writes run totals.
func (r *TextReporter) ReportSummary(s Summary) {
	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	rows := []struct {
		label string
		n     int
	}{
		{"Tables applied:", s.TablesApplied},
		{"Tables unchanged:", s.TablesUnchanged},
		{"Slots applied:", s.SlotsApplied},
		{"Slots already configured:", s.SlotsAlreadyConfigured},
		{"Slots failed:", s.SlotsFailed},
	}
	for _, row := range rows {
		fmt.Fprintf(r.writer, "%-26s %d\n", row.label, row.n)
	}
}

func (r *TextReporter) slotText(res provision.SlotResult) string {
	switch res.Outcome {
	case provision.Applied:
		return r.paint(ansiGreen, "OK")
	case provision.AlreadyConfigured:
		return r.paint(ansiCyan, "Already done")
	default:
		if res.Status == 0 && res.Err != nil {
			return r.paint(ansiRed, "Error "+res.Err.Error())
		}
		return r.paint(ansiRed, fmt.Sprintf("Error 0x%04X", uint16(res.Status)))
	}
}

func (r *TextReporter) paint(color, s string) string {
	if !r.opts.Color {
		return s
	}
	return color + s + ansiReset
}

func describe(rec policy.Record) string {
	return fmt.Sprintf("AC=%s enc=%s", rec.AccessCondition, rec.Encryption)
}
