package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stse-tools/stse-go/pkg/log"
)

func exportTestEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	return []log.Event{
		{
			Timestamp: ts,
			RunID:     "run-1",
			Direction: log.DirectionIn,
			Layer:     log.LayerDevice,
			Category:  log.CategoryMessage,
			Command: &log.CommandEvent{
				Operation: "GET_COMMAND_COUNT",
				Header:    0x14,
				Status:    statusPtr(0),
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			RunID:     "run-1",
			Layer:     log.LayerService,
			Category:  log.CategoryProvisioning,
			Slot:      &log.SlotEvent{Slot: 4, Outcome: "FAILED", Status: 0x01},
		},
	}
}

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, exportTestEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if first["RunID"] != "run-1" {
		t.Errorf("expected RunID run-1, got %v", first["RunID"])
	}
	cmd, ok := first["Command"].(map[string]any)
	if !ok {
		t.Fatalf("expected Command object, got %v", first["Command"])
	}
	if cmd["Operation"] != "GET_COMMAND_COUNT" {
		t.Errorf("unexpected operation: %v", cmd["Operation"])
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, exportTestEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 records, got %d", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if got := records[1]; got[5] != "GET_COMMAND_COUNT" || got[6] != "0x00" {
		t.Errorf("unexpected command record: %v", got)
	}
	if got := records[2]; got[5] != "Slot" || got[6] != "0x0001" || got[7] != "4:FAILED" {
		t.Errorf("unexpected slot record: %v", got)
	}
}

func TestExportWithFilter(t *testing.T) {
	path := createTestLogFile(t, exportTestEvents())
	category := log.CategoryProvisioning

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{Category: &category}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
		t.Errorf("expected 1 line, got %d", len(lines))
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, exportTestEvents())
	if err := RunExport(path, "xml", log.Filter{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
