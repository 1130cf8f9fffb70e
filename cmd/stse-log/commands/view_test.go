package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stse-tools/stse-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.stlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func statusPtr(s uint16) *uint16 { return &s }

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		RunID:     "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionOut,
		Layer:     log.LayerBus,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size: 2,
			Data: []byte{0x14, 0x2d},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[run:abc12345]",
		"OUT",
		"BUS",
		"Frame",
		"Size: 2 bytes",
		"Data: 142d",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatCommandEvent(t *testing.T) {
	d := 1500 * time.Microsecond
	event := log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC),
		RunID:     "run-1",
		Direction: log.DirectionIn,
		Layer:     log.LayerDevice,
		Category:  log.CategoryMessage,
		Command: &log.CommandEvent{
			Operation: "PUT_COMMAND_AC_TABLE",
			Header:    0x15,
			Tags:      []byte{0x2a},
			Status:    statusPtr(0x08),
			Duration:  &d,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"[run:run-1]",
		"PUT_COMMAND_AC_TABLE",
		"Header: 0x15",
		"Tags: 2A",
		"Status: ACCESS_CONDITION_NOT_SATISFIED (0x08)",
		"Duration: 1.500ms",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatStateAndSlotEvents(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: "APPLIED_AC",
			NewState: "FAILED",
			Reason:   "put encryption table",
		},
	})
	formatEvent(&buf, log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryProvisioning,
		Slot:     &log.SlotEvent{Slot: 3, Outcome: "FAILED", Status: 0x6a82},
	})
	output := buf.String()

	for _, want := range []string{
		"APPLIED_AC -> FAILED",
		"Reason: put encryption table",
		"Slot 3: FAILED (status 0x6A82)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatErrorEvent(t *testing.T) {
	code := 8
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Layer:    log.LayerService,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: "access condition not satisfied",
			Code:    &code,
			Context: "APPLIED_AC",
		},
	})
	output := buf.String()

	for _, want := range []string{"Error", "Code: 0x0008", "Context: APPLIED_AC"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestShortenID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc12345-6789", "abc12345"},
		{"short", "short"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortenID(tt.in); got != tt.want {
			t.Errorf("shortenID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{2333 * time.Microsecond, "2.333ms"},
		{1500 * time.Millisecond, "1.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("DEVICE"); err != nil || l != log.LayerDevice {
		t.Errorf("ParseLayerFlag(DEVICE) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("in"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirectionFlag(in) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("Provisioning"); err != nil || c != log.CategoryProvisioning {
		t.Errorf("ParseCategoryFlag(Provisioning) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	filter, err := FilterOptions{
		RunID:     "run-1",
		Operation: "GET_COMMAND_COUNT",
		TimeStart: "2026-01-28T10:00:00Z",
		Layer:     "device",
		Direction: "in",
	}.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if filter.RunID != "run-1" || filter.Operation != "GET_COMMAND_COUNT" {
		t.Errorf("unexpected filter: %+v", filter)
	}
	if filter.TimeStart == nil || filter.TimeEnd != nil {
		t.Errorf("unexpected time range: %v %v", filter.TimeStart, filter.TimeEnd)
	}
	if filter.Layer == nil || *filter.Layer != log.LayerDevice {
		t.Errorf("unexpected layer: %v", filter.Layer)
	}
	if filter.Direction == nil || *filter.Direction != log.DirectionIn {
		t.Errorf("unexpected direction: %v", filter.Direction)
	}
	if filter.Category != nil {
		t.Errorf("expected no category, got %v", *filter.Category)
	}

	if _, err := (FilterOptions{TimeEnd: "yesterday"}).Build(); err == nil {
		t.Error("expected error for bad time-end")
	}
}

func TestRunViewFiltersByRun(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, []log.Event{
		{Timestamp: ts, RunID: "run-aaaa1", Layer: log.LayerService, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{NewState: "DEVICE_READY"}},
		{Timestamp: ts, RunID: "run-bbbb2", Layer: log.LayerService, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{NewState: "DONE"}},
	})

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{RunID: "run-aaaa1"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "DEVICE_READY") {
		t.Errorf("expected DEVICE_READY, got: %s", output)
	}
	if strings.Contains(output, "DONE") {
		t.Errorf("expected run-bbbb2 to be filtered out, got: %s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView(filepath.Join(t.TempDir(), "missing.stlog"), log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
