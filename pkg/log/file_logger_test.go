package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerAppendsAndReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.stlog")

	first, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	first.Log(NewStateEvent("run-a", "", "INIT", ""))
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger (reopen) failed: %v", err)
	}
	second.Log(NewStateEvent("run-b", "", "INIT", ""))
	second.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 || events[0].RunID != "run-a" || events[1].RunID != "run-b" {
		t.Errorf("events = %+v", events)
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.stlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	logger.Log(NewStateEvent("run", "", "INIT", ""))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d after logging to a closed logger", info.Size())
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q", logger.Path())
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.stlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				logger.Log(NewFrameEvent("run", DirectionOut, []byte{0x14, 0x2D}))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != workers*perWorker {
		t.Errorf("read %d events, want %d", len(events), workers*perWorker)
	}
	if logger.Dropped() != 0 {
		t.Errorf("Dropped() = %d", logger.Dropped())
	}
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.stlog"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestReaderFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.stlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	status := uint16(0)
	events := []Event{
		{Timestamp: base, RunID: "a", Layer: LayerBus, Direction: DirectionOut, Frame: &FrameEvent{Size: 2}},
		{Timestamp: base.Add(time.Second), RunID: "a", Layer: LayerDevice, Direction: DirectionIn,
			Command: &CommandEvent{Operation: "GET_COMMAND_COUNT", Header: 0x14, Status: &status}},
		{Timestamp: base.Add(2 * time.Second), RunID: "b", Layer: LayerDevice, Direction: DirectionIn,
			Command: &CommandEvent{Operation: "PUT_COMMAND_AC_TABLE", Header: 0x10, Status: &status}},
		{Timestamp: base.Add(3 * time.Second), RunID: "b", Layer: LayerService, Category: CategoryState,
			StateChange: &StateChangeEvent{NewState: "DONE"}},
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	device := LayerDevice
	state := CategoryState
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"run", Filter{RunID: "a"}, 2},
		{"layer", Filter{Layer: &device}, 2},
		{"category", Filter{Category: &state}, 1},
		{"operation", Filter{Operation: "PUT_COMMAND_AC_TABLE"}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"no match", Filter{RunID: "c"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}
