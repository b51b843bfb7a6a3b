package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, minLevel EventLevel) *EventLogger {
	t.Helper()
	logger, err := NewEventLogger(t.TempDir(), "plan", "run-1", minLevel)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", len(events)+1, err)
		}
		events = append(events, e)
	}
	return events
}

func TestNewEventLogger(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	if _, err := os.Stat(logger.Path()); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.Path())
	}
	name := filepath.Base(logger.Path())
	if !strings.HasPrefix(name, "events-plan-") || !strings.HasSuffix(name, ".jsonl") {
		t.Errorf("Event log filename format incorrect: %s", name)
	}
}

func TestEventLogger_StampsRunIDAndTimestamp(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	if err := logger.Log(&Event{Level: LevelInfo, Event: EventPlan, SrcPath: "/in/a.jpg"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", events[0].RunID)
	}
	if time.Since(events[0].Timestamp) > 5*time.Second {
		t.Errorf("Timestamp not auto-set: %v", events[0].Timestamp)
	}
}

func TestEventLogger_Helpers(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	logger.LogPlan("Photo", "/in/a.jpg", "/out/a.jpg", "Copy", "Exif")
	logger.LogDuplicate("Photo", "/in/b.jpg", "/in/a.jpg", "abc123")
	logger.LogCollision("Photo", "/in/c/a.jpg", "/out/a.jpg", "/out/a_2.jpg")
	logger.LogApply("Video", "/in/v.avi", "/out/v.mp4", "ConvertVideo", 2048, 1500*time.Millisecond, errors.New("ffmpeg exited 1"))
	logger.LogSkip("Photo", "/in/a.jpg", "/out/a.jpg", "exists")
	logger.LogError(EventWalkError, "/in/locked", errors.New("permission denied"))
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 6 {
		t.Fatalf("Expected 6 events, got %d", len(events))
	}

	if events[0].Event != EventPlan || events[0].DateSource != "Exif" {
		t.Errorf("plan event = %+v", events[0])
	}
	if events[1].DuplicateOf != "/in/a.jpg" || events[1].Extra["digest"] != "abc123" {
		t.Errorf("duplicate event = %+v", events[1])
	}
	if events[2].Level != LevelWarning || events[2].DestPath != "/out/a_2.jpg" {
		t.Errorf("collision event = %+v", events[2])
	}
	if events[3].Level != LevelError || events[3].Duration != 1500 || events[3].BytesWritten != 2048 {
		t.Errorf("apply event = %+v", events[3])
	}
	if events[4].Event != EventSkip || events[4].Reason != "exists" {
		t.Errorf("skip event = %+v", events[4])
	}
	if events[5].Event != EventWalkError || events[5].Error != "permission denied" {
		t.Errorf("error event = %+v", events[5])
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger := newTestLogger(t, LevelDebug)

	const numGoroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				if err := logger.Log(&Event{Level: LevelInfo, Event: EventApply}); err != nil {
					t.Errorf("Concurrent log failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readEvents(t, logger.Path())); got != numGoroutines*eventsPerGoroutine {
		t.Errorf("Expected %d events, got %d", numGoroutines*eventsPerGoroutine, got)
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.Log(&Event{Level: LevelInfo, Event: EventPlan}); err != nil {
		t.Errorf("NullLogger.Log should not return error, got: %v", err)
	}
	if err := logger.LogDuplicate("Photo", "/a", "/b", "d"); err != nil {
		t.Errorf("NullLogger.LogDuplicate should not return error, got: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close should not return error, got: %v", err)
	}
	if path := logger.Path(); path != "" {
		t.Errorf("NullLogger.Path should return empty string, got: %s", path)
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	all := []Event{
		{Level: LevelDebug, Event: EventPlan},
		{Level: LevelInfo, Event: EventDuplicate},
		{Level: LevelWarning, Event: EventCollision},
		{Level: LevelError, Event: EventError},
	}
	testCases := []struct {
		minLevel      EventLevel
		expectedCount int
	}{
		{LevelDebug, 4},
		{LevelInfo, 3},
		{LevelWarning, 2},
		{LevelError, 1},
	}

	for _, tc := range testCases {
		t.Run(string(tc.minLevel), func(t *testing.T) {
			logger := newTestLogger(t, tc.minLevel)
			for _, e := range all {
				if err := logger.Log(&e); err != nil {
					t.Fatalf("Log failed: %v", err)
				}
			}
			logger.Close()

			if got := len(readEvents(t, logger.Path())); got != tc.expectedCount {
				t.Errorf("Expected %d events, got %d", tc.expectedCount, got)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   EventLevel
		wantOK bool
	}{
		{"warning", LevelWarning, true},
		{" DEBUG ", LevelDebug, true},
		{"error", LevelError, true},
		{"loud", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
