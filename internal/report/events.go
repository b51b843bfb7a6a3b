package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventPlan      EventType = "plan"
	EventDuplicate EventType = "duplicate"
	EventCollision EventType = "collision"
	EventDateError EventType = "date_error"
	EventWalkError EventType = "walk_error"
	EventApply     EventType = "apply"
	EventSkip      EventType = "skip"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a config string to an EventLevel
func ParseLevel(s string) (EventLevel, bool) {
	level := EventLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelPriority[level]; ok {
		return level, true
	}
	return "", false
}

// Event is one line of the audit log
type Event struct {
	Timestamp    time.Time         `json:"ts"`
	RunID        string            `json:"run_id,omitempty"`
	Level        EventLevel        `json:"level"`
	Event        EventType         `json:"event"`
	Kind         string            `json:"kind,omitempty"`
	SrcPath      string            `json:"src_path,omitempty"`
	DestPath     string            `json:"dest_path,omitempty"`
	Action       string            `json:"action,omitempty"`
	DateSource   string            `json:"date_source,omitempty"`
	DuplicateOf  string            `json:"duplicate_of,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	BytesWritten int64             `json:"bytes_written,omitempty"`
	Duration     int64             `json:"duration_ms,omitempty"`
	Error        string            `json:"error,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger discards
// everything.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates <outputDir>/events-<stage>-<timestamp>.jsonl
func NewEventLogger(outputDir, stage, runID string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", stage, timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	return &EventLogger{
		file:     file,
		encoder:  enc,
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogPlan records a planned item
func (l *EventLogger) LogPlan(kind, srcPath, destPath, action, dateSource string) error {
	return l.Log(&Event{
		Level:      LevelDebug,
		Event:      EventPlan,
		Kind:       kind,
		SrcPath:    srcPath,
		DestPath:   destPath,
		Action:     action,
		DateSource: dateSource,
	})
}

// LogDuplicate records that srcPath duplicates canonical
func (l *EventLogger) LogDuplicate(kind, srcPath, canonical, digest string) error {
	return l.Log(&Event{
		Level:       LevelInfo,
		Event:       EventDuplicate,
		Kind:        kind,
		SrcPath:     srcPath,
		DuplicateOf: canonical,
		Extra:       map[string]string{"digest": digest},
	})
}

// LogCollision records a destination renamed to avoid a clash
func (l *EventLogger) LogCollision(kind, srcPath, wanted, resolved string) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventCollision,
		Kind:     kind,
		SrcPath:  srcPath,
		DestPath: resolved,
		Reason:   "destination taken: " + wanted,
	})
}

// LogApply records the outcome of applying one item
func (l *EventLogger) LogApply(kind, srcPath, destPath, action string, bytesWritten int64, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:        level,
		Event:        EventApply,
		Kind:         kind,
		SrcPath:      srcPath,
		DestPath:     destPath,
		Action:       action,
		BytesWritten: bytesWritten,
		Duration:     duration.Milliseconds(),
		Error:        errMsg,
	})
}

// LogSkip records an item apply left alone
func (l *EventLogger) LogSkip(kind, srcPath, destPath, reason string) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventSkip,
		Kind:     kind,
		SrcPath:  srcPath,
		DestPath: destPath,
		Reason:   reason,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
