package apply

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/franz/media-janitor/internal/manifest"
)

// Outcome log file names, created in the log directory
const (
	OKLogName         = "apply_ok.log"
	FailLogName       = "apply_fail.log"
	DuplicatesLogName = "apply_duplicates_skipped.log"
)

// Logs appends one plain-text line per apply outcome. A nil *Logs discards
// everything.
type Logs struct {
	mu         sync.Mutex
	ok         *logFile
	fail       *logFile
	duplicates *logFile
}

type logFile struct {
	f *os.File
	w *bufio.Writer
}

// OpenLogs opens (appending) the three outcome logs in dir and writes a
// header line carrying runID to each
func OpenLogs(dir, runID string) (*Logs, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logs{}
	header := fmt.Sprintf("# run %s started %s\n", runID, time.Now().Format(time.RFC3339))
	for _, entry := range []struct {
		name string
		dst  **logFile
	}{
		{OKLogName, &l.ok},
		{FailLogName, &l.fail},
		{DuplicatesLogName, &l.duplicates},
	} {
		f, err := os.OpenFile(filepath.Join(dir, entry.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open %s: %w", entry.name, err)
		}
		lf := &logFile{f: f, w: bufio.NewWriter(f)}
		lf.w.WriteString(header)
		*entry.dst = lf
	}
	return l, nil
}

func (l *Logs) write(lf *logFile, line string) {
	if l == nil || lf == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(lf.w, "%s\t%s\n", time.Now().Format(time.RFC3339), line)
}

// OK records a materialized item
func (l *Logs) OK(it *manifest.Item) {
	if l == nil {
		return
	}
	l.write(l.ok, fmt.Sprintf("%s\t%s -> %s", it.Action, it.Src, it.Dst))
}

// Fail records a failed item and its error
func (l *Logs) Fail(it *manifest.Item, err error) {
	if l == nil {
		return
	}
	l.write(l.fail, fmt.Sprintf("%s\t%s -> %s\terror=%v", it.Action, it.Src, it.Dst, err))
}

// Duplicate records a skipped duplicate
func (l *Logs) Duplicate(it *manifest.Item) {
	if l == nil || it.DuplicateOf == nil {
		return
	}
	l.write(l.duplicates, fmt.Sprintf("%s\t%s -> %s\tduplicate_of=%s", it.Kind, it.Src, it.Dst, *it.DuplicateOf))
}

// Close flushes and closes every log
func (l *Logs) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, lf := range []*logFile{l.ok, l.fail, l.duplicates} {
		if lf == nil {
			continue
		}
		if err := lf.w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := lf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
