// Package manifest reads and writes the line-delimited plan record that
// connects the plan, apply and report stages.
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/franz/media-janitor/internal/dates"
)

// Version is the schema version written on every line
const Version = 1

// DefaultPath is the manifest file name used when none is given
const DefaultPath = "manifest.jsonl"

// maxLineSize bounds a single manifest line
const maxLineSize = 1 << 20

// MediaKind is the kind of asset an item migrates
type MediaKind int

const (
	KindPhoto MediaKind = iota
	KindVideo
	KindDvd
)

var kindNames = []string{"Photo", "Video", "Dvd"}

func (k MediaKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("MediaKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler
func (k MediaKind) MarshalText() ([]byte, error) {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown media kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *MediaKind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = MediaKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown media kind %q", string(b))
}

// Action is what apply does with an item
type Action int

const (
	ActionCopy Action = iota
	ActionConvertVideo
	ActionConvertDvd
)

var actionNames = []string{"Copy", "ConvertVideo", "ConvertDvd"}

func (a Action) String() string {
	if int(a) >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	if int(a) < 0 || int(a) >= len(actionNames) {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Action) UnmarshalText(b []byte) error {
	for i, name := range actionNames {
		if name == string(b) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", string(b))
}

// Item is one planned unit of work. BestDT and DuplicateOf serialize as
// null when unset.
type Item struct {
	Version     int          `json:"version"`
	Kind        MediaKind    `json:"kind"`
	Action      Action       `json:"action"`
	Src         string       `json:"src"`
	Dst         string       `json:"dst"`
	BestDT      *string      `json:"best_dt"`
	DateSource  dates.Source `json:"date_source"`
	DuplicateOf *string      `json:"duplicate_of"`
}

// IsDuplicate reports whether the item is a duplicate of another item
func (it *Item) IsDuplicate() bool {
	return it.DuplicateOf != nil
}

// Date returns the best date, if known
func (it *Item) Date() (string, bool) {
	if it.BestDT == nil {
		return "", false
	}
	return *it.BestDT, true
}

// LineError reports a manifest line that could not be read
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ErrUnsupportedVersion is returned for lines written by a newer schema
var ErrUnsupportedVersion = errors.New("unsupported manifest version")

// Encode writes items as JSON lines
func Encode(w io.Writer, items []Item) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range items {
		it := items[i]
		if it.Version == 0 {
			it.Version = Version
		}
		if err := enc.Encode(&it); err != nil {
			return fmt.Errorf("encode item %d (%s): %w", i+1, it.Src, err)
		}
	}
	return nil
}

// Write atomically replaces path with the encoded items
func Write(path string, items []Item) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, items); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize manifest: %w", err)
	}
	return nil
}

// Read loads every item from path. Any bad line fails the whole read.
func Read(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses JSON lines, skipping blank ones. The returned error is a
// *LineError for content problems.
func Decode(r io.Reader) ([]Item, error) {
	var items []Item
	err := scanLines(r, func(lineNo int, line []byte) error {
		it, err := parseLine(line)
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Validate checks every line and returns all line errors instead of
// stopping at the first. The count includes valid items only.
func Validate(r io.Reader) (int, []*LineError, error) {
	var (
		valid int
		bad   []*LineError
	)
	err := scanLines(r, func(lineNo int, line []byte) error {
		if _, err := parseLine(line); err != nil {
			bad = append(bad, &LineError{Line: lineNo, Err: err})
			return nil
		}
		valid++
		return nil
	})
	return valid, bad, err
}

func scanLines(r io.Reader, fn func(lineNo int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &LineError{Line: lineNo + 1, Err: err}
	}
	return nil
}

// requiredFields captures the enum fields whose zero values are valid
// enum members, so their absence can be told apart from Photo/Copy/None.
type requiredFields struct {
	Kind       json.RawMessage `json:"kind"`
	Action     json.RawMessage `json:"action"`
	DateSource json.RawMessage `json:"date_source"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func parseLine(line []byte) (Item, error) {
	var it Item
	if err := json.Unmarshal(line, &it); err != nil {
		return Item{}, err
	}
	switch {
	case it.Version < 0:
		return Item{}, fmt.Errorf("invalid version %d", it.Version)
	case it.Version == 0:
		it.Version = Version
	case it.Version > Version:
		return Item{}, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, it.Version, Version)
	}

	var req requiredFields
	if err := json.Unmarshal(line, &req); err != nil {
		return Item{}, err
	}
	switch {
	case !present(req.Kind):
		return Item{}, errors.New("missing kind")
	case !present(req.Action):
		return Item{}, errors.New("missing action")
	case !present(req.DateSource):
		return Item{}, errors.New("missing date_source")
	}

	if it.Src == "" {
		return Item{}, errors.New("missing src")
	}
	if it.Dst == "" {
		return Item{}, errors.New("missing dst")
	}
	return it, nil
}
