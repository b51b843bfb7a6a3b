package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/franz/media-janitor/internal/util"
)

// FFprobeOutput is the subset of `ffprobe -print_format json` we read
type FFprobeOutput struct {
	Streams []FFprobeStream `json:"streams"`
	Format  *FFprobeFormat  `json:"format"`
}

// FFprobeStream represents one container stream
type FFprobeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

// FFprobeFormat represents container format metadata
type FFprobeFormat struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

// DefaultFFprobe is the binary looked up on PATH when none is configured
const DefaultFFprobe = "ffprobe"

// FFprobe reads container creation times by running ffprobe
type FFprobe struct {
	Binary string
}

func (p FFprobe) binary() string {
	if p.Binary == "" {
		return DefaultFFprobe
	}
	return p.Binary
}

// Available reports whether the ffprobe binary can be found
func (p FFprobe) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// Run executes ffprobe and parses its JSON output
func (p FFprobe) Run(ctx context.Context, path string) (*FFprobeOutput, error) {
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, util.ErrNotFound
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%w: ffprobe failed: %s", util.ErrCorrupt, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	var out FFprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", util.ErrCorrupt, err)
	}
	return &out, nil
}

// CreationTime returns the container's creation_time tag in local time.
// A missing ffprobe, an unreadable container or a missing tag all report
// ok=false; only a file that cannot be stat'ed is an error.
func (p FFprobe) CreationTime(ctx context.Context, path string) (time.Time, bool, error) {
	if _, err := os.Stat(path); err != nil {
		return time.Time{}, false, err
	}

	out, err := p.Run(ctx, path)
	if err != nil {
		util.DebugLog("ffprobe gave no metadata for %s: %v", path, err)
		return time.Time{}, false, nil
	}

	t, ok := out.CreationTime()
	return t, ok, nil
}

// CreationTime looks for creation_time in the format tags, then stream tags
func (o *FFprobeOutput) CreationTime() (time.Time, bool) {
	if o == nil {
		return time.Time{}, false
	}
	if o.Format != nil {
		if t, ok := parseCreationTime(tagValue(o.Format.Tags, "creation_time")); ok {
			return t, true
		}
	}
	for _, s := range o.Streams {
		if t, ok := parseCreationTime(tagValue(s.Tags, "creation_time")); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func tagValue(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var creationTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseCreationTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range creationTimeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			// no zone: QuickTime stores UTC
			t, err = time.ParseInLocation(layout, s, time.UTC)
		}
		if err == nil {
			if isPlaceholder(t) {
				return time.Time{}, false
			}
			return t.In(time.Local), true
		}
	}
	return time.Time{}, false
}
