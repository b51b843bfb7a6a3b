// Package dates resolves a best-effort capture date for media assets.
package dates

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/franz/media-janitor/internal/classify"
	"github.com/franz/media-janitor/internal/meta"
)

// Layout is the manifest timestamp format (local wall-clock time)
const Layout = "2006-01-02 15:04:05"

// Source records where a resolved timestamp came from
type Source int

const (
	SourceNone Source = iota
	SourceExif
	SourceFfprobe
	SourceMtime
)

var sourceNames = map[Source]string{
	SourceNone:    "None",
	SourceExif:    "Exif",
	SourceFfprobe: "Ffprobe",
	SourceMtime:   "Mtime",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s Source) MarshalText() ([]byte, error) {
	name, ok := sourceNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown date source %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Source) UnmarshalText(b []byte) error {
	for src, name := range sourceNames {
		if name == string(b) {
			*s = src
			return nil
		}
	}
	return fmt.Errorf("unknown date source %q", string(b))
}

// Format renders t in the manifest layout
func Format(t time.Time) string {
	return t.In(time.Local).Format(Layout)
}

// Parse reads a manifest timestamp as local time
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.Local)
}

// Resolution is a resolved date and its provenance. Known is false when
// every source in the chain came up empty.
type Resolution struct {
	Time   time.Time
	Known  bool
	Source Source
}

// Formatted returns the manifest string for a known date
func (r Resolution) Formatted() (string, bool) {
	if !r.Known {
		return "", false
	}
	return Format(r.Time), true
}

// Resolver walks the per-kind fallback chain. A nil dater skips its source.
type Resolver struct {
	Photos meta.PhotoDater
	Videos meta.VideoDater
}

// NewResolver wires the default EXIF and ffprobe extractors
func NewResolver(ffprobeBinary string) *Resolver {
	return &Resolver{
		Photos: meta.ExifReader{},
		Videos: meta.FFprobe{Binary: ffprobeBinary},
	}
}

// ForFile resolves the date of a photo or video. Photos try EXIF (JPEG
// only) then mtime; videos try the container creation time then mtime.
// A hard extraction failure is returned with an unknown resolution.
func (r *Resolver) ForFile(ctx context.Context, path string) (Resolution, error) {
	switch classify.Classify(path) {
	case classify.Photo:
		if r.Photos != nil && classify.IsJPEG(path) {
			t, ok, err := r.Photos.CaptureTime(path)
			if err != nil {
				return Resolution{}, err
			}
			if ok {
				return Resolution{Time: t, Known: true, Source: SourceExif}, nil
			}
		}
		return mtimeResolution(path), nil

	case classify.Video:
		if r.Videos != nil {
			t, ok, err := r.Videos.CreationTime(ctx, path)
			if err != nil {
				return Resolution{}, err
			}
			if ok {
				return Resolution{Time: t, Known: true, Source: SourceFfprobe}, nil
			}
		}
		return mtimeResolution(path), nil
	}
	return Resolution{}, nil
}

// ForDVD resolves a DVD's date from its root folder's mtime
func (r *Resolver) ForDVD(root string) Resolution {
	return mtimeResolution(root)
}

func mtimeResolution(path string) Resolution {
	info, err := os.Stat(path)
	if err != nil {
		return Resolution{}
	}
	return Resolution{Time: info.ModTime().In(time.Local), Known: true, Source: SourceMtime}
}
