package meta

import (
	"fmt"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/franz/media-janitor/internal/util"
)

// ExifReader reads DateTimeOriginal (falling back to DateTime) from JPEG EXIF
type ExifReader struct{}

// CaptureTime returns the EXIF capture time as local wall-clock time.
// Files without EXIF or without a usable date tag report ok=false.
func (ExifReader) CaptureTime(path string) (t time.Time, ok bool, err error) {
	defer func() {
		// goexif panics on some truncated IFDs
		if r := recover(); r != nil {
			util.DebugLog("EXIF decoder panicked on %s: %v", path, r)
			t, ok, err = time.Time{}, false, nil
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		util.DebugLog("No EXIF in %s: %v", path, err)
		return time.Time{}, false, nil
	}

	dt, derr := x.DateTime()
	if derr != nil || isPlaceholder(dt) {
		return time.Time{}, false, nil
	}
	return dt.In(time.Local), true, nil
}
