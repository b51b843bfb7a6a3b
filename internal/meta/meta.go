// Package meta reads embedded capture timestamps from photos and videos.
//
// Extractors distinguish "no data" (ok=false, err=nil) from hard failures
// (err != nil). Callers fall through to the next date source only on no data.
package meta

import (
	"context"
	"time"
)

// PhotoDater extracts the capture time embedded in a photo
type PhotoDater interface {
	CaptureTime(path string) (t time.Time, ok bool, err error)
}

// VideoDater extracts the creation time embedded in a video container
type VideoDater interface {
	CreationTime(ctx context.Context, path string) (t time.Time, ok bool, err error)
}

// placeholderYears are container defaults written by cameras without a clock
var placeholderYears = map[int]bool{
	1904: true,
	1970: true,
}

func isPlaceholder(t time.Time) bool {
	return t.IsZero() || placeholderYears[t.UTC().Year()]
}
