package dates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakePhotos struct {
	t     time.Time
	ok    bool
	err   error
	calls int
}

func (f *fakePhotos) CaptureTime(string) (time.Time, bool, error) {
	f.calls++
	return f.t, f.ok, f.err
}

type fakeVideos struct {
	t   time.Time
	ok  bool
	err error
}

func (f *fakeVideos) CreationTime(context.Context, string) (time.Time, bool, error) {
	return f.t, f.ok, f.err
}

func createFileWithMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestForFile(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2018, 3, 4, 5, 6, 7, 0, time.Local)
	exifTime := time.Date(2010, 1, 2, 3, 4, 5, 0, time.Local)
	probeTime := time.Date(2012, 6, 7, 8, 9, 10, 0, time.Local)

	jpg := filepath.Join(dir, "a.jpg")
	png := filepath.Join(dir, "b.png")
	mov := filepath.Join(dir, "c.mov")
	txt := filepath.Join(dir, "d.txt")
	for _, p := range []string{jpg, png, mov, txt} {
		createFileWithMtime(t, p, mtime)
	}

	hardErr := errors.New("read failed")

	tests := []struct {
		name       string
		path       string
		photos     *fakePhotos
		videos     *fakeVideos
		wantSource Source
		wantTime   time.Time
		wantKnown  bool
		wantErr    bool
	}{
		{"jpeg exif", jpg, &fakePhotos{t: exifTime, ok: true}, nil, SourceExif, exifTime, true, false},
		{"jpeg no exif", jpg, &fakePhotos{}, nil, SourceMtime, mtime, true, false},
		{"jpeg exif hard error", jpg, &fakePhotos{err: hardErr}, nil, SourceNone, time.Time{}, false, true},
		{"png skips exif", png, &fakePhotos{t: exifTime, ok: true}, nil, SourceMtime, mtime, true, false},
		{"video container", mov, nil, &fakeVideos{t: probeTime, ok: true}, SourceFfprobe, probeTime, true, false},
		{"video no metadata", mov, nil, &fakeVideos{}, SourceMtime, mtime, true, false},
		{"video hard error", mov, nil, &fakeVideos{err: hardErr}, SourceNone, time.Time{}, false, true},
		{"video without extractor", mov, nil, nil, SourceMtime, mtime, true, false},
		{"ignored kind", txt, nil, nil, SourceNone, time.Time{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{}
			if tt.photos != nil {
				r.Photos = tt.photos
			}
			if tt.videos != nil {
				r.Videos = tt.videos
			}

			res, err := r.ForFile(context.Background(), tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if res.Source != tt.wantSource {
				t.Errorf("source = %v, want %v", res.Source, tt.wantSource)
			}
			if res.Known != tt.wantKnown {
				t.Errorf("known = %v, want %v", res.Known, tt.wantKnown)
			}
			if tt.wantKnown && !res.Time.Equal(tt.wantTime) {
				t.Errorf("time = %v, want %v", res.Time, tt.wantTime)
			}
		})
	}
}

func TestForFile_MissingFileHasNoDate(t *testing.T) {
	r := &Resolver{Videos: &fakeVideos{}}
	res, err := r.ForFile(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Known || res.Source != SourceNone {
		t.Errorf("got %+v, want unknown/None", res)
	}
}

func TestForDVD(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Wedding")
	os.MkdirAll(root, 0755)
	mtime := time.Date(2004, 8, 9, 10, 11, 12, 0, time.Local)
	os.Chtimes(root, mtime, mtime)

	r := &Resolver{}
	res := r.ForDVD(root)
	if !res.Known || res.Source != SourceMtime {
		t.Fatalf("got %+v, want mtime", res)
	}
	if got, _ := res.Formatted(); got != "2004-08-09 10:11:12" {
		t.Errorf("formatted = %q", got)
	}

	if res := r.ForDVD(filepath.Join(root, "missing")); res.Known || res.Source != SourceNone {
		t.Errorf("missing root: got %+v, want None", res)
	}
}

func TestSourceText(t *testing.T) {
	for src, name := range sourceNames {
		b, err := src.MarshalText()
		if err != nil || string(b) != name {
			t.Errorf("MarshalText(%v) = %q, %v", src, b, err)
		}
		var back Source
		if err := back.UnmarshalText(b); err != nil || back != src {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, back, err)
		}
	}

	var s Source
	if err := s.UnmarshalText([]byte("Gps")); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestParseFormat(t *testing.T) {
	in := "2021-12-31 23:59:58"
	parsed, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Format(parsed); got != in {
		t.Errorf("Format(Parse(%q)) = %q", in, got)
	}
}
