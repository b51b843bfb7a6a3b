package apply

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/util"
)

type fakeTranscoder struct {
	videoCalls []string
	dvdCalls   []string
	err        error
}

func (f *fakeTranscoder) TranscodeVideo(ctx context.Context, src, dst string) error {
	f.videoCalls = append(f.videoCalls, src)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("mp4:"+src), 0644)
}

func (f *fakeTranscoder) TranscodeDVD(ctx context.Context, root, dst string) error {
	f.dvdCalls = append(f.dvdCalls, root)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("dvd:"+root), 0644)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func strPtr(s string) *string { return &s }

func TestApply_CopyAndRerun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in", "a.jpg")
	dst := filepath.Join(dir, "out", "Photos", "2021", "2021-05", "2021-05-06", "a.jpg")
	writeFile(t, src, "photo-bytes")

	items := []manifest.Item{{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: src, Dst: dst}}
	e := New(&Config{})

	s, err := e.Apply(context.Background(), items)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.Copied != 1 || s.BytesCopied != int64(len("photo-bytes")) {
		t.Errorf("summary = %+v", s)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "photo-bytes" {
		t.Fatalf("dst content = %q, %v", got, err)
	}
	if _, err := os.Stat(dst + ".part"); !os.IsNotExist(err) {
		t.Error(".part file left behind")
	}

	s, err = e.Apply(context.Background(), items)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if s.Copied != 0 || s.SkippedExisting != 1 {
		t.Errorf("rerun summary = %+v, want one skipped", s)
	}
}

func TestApply_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "out", "a.jpg")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	events, err := report.NewEventLogger(t.TempDir(), "apply", "run-exists", report.LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(&Config{Events: events}).Apply(context.Background(), []manifest.Item{
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: src, Dst: dst},
	})
	if err != nil {
		t.Fatal(err)
	}
	events.Close()
	if s.SkippedExisting != 1 {
		t.Errorf("SkippedExisting = %d, want 1", s.SkippedExisting)
	}
	if got, _ := os.ReadFile(dst); string(got) != "old" {
		t.Errorf("dst overwritten: %q", got)
	}

	data, err := os.ReadFile(events.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"event":"skip"`) || !strings.Contains(string(data), util.ErrExists.Error()) {
		t.Errorf("skip event missing exists reason:\n%s", data)
	}
}

func TestCheckDestination(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.jpg")
	writeFile(t, existing, "x")

	tests := []struct {
		name       string
		dst        string
		wantExists bool
	}{
		{"existing file", existing, true},
		{"existing directory", dir, true},
		{"missing", filepath.Join(dir, "b.jpg"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDestination(tt.dst)
			if tt.wantExists {
				if !errors.Is(err, util.ErrExists) {
					t.Errorf("err = %v, want ErrExists", err)
				}
				return
			}
			if err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		})
	}
}

func TestApply_DuplicatesSkippedAndLogged(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "in", "a.jpg")
	b := filepath.Join(dir, "in", "b.jpg")
	writeFile(t, a, "same")
	writeFile(t, b, "same")
	dstA := filepath.Join(dir, "out", "a.jpg")
	dstB := filepath.Join(dir, "out", "b.jpg")

	logDir := filepath.Join(dir, "logs")
	logs, err := OpenLogs(logDir, "run-1")
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(&Config{Logs: logs}).Apply(context.Background(), []manifest.Item{
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: a, Dst: dstA},
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: b, Dst: dstB, DuplicateOf: strPtr(a)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := logs.Close(); err != nil {
		t.Fatal(err)
	}

	if s.Copied != 1 || s.SkippedDuplicate != 1 {
		t.Errorf("summary = %+v", s)
	}
	if _, err := os.Stat(dstB); !os.IsNotExist(err) {
		t.Error("duplicate was materialized")
	}

	dupLog, err := os.ReadFile(filepath.Join(logDir, DuplicatesLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dupLog), "# run run-1") {
		t.Errorf("missing run header: %s", dupLog)
	}
	if !strings.Contains(string(dupLog), "duplicate_of="+a) {
		t.Errorf("duplicate log missing entry: %s", dupLog)
	}
	okLog, _ := os.ReadFile(filepath.Join(logDir, OKLogName))
	if !strings.Contains(string(okLog), a+" -> "+dstA) {
		t.Errorf("ok log missing entry: %s", okLog)
	}
}

func TestApply_FailuresDoNotStopRun(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.jpg")
	writeFile(t, good, "ok")

	logDir := filepath.Join(dir, "logs")
	logs, err := OpenLogs(logDir, "run-2")
	if err != nil {
		t.Fatal(err)
	}

	s, err := New(&Config{Logs: logs}).Apply(context.Background(), []manifest.Item{
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: filepath.Join(dir, "missing.jpg"), Dst: filepath.Join(dir, "out", "missing.jpg")},
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: good, Dst: filepath.Join(dir, "out", "good.jpg")},
	})
	if err != nil {
		t.Fatal(err)
	}
	logs.Close()

	if s.Failed != 1 || s.Copied != 1 {
		t.Errorf("summary = %+v", s)
	}
	failLog, _ := os.ReadFile(filepath.Join(logDir, FailLogName))
	if !strings.Contains(string(failLog), "missing.jpg") {
		t.Errorf("fail log missing entry: %s", failLog)
	}
}

func TestApply_Conversions(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.avi")
	writeFile(t, video, "avi")
	dvdRoot := filepath.Join(dir, "Holiday")

	tc := &fakeTranscoder{}
	s, err := New(&Config{Transcoder: tc}).Apply(context.Background(), []manifest.Item{
		{Kind: manifest.KindVideo, Action: manifest.ActionConvertVideo, Src: video, Dst: filepath.Join(dir, "out", "clip.mp4")},
		{Kind: manifest.KindDvd, Action: manifest.ActionConvertDvd, Src: dvdRoot, Dst: filepath.Join(dir, "out", "Holiday.mp4")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.ConvertedVideo != 1 || s.ConvertedDVD != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(tc.videoCalls) != 1 || len(tc.dvdCalls) != 1 || tc.dvdCalls[0] != dvdRoot {
		t.Errorf("calls = %v / %v", tc.videoCalls, tc.dvdCalls)
	}
}

func TestApply_TranscodeFailure(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out", "clip.mp4")

	tc := &fakeTranscoder{err: errors.New("boom")}
	s, err := New(&Config{Transcoder: tc}).Apply(context.Background(), []manifest.Item{
		{Kind: manifest.KindVideo, Action: manifest.ActionConvertVideo, Src: filepath.Join(dir, "clip.avi"), Dst: dst},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("failed conversion left a destination")
	}
}

func TestApply_NoTranscoder(t *testing.T) {
	dir := t.TempDir()
	e := New(&Config{})
	dst := filepath.Join(dir, "out", "clip.mp4")
	_, err := e.materialize(context.Background(), &manifest.Item{
		Kind: manifest.KindVideo, Action: manifest.ActionConvertVideo, Src: filepath.Join(dir, "clip.avi"), Dst: dst,
	})
	if !errors.Is(err, util.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestApply_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeFile(t, src, "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(&Config{}).Apply(ctx, []manifest.Item{
		{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: src, Dst: filepath.Join(dir, "out", "a.jpg")},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if s.Copied != 0 {
		t.Errorf("Copied = %d after cancel", s.Copied)
	}
}

func TestLogs_NilSafe(t *testing.T) {
	var l *Logs
	it := &manifest.Item{DuplicateOf: strPtr("x")}
	l.OK(it)
	l.Fail(it, errors.New("x"))
	l.Duplicate(it)
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}
