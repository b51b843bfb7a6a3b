package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/util"
)

func TestCheckTool_Missing(t *testing.T) {
	tests := []struct {
		name        string
		required    bool
		wantError   bool
		wantWarning bool
	}{
		{"required", true, true, false},
		{"optional", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := checkTool("tool", "definitely-not-a-real-binary", tt.required, "testing")
			if r.error != tt.wantError || r.warning != tt.wantWarning {
				t.Errorf("error=%v warning=%v, want %v/%v", r.error, r.warning, tt.wantError, tt.wantWarning)
			}
		})
	}
}

func TestParseToolVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"ffprobe version 6.1.1-3ubuntu5 Copyright (c) 2007-2023\nbuilt with gcc", "6.1.1-3ubuntu5"},
		{"ffmpeg version n7.0 Copyright", "n7.0"},
		{"garbage", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := parseToolVersion(tt.output); got != tt.want {
			t.Errorf("parseToolVersion(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestCheckSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0644)

	if r := checkSourceDirectory(dir); r.error {
		t.Errorf("readable directory flagged: %s", r.message)
	}
	if r := checkSourceDirectory(filepath.Join(dir, "missing")); !r.error {
		t.Error("missing directory not flagged")
	}
	if r := checkSourceDirectory(filepath.Join(dir, "a.jpg")); !r.error {
		t.Error("regular file not flagged")
	}
}

func TestCheckDestinationDirectory_Creates(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "ExportSet")

	r := checkDestinationDirectory(dest)
	if r.error {
		t.Fatalf("unexpected error: %s", r.message)
	}
	if !strings.Contains(r.message, "created") {
		t.Errorf("message = %q, want created", r.message)
	}
	if _, err := os.Stat(filepath.Join(dest, ".mj_write_test")); !os.IsNotExist(err) {
		t.Error("write test file left behind")
	}

	r = checkDestinationDirectory(dest)
	if r.error || !strings.Contains(r.message, "writable") {
		t.Errorf("existing directory: %+v", r)
	}
	if got, want := strings.Contains(r.message, "network storage"), util.IsNetworkPath(dest); got != want {
		t.Errorf("message %q: network=%v, want %v", r.message, got, want)
	}
}

func TestCheckManifest(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing is fine", func(t *testing.T) {
		r := checkManifest(filepath.Join(dir, "none.jsonl"))
		if r.error || r.warning {
			t.Errorf("missing manifest flagged: %+v", r)
		}
	})

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "good.jsonl")
		err := manifest.Write(path, []manifest.Item{
			{Kind: manifest.KindPhoto, Action: manifest.ActionCopy, Src: "/in/a.jpg", Dst: "/out/a.jpg"},
		})
		if err != nil {
			t.Fatal(err)
		}
		r := checkManifest(path)
		if r.error || !strings.Contains(r.message, "1 items") {
			t.Errorf("valid manifest: %+v", r)
		}
	})

	t.Run("lists every bad line", func(t *testing.T) {
		path := filepath.Join(dir, "bad.jsonl")
		content := `{"version":1,"kind":"Photo","action":"Copy","src":"/a","dst":"/b","date_source":"None"}
not json
{"version":1,"kind":"Photo","action":"Copy","src":"/c","dst":"/d","date_source":"None"}
{"version":9,"kind":"Photo","action":"Copy","src":"/e","dst":"/f","date_source":"None"}
`
		os.WriteFile(path, []byte(content), 0644)

		r := checkManifest(path)
		if !r.error {
			t.Fatal("corrupt manifest not flagged")
		}
		if len(r.details) != 2 {
			t.Fatalf("details = %v, want 2 bad lines", r.details)
		}
		if !strings.Contains(r.details[0], "line 2") || !strings.Contains(r.details[1], "line 4") {
			t.Errorf("details = %v", r.details)
		}
		if !strings.Contains(r.message, "2 valid items") {
			t.Errorf("message = %q", r.message)
		}
	})
}

func TestProbePaths(t *testing.T) {
	dup := "/in/a.jpg"
	items := []manifest.Item{
		{Src: "/in/b.jpg", Dst: "/skip/b.jpg", DuplicateOf: &dup},
		{Src: "/in/x/c.jpg", Dst: "/out/Photos/c.jpg"},
	}
	src, dst := probePaths(items)
	if src != "/in/x" || dst != "/out/Photos" {
		t.Errorf("probePaths = %q, %q", src, dst)
	}
	if needsConversion(items) {
		t.Error("copy-only manifest reported as needing conversion")
	}
}
