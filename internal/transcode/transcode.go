// Package transcode converts videos and DVD titles to MP4 with ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/franz/media-janitor/internal/dvd"
	"github.com/franz/media-janitor/internal/util"
)

// Transcoder converts sources into an MP4 at dst
type Transcoder interface {
	TranscodeVideo(ctx context.Context, src, dst string) error
	TranscodeDVD(ctx context.Context, root, dst string) error
}

// DefaultFFmpeg is the binary looked up on PATH when none is configured
const DefaultFFmpeg = "ffmpeg"

// FFmpeg runs ffmpeg to produce H.264/AAC MP4 files. Output goes to
// dst.part and is renamed into place only when ffmpeg succeeds.
type FFmpeg struct {
	Binary string
	// MainTitle lists a DVD's main-title VOBs; defaults to dvd.MainTitleVOBs
	MainTitle func(root string) ([]string, error)
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return DefaultFFmpeg
	}
	return f.Binary
}

// Available reports whether the ffmpeg binary can be found
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.binary())
	return err == nil
}

// TranscodeVideo converts a single video file
func (f *FFmpeg) TranscodeVideo(ctx context.Context, src, dst string) error {
	return f.run(ctx, dst, videoArgs(src, dst+".part"))
}

// TranscodeDVD converts the main title of the DVD at root
func (f *FFmpeg) TranscodeDVD(ctx context.Context, root, dst string) error {
	mainTitle := f.MainTitle
	if mainTitle == nil {
		mainTitle = dvd.MainTitleVOBs
	}
	vobs, err := mainTitle(root)
	if err != nil {
		return fmt.Errorf("failed to select main title: %w", err)
	}
	if len(vobs) == 0 {
		return fmt.Errorf("no title VOBs under %s: %w", root, util.ErrNotFound)
	}
	return f.run(ctx, dst, dvdArgs(vobs, dst+".part"))
}

func (f *FFmpeg) run(ctx context.Context, dst string, args []string) error {
	bin, err := exec.LookPath(f.binary())
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", util.ErrNotFound)
	}

	part := dst + ".part"
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	util.DebugLog("Running %s %s", bin, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		os.Remove(part)
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	if err := os.Rename(part, dst); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to finalize %s: %w", dst, err)
	}
	return nil
}

var encodeArgs = []string{
	"-c:v", "libx264",
	"-preset", "medium",
	"-crf", "20",
	"-c:a", "aac",
	"-b:a", "160k",
	"-movflags", "+faststart",
	"-f", "mp4",
}

func videoArgs(src, out string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", src}
	args = append(args, encodeArgs...)
	return append(args, out)
}

// dvdArgs joins the title VOBs with the concat protocol and keeps the
// first video and (if present) first audio stream
func dvdArgs(vobs []string, out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", "concat:" + strings.Join(vobs, "|"),
		"-map", "0:v:0", "-map", "0:a:0?",
	}
	args = append(args, encodeArgs...)
	return append(args, out)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
