// Package apply executes manifest items against the filesystem. Existing
// destinations are never overwritten, so re-running converges.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/transcode"
	"github.com/franz/media-janitor/internal/util"
)

// Engine applies manifest items one at a time
type Engine struct {
	transcoder transcode.Transcoder
	logs       *Logs
	events     *report.EventLogger
	bufferSize int
	retry      *util.RetryConfig
}

// Config holds engine configuration
type Config struct {
	Transcoder transcode.Transcoder // nil: conversions fail
	Logs       *Logs
	Events     *report.EventLogger
	BufferSize int               // copy buffer (0 = default)
	Retry      *util.RetryConfig // nil = no retries
}

// New creates a new Engine
func New(cfg *Config) *Engine {
	e := &Engine{
		transcoder: cfg.Transcoder,
		logs:       cfg.Logs,
		events:     cfg.Events,
		bufferSize: cfg.BufferSize,
		retry:      cfg.Retry,
	}
	if e.bufferSize <= 0 {
		e.bufferSize = util.DefaultBufferSize
	}
	if e.retry == nil {
		e.retry = util.NoRetry()
	}
	return e
}

// Summary holds apply outcome counters
type Summary struct {
	Total            int
	Copied           int
	ConvertedVideo   int
	ConvertedDVD     int
	SkippedExisting  int
	SkippedDuplicate int
	Failed           int
	BytesCopied      int64
}

// Written is the number of items materialized by this run
func (s *Summary) Written() int {
	return s.Copied + s.ConvertedVideo + s.ConvertedDVD
}

// Apply executes items in order. Per-item failures are counted and
// logged; only context cancellation stops the run early.
func (e *Engine) Apply(ctx context.Context, items []manifest.Item) (*Summary, error) {
	s := &Summary{Total: len(items)}
	bar := util.NewProgress(len(items), "Applying", "items")
	defer bar.Finish()

	for i := range items {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		e.applyItem(ctx, s, &items[i])
		bar.Add(1)
	}
	return s, nil
}

func (e *Engine) applyItem(ctx context.Context, s *Summary, it *manifest.Item) {
	kind := it.Kind.String()

	if it.IsDuplicate() {
		s.SkippedDuplicate++
		e.logs.Duplicate(it)
		e.events.LogSkip(kind, it.Src, it.Dst, "duplicate of "+*it.DuplicateOf)
		return
	}

	if err := checkDestination(it.Dst); err != nil {
		if errors.Is(err, util.ErrExists) {
			s.SkippedExisting++
			util.DebugLog("Exists, skipping: %s", it.Dst)
			e.events.LogSkip(kind, it.Src, it.Dst, err.Error())
			return
		}
		e.fail(s, it, err, 0)
		return
	}

	start := time.Now()
	written, err := e.materialize(ctx, it)
	if err != nil {
		e.fail(s, it, err, time.Since(start))
		return
	}

	switch it.Action {
	case manifest.ActionCopy:
		s.Copied++
		s.BytesCopied += written
	case manifest.ActionConvertVideo:
		s.ConvertedVideo++
	case manifest.ActionConvertDvd:
		s.ConvertedDVD++
	}
	e.logs.OK(it)
	e.events.LogApply(kind, it.Src, it.Dst, it.Action.String(), written, time.Since(start), nil)
}

func (e *Engine) materialize(ctx context.Context, it *manifest.Item) (int64, error) {
	if err := util.RetryableMkdirAll(filepath.Dir(it.Dst), 0755, e.retry); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	switch it.Action {
	case manifest.ActionCopy:
		return e.copyFile(ctx, it.Src, it.Dst)
	case manifest.ActionConvertVideo, manifest.ActionConvertDvd:
		if e.transcoder == nil {
			return 0, fmt.Errorf("%s: no transcoder configured: %w", it.Action, util.ErrUnsupported)
		}
		var err error
		if it.Action == manifest.ActionConvertVideo {
			err = e.transcoder.TranscodeVideo(ctx, it.Src, it.Dst)
		} else {
			err = e.transcoder.TranscodeDVD(ctx, it.Src, it.Dst)
		}
		if err != nil {
			return 0, err
		}
		var size int64
		if info, statErr := util.RetryableStat(it.Dst, e.retry); statErr == nil {
			size = info.Size()
		}
		return size, nil
	default:
		return 0, fmt.Errorf("unknown action %v: %w", it.Action, util.ErrUnsupported)
	}
}

// checkDestination returns an error wrapping util.ErrExists when dst is
// already present. Symlinks count as present.
func checkDestination(dst string) error {
	_, err := os.Lstat(dst)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", util.ErrExists, dst)
	case os.IsNotExist(err):
		return nil
	default:
		return fmt.Errorf("failed to check destination: %w", err)
	}
}

func (e *Engine) fail(s *Summary, it *manifest.Item, err error, elapsed time.Duration) {
	s.Failed++
	util.ErrorLog("Failed %s %s -> %s: %v", it.Action, it.Src, it.Dst, err)
	e.logs.Fail(it, err)
	e.events.LogApply(it.Kind.String(), it.Src, it.Dst, it.Action.String(), 0, elapsed, err)
}

// copyFile copies atomically through a .part file and verifies the size
func (e *Engine) copyFile(ctx context.Context, srcPath, destPath string) (int64, error) {
	src, err := util.RetryableOpen(srcPath, e.retry)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	srcInfo, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source: %w", err)
	}

	tempPath := destPath + ".part"
	dest, err := util.RetryableCreate(tempPath, e.retry)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := util.CopyWithContext(ctx, dest, src, e.bufferSize)
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		util.RetryableRemove(tempPath, e.retry)
		return 0, fmt.Errorf("failed to copy: %w", err)
	}

	if written != srcInfo.Size() {
		util.RetryableRemove(tempPath, e.retry)
		return 0, fmt.Errorf("%w: wrote %d of %d bytes", util.ErrSizeMismatch, written, srcInfo.Size())
	}

	if err := os.Chtimes(tempPath, time.Now(), srcInfo.ModTime()); err != nil {
		util.DebugLog("Could not preserve mtime on %s: %v", destPath, err)
	}

	if err := util.RetryableRename(tempPath, destPath, e.retry); err != nil {
		util.RetryableRemove(tempPath, e.retry)
		return 0, fmt.Errorf("failed to rename: %w", err)
	}

	util.DebugLog("Copied: %s -> %s (%s)", srcPath, destPath, util.FormatBytes(written))
	return written, nil
}

// Print writes the outcome counters
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Apply Summary ===")
	fmt.Fprintf(w, "Total items: %d\n", s.Total)
	fmt.Fprintf(w, "Copied: %d (%s)\n", s.Copied, util.FormatBytes(s.BytesCopied))
	fmt.Fprintf(w, "Converted videos: %d\n", s.ConvertedVideo)
	fmt.Fprintf(w, "Converted DVDs: %d\n", s.ConvertedDVD)
	fmt.Fprintf(w, "Skipped (exists): %d\n", s.SkippedExisting)
	fmt.Fprintf(w, "Skipped (duplicate): %d\n", s.SkippedDuplicate)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
}
