package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-janitor/internal/apply"
	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/transcode"
	"github.com/franz/media-janitor/internal/util"
)

var applyCmd = &cobra.Command{
	Use:   "apply [manifest_path]",
	Short: "Materialize a manifest into the output tree",
	Long: `Execute every item of the manifest (default "manifest.jsonl"):

  Copy          copy the photo byte for byte
  ConvertVideo  transcode the video to H.264/AAC MP4 with ffmpeg
  ConvertDvd    transcode the DVD main title to MP4 with ffmpeg

Duplicates are skipped. A destination that already exists is never
overwritten, so re-running apply after an interruption only finishes the
remaining items. Failures are counted and logged; the run continues.

Outcome logs (apply_ok.log, apply_fail.log, apply_duplicates_skipped.log)
are appended in --log-dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().String("log-dir", ".", "directory for apply outcome logs")
	applyCmd.Flags().Bool("nas-mode", false, "force network-storage tuning (default: auto-detect)")

	viper.BindPFlag("log_dir", applyCmd.Flags().Lookup("log-dir"))
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	manifestPath := manifest.DefaultPath
	if len(args) > 0 {
		manifestPath = args[0]
	}

	items, err := manifest.Read(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	util.InfoLog("Loaded %s items from %s", util.FormatCount(len(items)), manifestPath)

	nasMode := GetConfigOptionalBool("nas_mode")
	if cmd.Flags().Changed("nas-mode") {
		val, _ := cmd.Flags().GetBool("nas-mode")
		nasMode = &val
	}
	srcProbe, dstProbe := probePaths(items)
	tune := util.AutoTuneForPath(srcProbe, dstProbe, nasMode)
	attempts, err := nonNegativeInt("retry_attempts", 0)
	if err != nil {
		return err
	}
	if attempts > 0 {
		tune.Retry.MaxAttempts = attempts
	}
	bufSize, err := nonNegativeInt("buffer_size", 0)
	if err != nil {
		return err
	}
	if bufSize > 0 {
		tune.BufferSize = bufSize
	}
	if tune.IsNASMode {
		util.DebugLog("Network storage tuning: %s buffer, %d attempts",
			util.FormatBytes(int64(tune.BufferSize)), tune.Retry.MaxAttempts)
	}

	ffmpeg := &transcode.FFmpeg{Binary: GetConfigString("ffmpeg", transcode.DefaultFFmpeg)}
	if needsConversion(items) && !ffmpeg.Available() {
		util.WarnLog("ffmpeg not found: video and DVD conversions will fail")
	}

	runID := newRunID()
	events, err := openEventLogger("apply", runID)
	if err != nil {
		return err
	}
	defer events.Close()

	logs, err := apply.OpenLogs(GetConfigString("log_dir", "."), runID)
	if err != nil {
		return err
	}
	defer logs.Close()

	engine := apply.New(&apply.Config{
		Transcoder: ffmpeg,
		Logs:       logs,
		Events:     events,
		BufferSize: tune.BufferSize,
		Retry:      tune.Retry,
	})

	start := time.Now()
	summary, err := engine.Apply(ctx, items)
	summary.Print(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("apply interrupted: %w", err)
	}

	util.SuccessLog("Apply finished in %s: %d written, %d failed",
		util.FormatDuration(time.Since(start)), summary.Written(), summary.Failed)
	return nil
}

// probePaths picks the source and destination directories of the first
// item apply will write, for network storage detection
func probePaths(items []manifest.Item) (string, string) {
	for i := range items {
		if !items[i].IsDuplicate() {
			return filepath.Dir(items[i].Src), filepath.Dir(items[i].Dst)
		}
	}
	return "", ""
}

func needsConversion(items []manifest.Item) bool {
	for i := range items {
		if items[i].Action != manifest.ActionCopy && !items[i].IsDuplicate() {
			return true
		}
	}
	return false
}
