package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-janitor/internal/dates"
	"github.com/franz/media-janitor/internal/dedupe"
	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/meta"
	"github.com/franz/media-janitor/internal/plan"
	"github.com/franz/media-janitor/internal/util"
)

const defaultOutRoot = "./ExportSet"

var planCmd = &cobra.Command{
	Use:   "plan [input_root] [out_root]",
	Short: "Walk the input, date every asset, detect duplicates and write the manifest",
	Long: `Walk input_root (default ".") and plan every photo, video and DVD folder
into out_root (default "./ExportSet"):

  Photos/<YYYY>/<YYYY-MM>/<YYYY-MM-DD>/<name>.<ext>
  Videos/<YYYY>/<YYYY-MM>/<YYYY-MM-DD>/<name>.mp4
  DVDs/<YYYY>/<YYYY-MM>/<YYYY-MM-DD>/<folder>.mp4

Items without a usable date go to <category>/UnknownDate/.

Capture dates come from EXIF (photos), the container creation time
(videos, via ffprobe) or the file modification time. Byte-identical files
are marked as duplicates of the first copy and are skipped by apply.

Nothing is written except the manifest and the event log.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().String("manifest", manifest.DefaultPath, "manifest output path")
	planCmd.Flags().Int("hash-workers", 4, "parallel hashing workers for duplicate detection")

	viper.BindPFlag("manifest", planCmd.Flags().Lookup("manifest"))
	viper.BindPFlag("hash_workers", planCmd.Flags().Lookup("hash-workers"))
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	inputRoot, outRoot := ".", defaultOutRoot
	if len(args) > 0 {
		inputRoot = args[0]
	}
	if len(args) > 1 {
		outRoot = args[1]
	}
	manifestPath := GetConfigString("manifest", manifest.DefaultPath)

	ffprobe := &meta.FFprobe{Binary: GetConfigString("ffprobe", meta.DefaultFFprobe)}
	if !ffprobe.Available() {
		util.WarnLog("ffprobe not found: video dates will fall back to file modification time")
	}

	workers, err := nonNegativeInt("hash_workers", 4)
	if err != nil {
		return err
	}

	runID := newRunID()
	logger, err := openEventLogger("plan", runID)
	if err != nil {
		return err
	}
	defer logger.Close()

	planner := plan.New(&plan.Config{
		Resolver: &dates.Resolver{Photos: meta.ExifReader{}, Videos: ffprobe},
		Finder:   &dedupe.Finder{Workers: workers},
		Logger:   logger,
	})

	start := time.Now()
	result, err := planner.Build(ctx, inputRoot, outRoot)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	if err := manifest.Write(manifestPath, result.Items); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	result.Summary.Print(cmd.OutOrStdout())
	util.SuccessLog("Wrote %s items to %s in %s",
		util.FormatCount(len(result.Items)), manifestPath, util.FormatDuration(time.Since(start)))
	return nil
}
