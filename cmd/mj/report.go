package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report [manifest_path]",
	Short: "Recompute statistics from a manifest and optionally check outputs",
	Long: `Read the manifest (default "manifest.jsonl") and print totals by kind,
action and date source, duplicate and missing-date counts, and year and
year-month histograms, followed by remediation notes.

With --validate-outputs every non-duplicate destination is checked on disk
and reported as existing, zero-byte or missing.

With --out a Markdown copy of the report is written to <dir>/summary.md.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("validate-outputs", false, "check every planned destination on disk")
	reportCmd.Flags().String("out", "", "also write a Markdown report to this directory")
}

func runReport(cmd *cobra.Command, args []string) error {
	manifestPath := manifest.DefaultPath
	if len(args) > 0 {
		manifestPath = args[0]
	}
	validate, _ := cmd.Flags().GetBool("validate-outputs")
	outDir, _ := cmd.Flags().GetString("out")

	items, err := manifest.Read(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	summary, notes := report.Build(items, report.Options{ValidateOutputs: validate})
	report.Print(cmd.OutOrStdout(), summary, notes)

	if outDir != "" {
		mdPath := filepath.Join(outDir, "summary.md")
		info := report.MarkdownInfo{ManifestPath: manifestPath}
		if err := report.WriteMarkdown(nil, summary, notes, info, mdPath); err != nil {
			return err
		}
		util.SuccessLog("Markdown report: %s", mdPath)
	}
	return nil
}
