package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/franz/media-janitor/internal/dates"
	"github.com/franz/media-janitor/internal/plan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "List media with their resolved dates without planning anything",
	Long: `Walk root (default ".") and print every photo, video and DVD folder with
the date plan would use for it, followed by totals. Nothing is written.

Use it to check how dates resolve before running plan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	resolver := dates.NewResolver(GetConfigString("ffprobe", ""))
	out := cmd.OutOrStdout()
	summary, err := plan.Scan(ctx, root, resolver, out)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	summary.Print(out, root)
	return nil
}
