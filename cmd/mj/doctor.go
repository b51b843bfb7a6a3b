package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/meta"
	"github.com/franz/media-janitor/internal/transcode"
	"github.com/franz/media-janitor/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and manifest",
	Long: `Run diagnostic checks to ensure mj can operate correctly.

This command checks:
- ffprobe (required for video dates)
- ffmpeg (required only for video and DVD conversion)
- Input directory readability and output directory writability
- Disk space availability
- Manifest integrity (every bad line is listed)

Use this command to troubleshoot issues before running plan or apply.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("src", "", "Input directory to check (optional)")
	doctorCmd.Flags().String("dest", "", "Output directory to check (optional)")
	doctorCmd.Flags().String("manifest", manifest.DefaultPath, "Manifest to validate")
}

type checkResult struct {
	name    string
	message string
	details []string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== mj doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkTool("ffprobe", GetConfigString("ffprobe", meta.DefaultFFprobe), true, "required for video dates"),
		checkTool("ffmpeg", GetConfigString("ffmpeg", transcode.DefaultFFmpeg), false, "required only for conversions"),
	}

	srcPath, _ := cmd.Flags().GetString("src")
	if srcPath != "" {
		results = append(results, checkSourceDirectory(srcPath))
		results = append(results, checkDiskSpace(srcPath, "input"))
	}

	destPath, _ := cmd.Flags().GetString("dest")
	if destPath != "" {
		results = append(results, checkDestinationDirectory(destPath))
		if destPath != srcPath {
			results = append(results, checkDiskSpace(destPath, "output"))
		}
	}

	manifestPath, _ := cmd.Flags().GetString("manifest")
	results = append(results, checkManifest(manifestPath))

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
		for _, d := range r.details {
			util.InfoLog("      %s", d)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running mj.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! System is ready for mj operations.")
	}

	return nil
}

// checkTool runs "<binary> -version" and reports the version it prints
func checkTool(name, binary string, required bool, purpose string) checkResult {
	if !required {
		name += " (optional)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "-version").CombinedOutput()
	if err != nil {
		return checkResult{
			name:    name,
			error:   required,
			warning: !required,
			message: fmt.Sprintf("not found or not executable (%s)", purpose),
		}
	}

	return checkResult{
		name:    name,
		message: fmt.Sprintf("version %s", parseToolVersion(string(output))),
	}
}

// parseToolVersion takes the third field of the first line, as in
// "ffprobe version 6.1.1 Copyright ..."
func parseToolVersion(output string) string {
	first, _, _ := strings.Cut(output, "\n")
	parts := strings.Fields(first)
	if len(parts) >= 3 {
		return parts[2]
	}
	return "unknown"
}

// checkSourceDirectory verifies the input directory is readable
func checkSourceDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Input directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Input directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Input directory",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	return checkResult{
		name:    "Input directory",
		message: fmt.Sprintf("%s (%d entries)", path, len(entries)),
	}
}

// checkDestinationDirectory verifies the output directory is writable
func checkDestinationDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Output directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Output directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Output directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Output directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".mj_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Output directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	msg := fmt.Sprintf("%s (writable)", path)
	if util.IsNetworkPath(path) {
		msg = fmt.Sprintf("%s (writable, network storage: apply uses NAS tuning)", path)
	}
	return checkResult{
		name:    "Output directory",
		message: msg,
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	name := fmt.Sprintf("Disk space (%s)", label)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	usedPercent := 0.0
	if totalBytes > 0 {
		usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	}

	// Warn under 10 GiB available or above 90% used
	warning := false
	warningMsg := ""
	if availBytes < 10<<30 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 90 {
		warning = true
		warningMsg = " (>90% used)"
	}

	return checkResult{
		name:    name,
		warning: warning,
		message: fmt.Sprintf("%s available%s", util.FormatBytes(int64(availBytes)), warningMsg),
	}
}

// checkManifest validates every line of the manifest, if there is one
func checkManifest(path string) checkResult {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Manifest",
				message: fmt.Sprintf("%s not found (run plan first)", path),
			}
		}
		return checkResult{
			name:    "Manifest",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", path, err),
		}
	}
	defer f.Close()

	valid, bad, err := manifest.Validate(f)
	if err != nil {
		return checkResult{
			name:    "Manifest",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	if len(bad) > 0 {
		details := make([]string, 0, len(bad))
		for _, le := range bad {
			details = append(details, le.Error())
		}
		return checkResult{
			name:    "Manifest",
			error:   true,
			message: fmt.Sprintf("%s: %d valid items, %d bad lines", path, valid, len(bad)),
			details: details,
		}
	}

	return checkResult{
		name:    "Manifest",
		message: fmt.Sprintf("%s (%d items)", path, valid),
	}
}
