package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// MarkdownInfo carries run context shown in the markdown header
type MarkdownInfo struct {
	GeneratedAt  time.Time
	ManifestPath string
	EventLogPath string
}

// WriteMarkdown writes the report as Markdown to outputPath on fs
func WriteMarkdown(fs afero.Fs, s *Summary, notes []string, info MarkdownInfo, outputPath string) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if info.GeneratedAt.IsZero() {
		info.GeneratedAt = time.Now()
	}

	var md strings.Builder

	md.WriteString("# Media Janitor - Manifest Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", info.GeneratedAt.Format("2006-01-02 15:04:05")))
	if info.ManifestPath != "" {
		md.WriteString(fmt.Sprintf("**Manifest:** `%s`\n\n", info.ManifestPath))
	}
	if info.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", info.EventLogPath))
	}
	md.WriteString("---\n\n")

	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Planned Items | %d |\n", s.Total))
	md.WriteString(fmt.Sprintf("| Missing Date | %d |\n", s.MissingDate))
	md.WriteString(fmt.Sprintf("| Duplicates | %d |\n", s.Duplicates))
	md.WriteString("\n")

	writeTable(&md, "🗂️ By Kind", "Kind", s.ByKind)
	writeTable(&md, "⚙️ By Action", "Action", s.ByAction)
	writeTable(&md, "🕒 By Date Source", "Source", s.ByDateSource)
	writeTable(&md, "📅 By Year", "Year", s.ByYear)
	writeTable(&md, "📆 By Month", "Month", s.ByYearMonth)

	if s.Validated {
		md.WriteString("## ✅ Output Validation\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Outputs Exist | %d |\n", s.OutputsExist))
		md.WriteString(fmt.Sprintf("| Outputs Missing | %d |\n", s.OutputsMissing))
		md.WriteString(fmt.Sprintf("| Zero-Byte Outputs | %d |\n", s.OutputsZeroBytes))
		md.WriteString("\n")
	}

	if len(notes) > 0 {
		md.WriteString("## ⚠️ Notes\n\n")
		md.WriteString("```\n")
		for _, line := range notes {
			md.WriteString(line)
			md.WriteString("\n")
		}
		md.WriteString("```\n\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by mj - Media Janitor*\n")

	if err := afero.WriteFile(fs, outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeTable(md *strings.Builder, title, column string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	md.WriteString(fmt.Sprintf("## %s\n\n", title))
	md.WriteString(fmt.Sprintf("| %s | Count |\n", column))
	md.WriteString("|------|-------|\n")
	for _, k := range sortedKeys(m) {
		md.WriteString(fmt.Sprintf("| %s | %d |\n", k, m[k]))
	}
	md.WriteString("\n")
}
