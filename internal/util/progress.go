package util

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress is a terminal progress bar. A nil *Progress is a no-op, which
// is what NewProgress returns when stderr is not a terminal or logging is quiet.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a bar for total items, or a spinner when total is -1
func NewProgress(total int, description, unit string) *Progress {
	if IsQuiet() || !StderrIsTerminal() {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Progress{bar: bar}
}

// Add advances the bar by n
func (p *Progress) Add(n int) {
	if p == nil {
		return
	}
	_ = p.bar.Add(n)
}

// Describe changes the label shown next to the bar
func (p *Progress) Describe(description string) {
	if p == nil {
		return
	}
	p.bar.Describe(description)
}

// Finish completes and clears the bar
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
