package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/afero"

	"github.com/franz/media-janitor/internal/manifest"
)

// UnknownDate buckets items without a best date in the histograms
const UnknownDate = "UnknownDate"

// Summary holds statistics recomputed from a manifest
type Summary struct {
	Total        int
	ByKind       map[string]int
	ByAction     map[string]int
	ByDateSource map[string]int
	ByYear       map[string]int
	ByYearMonth  map[string]int
	MissingDate  int
	Duplicates   int

	// Output validation, filled only when Validated is set
	Validated        bool
	OutputsExist     int
	OutputsMissing   int
	OutputsZeroBytes int
}

// Options controls report building
type Options struct {
	ValidateOutputs bool
	Fs              afero.Fs // filesystem checked during validation (nil = OS)
}

// Build recomputes the report for items. The returned notes are
// human-readable remediation lines; no count is derived from them.
func Build(items []manifest.Item, opts Options) (*Summary, []string) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	s := &Summary{
		Total:        len(items),
		ByKind:       make(map[string]int),
		ByAction:     make(map[string]int),
		ByDateSource: make(map[string]int),
		ByYear:       make(map[string]int),
		ByYearMonth:  make(map[string]int),
		Validated:    opts.ValidateOutputs,
	}

	var missingDates, duplicates, missingOutputs, zeroOutputs []*manifest.Item

	for i := range items {
		it := &items[i]
		s.ByKind[it.Kind.String()]++
		s.ByAction[it.Action.String()]++
		s.ByDateSource[it.DateSource.String()]++

		dt, ok := it.Date()
		if !ok {
			s.MissingDate++
			missingDates = append(missingDates, it)
		}
		s.ByYear[datePrefix(dt, 4)]++
		s.ByYearMonth[datePrefix(dt, 7)]++

		if it.IsDuplicate() {
			s.Duplicates++
			duplicates = append(duplicates, it)
			continue
		}

		if !opts.ValidateOutputs {
			continue
		}
		info, err := fs.Stat(it.Dst)
		if err != nil {
			s.OutputsMissing++
			missingOutputs = append(missingOutputs, it)
			continue
		}
		s.OutputsExist++
		if info.Size() == 0 {
			s.OutputsZeroBytes++
			zeroOutputs = append(zeroOutputs, it)
		}
	}

	var notes []string
	if len(missingDates) > 0 {
		notes = append(notes, "Missing dates:")
		for _, it := range missingDates {
			notes = append(notes, fmt.Sprintf("    - %s %s src=%s (date_source=%s)", it.Kind, it.Action, it.Src, it.DateSource))
		}
	}
	if len(duplicates) > 0 {
		notes = append(notes, "Duplicate files (skipped in apply):")
		for _, it := range duplicates {
			notes = append(notes, fmt.Sprintf("    - %s src=%s dup_of %s", it.Kind, it.Src, *it.DuplicateOf))
		}
	}
	if len(missingOutputs) > 0 {
		notes = append(notes, "Missing output (dst does not exist):")
		for _, it := range missingOutputs {
			notes = append(notes, fmt.Sprintf("    - %s %s dst=%s (src=%s)", it.Kind, it.Action, it.Dst, it.Src))
		}
	}
	if len(zeroOutputs) > 0 {
		notes = append(notes, "Zero-byte output (re-run apply after removing):")
		for _, it := range zeroOutputs {
			notes = append(notes, fmt.Sprintf("    - %s %s dst=%s", it.Kind, it.Action, it.Dst))
		}
	}

	return s, notes
}

// datePrefix buckets a formatted date by its first n characters
func datePrefix(dt string, n int) string {
	if len(dt) < n {
		return UnknownDate
	}
	return dt[:n]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printCounts(w io.Writer, title string, m map[string]int) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "  %-12s %d\n", k, m[k])
	}
}

// Print writes the report and notes in plain text
func Print(w io.Writer, s *Summary, notes []string) {
	fmt.Fprintln(w, "=== Manifest Report ===")
	fmt.Fprintf(w, "Total planned items: %d\n", s.Total)

	printCounts(w, "By kind", s.ByKind)
	printCounts(w, "By action", s.ByAction)
	printCounts(w, "By date source", s.ByDateSource)

	fmt.Fprintf(w, "\nMissing date: %d\n", s.MissingDate)
	fmt.Fprintf(w, "Duplicates (input): %d\n", s.Duplicates)

	printCounts(w, "By year (sorted)", s.ByYear)
	printCounts(w, "By year-month (sorted)", s.ByYearMonth)

	if s.Validated {
		fmt.Fprintln(w, "\nOutput validation:")
		fmt.Fprintf(w, "  Outputs exist:      %d\n", s.OutputsExist)
		fmt.Fprintf(w, "  Outputs missing:    %d\n", s.OutputsMissing)
		fmt.Fprintf(w, "  Outputs zero-bytes: %d\n", s.OutputsZeroBytes)
	}

	if len(notes) > 0 {
		fmt.Fprintln(w, "\n=== Notes ===")
		for _, line := range notes {
			fmt.Fprintln(w, line)
		}
	}
}
