package plan

import (
	"context"
	"fmt"
	"io"

	"github.com/franz/media-janitor/internal/classify"
	"github.com/franz/media-janitor/internal/dates"
	"github.com/franz/media-janitor/internal/dvd"
	"github.com/franz/media-janitor/internal/util"
)

// ScanSummary holds the totals of a dry inventory
type ScanSummary struct {
	Photos         int
	PhotosWithExif int
	Videos         int
	DVDs           int
	Ignored        int
	WalkErrors     int
}

// Scan prints one line per asset with its resolved date, without planning
// or writing anything. Extraction errors are printed and counted, never fatal.
func Scan(ctx context.Context, root string, resolver *dates.Resolver, w io.Writer) (*ScanSummary, error) {
	if resolver == nil {
		resolver = &dates.Resolver{}
	}
	s := &ScanSummary{}

	walk, err := walkMedia(ctx, root, "", nil, func(path string, kind classify.Kind) {
		switch kind {
		case classify.Photo:
			s.Photos++
			res, err := resolver.ForFile(ctx, path)
			switch {
			case err != nil:
				fmt.Fprintf(w, "(photo) (exif error) %s [ %v ]\n", path, err)
			case res.Source == dates.SourceExif:
				s.PhotosWithExif++
				fmt.Fprintf(w, "(photo) %s    %s\n", dates.Format(res.Time), path)
			case res.Known:
				fmt.Fprintf(w, "(photo) (no exif date) %s    %s\n", dates.Format(res.Time), path)
			default:
				fmt.Fprintf(w, "(photo) (no date)    %s\n", path)
			}
		case classify.Video:
			s.Videos++
			res, err := resolver.ForFile(ctx, path)
			switch {
			case err != nil:
				fmt.Fprintf(w, "(video) (error) %s [ %v ]\n", path, err)
			case res.Known:
				fmt.Fprintf(w, "(video) %s    %s  [%s]\n", dates.Format(res.Time), path, res.Source)
			default:
				fmt.Fprintf(w, "(video) (no date)    %s\n", path)
			}
		default:
			s.Ignored++
		}
	})
	if err != nil {
		return nil, err
	}
	s.WalkErrors = walk.WalkErrors

	for _, r := range walk.DVDRoots {
		s.DVDs++
		title, err := dvd.MainTitle(r)
		if err != nil {
			util.WarnLog("(dvd) main title lookup failed for %s: %v", r, err)
		}
		vobs, size := 0, int64(0)
		if title != nil {
			vobs, size = len(title.Files), title.Size
		}

		date := "(no date)"
		if res := resolver.ForDVD(r); res.Known {
			date = dates.Format(res.Time)
		}
		fmt.Fprintf(w, "(dvd)  %s  %s  (%d VOBs, %s)\n", date, r, vobs, util.FormatBytes(size))
	}
	return s, nil
}

// Print writes the inventory totals
func (s *ScanSummary) Print(w io.Writer, root string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scanned: %s\n", root)
	fmt.Fprintf(w, "Photos: %d\n", s.Photos)
	fmt.Fprintf(w, "With EXIF date: %d\n", s.PhotosWithExif)
	fmt.Fprintf(w, "Videos: %d\n", s.Videos)
	fmt.Fprintf(w, "DVDs (as items): %d\n", s.DVDs)
	fmt.Fprintf(w, "Ignored: %d\n", s.Ignored)
	if s.WalkErrors > 0 {
		fmt.Fprintf(w, "Walk errors: %d\n", s.WalkErrors)
	}
}
