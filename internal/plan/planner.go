// Package plan walks an input tree and produces the manifest items that
// migrate it into the date-partitioned archive layout.
package plan

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/franz/media-janitor/internal/classify"
	"github.com/franz/media-janitor/internal/dates"
	"github.com/franz/media-janitor/internal/dedupe"
	"github.com/franz/media-janitor/internal/dvd"
	"github.com/franz/media-janitor/internal/manifest"
	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/util"
)

// Planner builds manifest items for an input tree
type Planner struct {
	resolver *dates.Resolver
	finder   *dedupe.Finder
	logger   *report.EventLogger
}

// Config holds planner configuration
type Config struct {
	Resolver *dates.Resolver
	Finder   *dedupe.Finder
	Logger   *report.EventLogger
}

// New creates a new Planner
func New(cfg *Config) *Planner {
	p := &Planner{
		resolver: cfg.Resolver,
		finder:   cfg.Finder,
		logger:   cfg.Logger,
	}
	if p.resolver == nil {
		p.resolver = &dates.Resolver{}
	}
	if p.finder == nil {
		p.finder = &dedupe.Finder{Workers: 1}
	}
	return p
}

// Summary holds the counters accumulated over one planning run
type Summary struct {
	Planned            int
	Photos             int
	Videos             int
	DVDs               int
	Ignored            int
	MissingDate        int
	NeedConvertVideo   int
	NeedConvertDVD     int
	DuplicatePhotos    int
	DuplicateVideos    int
	CollisionsResolved int
	DateErrors         int
	WalkErrors         int
	DVDMainTitleBytes  int64
	DVDMainTitleVOBs   int
}

// Result is the outcome of Build
type Result struct {
	Items   []manifest.Item
	Summary Summary
}

// Build walks inputRoot and plans every photo, video and DVD under it for
// the archive at outRoot. Items come in walk order (photos and videos
// interleaved) followed by DVDs in path order. Only an unreadable input
// root or a duplicate-detection failure aborts the run.
func (p *Planner) Build(ctx context.Context, inputRoot, outRoot string) (*Result, error) {
	inAbs, err := filepath.Abs(inputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input root: %w", err)
	}
	outAbs, err := filepath.Abs(outRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root: %w", err)
	}

	util.InfoLog("Planning %s -> %s", inAbs, outAbs)

	res := &Result{}
	s := &res.Summary

	bar := util.NewProgress(-1, "Planning", "files")
	walk, err := walkMedia(ctx, inAbs, outAbs, p.logger, func(path string, kind classify.Kind) {
		bar.Add(1)
		switch kind {
		case classify.Photo:
			s.Photos++
			res.Items = append(res.Items, p.planFile(ctx, s, path, manifest.KindPhoto, outAbs))
		case classify.Video:
			s.Videos++
			res.Items = append(res.Items, p.planFile(ctx, s, path, manifest.KindVideo, outAbs))
		default:
			s.Ignored++
		}
	})
	bar.Finish()
	if err != nil {
		return nil, err
	}
	s.WalkErrors = walk.WalkErrors

	for _, root := range walk.DVDRoots {
		res.Items = append(res.Items, p.planDVD(s, root, outAbs))
	}

	if err := p.markDuplicates(ctx, s, res.Items); err != nil {
		p.logger.LogError(report.EventError, inAbs, err)
		return nil, err
	}
	p.resolveCollisions(s, res.Items)

	s.Planned = len(res.Items)
	return res, nil
}

func (p *Planner) planFile(ctx context.Context, s *Summary, path string, kind manifest.MediaKind, outRoot string) manifest.Item {
	res, err := p.resolver.ForFile(ctx, path)
	if err != nil {
		s.DateErrors++
		annotation := "error"
		if kind == manifest.KindPhoto {
			annotation = "exif error"
		}
		util.WarnLog("(%s) (%s) %s [ %v ]", kindLabel(kind), annotation, path, err)
		p.logger.LogError(report.EventDateError, path, err)
		res = dates.Resolution{}
	}

	action := manifest.ActionCopy
	if kind == manifest.KindVideo {
		action = ActionForVideo(path)
		if action == manifest.ActionConvertVideo {
			s.NeedConvertVideo++
		}
	}

	return p.newItem(s, kind, action, path, outRoot, res)
}

func (p *Planner) planDVD(s *Summary, root, outRoot string) manifest.Item {
	s.DVDs++
	s.NeedConvertDVD++

	title, err := dvd.MainTitle(root)
	switch {
	case err != nil:
		util.WarnLog("(dvd) main title lookup failed for %s: %v", root, err)
	case title == nil:
		util.WarnLog("(dvd) no title VOBs found in %s", root)
	default:
		s.DVDMainTitleBytes += title.Size
		s.DVDMainTitleVOBs += len(title.Files)
		util.DebugLog("(dvd) %s main title %s: %d VOBs, %s", root, title.Prefix, len(title.Files), util.FormatBytes(title.Size))
	}

	return p.newItem(s, manifest.KindDvd, manifest.ActionConvertDvd, root, outRoot, p.resolver.ForDVD(root))
}

func (p *Planner) newItem(s *Summary, kind manifest.MediaKind, action manifest.Action, src, outRoot string, res dates.Resolution) manifest.Item {
	item := manifest.Item{
		Version:    manifest.Version,
		Kind:       kind,
		Action:     action,
		Src:        src,
		Dst:        Destination(outRoot, kind, src, res),
		DateSource: res.Source,
	}
	if formatted, ok := res.Formatted(); ok {
		item.BestDT = &formatted
	} else {
		s.MissingDate++
	}
	p.logger.LogPlan(kind.String(), item.Src, item.Dst, action.String(), res.Source.String())
	return item
}

// markDuplicates runs exact-duplicate detection per kind (photos, then
// videos). The earliest item of each group in plan order is canonical, so
// duplicate_of always points backwards at a non-duplicate.
func (p *Planner) markDuplicates(ctx context.Context, s *Summary, items []manifest.Item) error {
	bar := util.NewProgress(-1, "Hashing", "files")
	defer bar.Finish()

	for _, kind := range []manifest.MediaKind{manifest.KindPhoto, manifest.KindVideo} {
		var paths []string
		index := make(map[string]int)
		for i := range items {
			if items[i].Kind != kind {
				continue
			}
			if _, seen := index[items[i].Src]; seen {
				continue
			}
			index[items[i].Src] = i
			paths = append(paths, items[i].Src)
		}
		if len(paths) < 2 {
			continue
		}

		finder := *p.finder
		bar.Describe("Hashing " + kindLabel(kind) + "s")
		finder.OnHashed = func(string) { bar.Add(1) }
		groups, err := finder.FindExactDuplicates(ctx, paths)
		if err != nil {
			return fmt.Errorf("duplicate detection failed: %w", err)
		}

		for _, g := range groups {
			canonical := g.Paths[0]
			for _, dup := range g.Paths[1:] {
				i := index[dup]
				ref := canonical
				items[i].DuplicateOf = &ref
				switch kind {
				case manifest.KindPhoto:
					s.DuplicatePhotos++
				case manifest.KindVideo:
					s.DuplicateVideos++
				}
				util.DebugLog("(%s) duplicate %s of %s", kindLabel(kind), dup, canonical)
				p.logger.LogDuplicate(kind.String(), dup, canonical, g.Digest)
			}
		}
	}
	return nil
}

// resolveCollisions renames clashing destinations among non-duplicates by
// appending _2, _3, ... in plan order. Duplicates are never written, so
// they keep their natural destination.
func (p *Planner) resolveCollisions(s *Summary, items []manifest.Item) {
	taken := make(map[string]bool)
	for i := range items {
		if items[i].IsDuplicate() {
			continue
		}
		wanted := items[i].Dst
		dst := wanted
		for n := 2; taken[collisionKey(dst)]; n++ {
			dst = withSuffix(wanted, n)
		}
		taken[collisionKey(dst)] = true
		if dst != wanted {
			items[i].Dst = dst
			s.CollisionsResolved++
			util.WarnLog("Destination collision: %s -> %s", items[i].Src, dst)
			p.logger.LogCollision(items[i].Kind.String(), items[i].Src, wanted, dst)
		}
	}
}

func kindLabel(kind manifest.MediaKind) string {
	switch kind {
	case manifest.KindPhoto:
		return "photo"
	case manifest.KindVideo:
		return "video"
	default:
		return "dvd"
	}
}

// Print writes the planning summary
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Plan Summary ===")
	fmt.Fprintf(w, "Planned items: %d\n", s.Planned)
	fmt.Fprintf(w, "Photos: %d\n", s.Photos)
	fmt.Fprintf(w, "Videos: %d\n", s.Videos)
	fmt.Fprintf(w, "DVDs: %d\n", s.DVDs)
	fmt.Fprintf(w, "Ignored files: %d\n", s.Ignored)
	fmt.Fprintf(w, "Missing date: %d\n", s.MissingDate)
	fmt.Fprintf(w, "Need video conversion: %d\n", s.NeedConvertVideo)
	fmt.Fprintf(w, "Need DVD conversion: %d\n", s.NeedConvertDVD)
	fmt.Fprintf(w, "Duplicate photos: %d\n", s.DuplicatePhotos)
	fmt.Fprintf(w, "Duplicate videos: %d\n", s.DuplicateVideos)
	if s.CollisionsResolved > 0 {
		fmt.Fprintf(w, "Destination collisions renamed: %d\n", s.CollisionsResolved)
	}
	if s.DateErrors > 0 {
		fmt.Fprintf(w, "Date extraction errors: %d\n", s.DateErrors)
	}
	if s.WalkErrors > 0 {
		fmt.Fprintf(w, "Walk errors: %d\n", s.WalkErrors)
	}
	if s.DVDs > 0 {
		fmt.Fprintf(w, "DVD main titles: %d VOBs, %s\n", s.DVDMainTitleVOBs, util.FormatBytes(s.DVDMainTitleBytes))
	}
}
