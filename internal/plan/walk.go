package plan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/franz/media-janitor/internal/classify"
	"github.com/franz/media-janitor/internal/dvd"
	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/util"
)

// walkResult is what a single pass over the input tree found besides files
type walkResult struct {
	DVDRoots   []string // sorted, unique
	WalkErrors int
}

// walkMedia visits every regular file under root exactly once, in lexical
// order. VIDEO_TS directories are recorded as DVD roots and not descended
// into; skipDir (the output root, if nested) is never entered. Per-entry
// errors are logged and skipped.
func walkMedia(ctx context.Context, root, skipDir string, logger *report.EventLogger, visit func(path string, kind classify.Kind)) (*walkResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read input root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input root %s is not a directory", root)
	}

	res := &walkResult{}
	roots := make(map[string]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			res.WalkErrors++
			util.WarnLog("Walk error: %v", err)
			logger.LogError(report.EventWalkError, path, err)
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if skipDir != "" && path == skipDir {
				util.DebugLog("Skipping output directory %s", path)
				return filepath.SkipDir
			}
			if dvdRoot, ok := dvd.RootFromVideoTSDir(path); ok {
				roots[dvdRoot] = true
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if dvd.IsInsideVideoTS(rel) {
			return nil
		}

		visit(path, classify.Classify(path))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for r := range roots {
		res.DVDRoots = append(res.DVDRoots, r)
	}
	sort.Strings(res.DVDRoots)
	return res, nil
}
