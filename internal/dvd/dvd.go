// Package dvd recognizes DVD folder structures and picks the main title.
package dvd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/media-janitor/internal/classify"
)

// VideoTSDir is the directory name holding a DVD's video objects
const VideoTSDir = "VIDEO_TS"

// Title is one title set: the VTS_NN_k.VOB files sharing a VTS_NN prefix
type Title struct {
	Prefix string
	Files  []string // absolute paths in sequence order
	Size   int64
}

// IsInsideVideoTS reports whether any component of path is VIDEO_TS
func IsInsideVideoTS(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.EqualFold(part, VideoTSDir) {
			return true
		}
	}
	return false
}

// RootFromVideoTSDir returns the DVD root for a VIDEO_TS directory
func RootFromVideoTSDir(dir string) (string, bool) {
	if !strings.EqualFold(filepath.Base(dir), VideoTSDir) {
		return "", false
	}
	return filepath.Dir(dir), true
}

// findVideoTS returns the VIDEO_TS child of root, matched case-insensitively
func findVideoTS(root string) (string, bool, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), VideoTSDir) {
			return filepath.Join(root, e.Name()), true, nil
		}
	}
	return "", false, nil
}

// titlePrefix returns the VTS_NN prefix of a title VOB, or false for
// menus (VTS_NN_0) and names that do not follow the pattern
func titlePrefix(name string) (string, bool) {
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "VTS_") || len(upper) < 10 {
		return "", false
	}
	if classify.NormalizeExtension(upper) != "vob" {
		return "", false
	}
	if upper[6:8] == "_0" {
		return "", false
	}
	return upper[:6], true
}

// MainTitle returns the title set with the largest total size under
// root/VIDEO_TS. Ties go to the smallest prefix. A missing VIDEO_TS or
// one without title VOBs yields nil.
func MainTitle(root string) (*Title, error) {
	videoTS, ok, err := findVideoTS(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read DVD root: %w", err)
	}
	if !ok {
		return nil, nil
	}

	entries, err := os.ReadDir(videoTS)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", VideoTSDir, err)
	}

	groups := make(map[string]*Title)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		prefix, ok := titlePrefix(e.Name())
		if !ok {
			continue
		}
		g := groups[prefix]
		if g == nil {
			g = &Title{Prefix: prefix}
			groups[prefix] = g
		}
		g.Files = append(g.Files, filepath.Join(videoTS, e.Name()))
	}

	prefixes := make([]string, 0, len(groups))
	for p := range groups {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var best *Title
	for _, p := range prefixes {
		g := groups[p]
		sort.Strings(g.Files)
		for _, f := range g.Files {
			// unreadable members count as empty
			if info, err := os.Stat(f); err == nil {
				g.Size += info.Size()
			}
		}
		if g.Size > 0 && (best == nil || g.Size > best.Size) {
			best = g
		}
	}
	return best, nil
}

// MainTitleVOBs returns the VOB paths of the main title, in sequence order
func MainTitleVOBs(root string) ([]string, error) {
	t, err := MainTitle(root)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Files, nil
}
