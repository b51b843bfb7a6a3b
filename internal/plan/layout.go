package plan

import (
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/franz/media-janitor/internal/classify"
	"github.com/franz/media-janitor/internal/dates"
	"github.com/franz/media-janitor/internal/manifest"
)

// UnknownDate is the partition for items without a resolved date
const UnknownDate = "UnknownDate"

var categoryDirs = map[manifest.MediaKind]string{
	manifest.KindPhoto: "Photos",
	manifest.KindVideo: "Videos",
	manifest.KindDvd:   "DVDs",
}

// Destination returns the archive path for src:
//
//	<out>/<Photos|Videos|DVDs>/<YYYY>/<YYYY-MM>/<YYYY-MM-DD>/<stem>.<ext>
//	<out>/<category>/UnknownDate/<stem>.<ext>
//
// Photos keep their lower-cased extension; videos and DVDs become mp4.
// A DVD's stem is its root folder name.
func Destination(outRoot string, kind manifest.MediaKind, src string, res dates.Resolution) string {
	dir := filepath.Join(outRoot, categoryDirs[kind])
	if res.Known {
		t := res.Time
		dir = filepath.Join(dir, t.Format("2006"), t.Format("2006-01"), t.Format("2006-01-02"))
	} else {
		dir = filepath.Join(dir, UnknownDate)
	}

	var name, ext string
	switch kind {
	case manifest.KindPhoto:
		name = safeStem(src)
		ext = classify.NormalizeExtension(src)
		if ext == "" {
			ext = "jpg"
		}
	case manifest.KindVideo:
		name = safeStem(src)
		ext = "mp4"
	case manifest.KindDvd:
		name = filepath.Base(src)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = "DVD"
		}
		ext = "mp4"
	}

	return filepath.Join(dir, name+"."+ext)
}

func safeStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "file"
	}
	return stem
}

// ActionForVideo returns ConvertVideo for AVI sources and Copy otherwise
func ActionForVideo(path string) manifest.Action {
	if classify.NormalizeExtension(path) == "avi" {
		return manifest.ActionConvertVideo
	}
	return manifest.ActionCopy
}

// collisionKey folds a destination so that paths differing only in case
// or Unicode normalization compare equal
func collisionKey(path string) string {
	return strings.ToLower(norm.NFC.String(path))
}

// withSuffix inserts _n before the extension: a.jpg -> a_2.jpg
func withSuffix(path string, n int) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strconv.Itoa(n) + ext
}
