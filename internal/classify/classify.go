// Package classify maps files to media kinds by extension.
package classify

import (
	"path/filepath"
	"strings"
)

// Kind is the media kind of a filesystem entry
type Kind int

const (
	Ignore Kind = iota
	Photo
	Video
	DVDFragment
)

func (k Kind) String() string {
	switch k {
	case Photo:
		return "photo"
	case Video:
		return "video"
	case DVDFragment:
		return "dvd-fragment"
	default:
		return "ignore"
	}
}

var kindByExt = map[string]Kind{
	"jpg":  Photo,
	"jpeg": Photo,
	"png":  Photo,
	"mp4":  Video,
	"avi":  Video,
	"mov":  Video,
	"m4v":  Video,
	"vob":  DVDFragment,
	"ifo":  DVDFragment,
	"bup":  DVDFragment,
}

// NormalizeExtension returns the lower-cased extension without the dot
func NormalizeExtension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Classify returns the media kind for path based only on its extension
func Classify(path string) Kind {
	return kindByExt[NormalizeExtension(path)]
}

// IsJPEG reports whether path has a jpg/jpeg extension
func IsJPEG(path string) bool {
	switch NormalizeExtension(path) {
	case "jpg", "jpeg":
		return true
	}
	return false
}
