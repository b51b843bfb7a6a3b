package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NetworkInfo describes the mount a path lives on
type NetworkInfo struct {
	IsNetwork bool   // Whether the filesystem is network-mounted
	Protocol  string // Filesystem type (nfs, cifs, fuse.sshfs, ...)
	MountPath string // Mount point of the filesystem
}

type mountEntry struct {
	mountPoint string
	fsType     string
}

var networkFsTypes = []string{"nfs", "cifs", "smb", "ncpfs", "fuse.sshfs", "fuse.rclone", "afpfs", "webdav"}

const procMounts = "/proc/mounts"

// DetectNetworkFilesystem reports whether path is on a network mount.
// Platforms without /proc/mounts are treated as local.
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	f, err := os.Open(procMounts)
	if err != nil {
		if os.IsNotExist(err) {
			return &NetworkInfo{}, nil
		}
		return nil, err
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return nil, err
	}
	return matchMount(absPath, mounts), nil
}

// IsNetworkPath is DetectNetworkFilesystem with errors treated as local
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

// parseMounts reads the fstab-style "device mountpoint fstype ..." format
func parseMounts(r io.Reader) ([]mountEntry, error) {
	var mounts []mountEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, mountEntry{
			mountPoint: unescapeMount(fields[1]),
			fsType:     strings.ToLower(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// unescapeMount decodes the octal escapes the kernel uses for spaces and tabs
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}

func matchMount(absPath string, mounts []mountEntry) *NetworkInfo {
	best := -1
	for i, m := range mounts {
		if !underMount(absPath, m.mountPoint) {
			continue
		}
		if best < 0 || len(m.mountPoint) >= len(mounts[best].mountPoint) {
			best = i
		}
	}

	info := &NetworkInfo{}
	if best < 0 {
		return info
	}
	m := mounts[best]
	info.MountPath = m.mountPoint
	info.Protocol = m.fsType
	for _, t := range networkFsTypes {
		if strings.Contains(m.fsType, t) {
			info.IsNetwork = true
			break
		}
	}
	return info
}

func underMount(path, mountPoint string) bool {
	if mountPoint == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

// TuneConfig holds I/O settings picked for the archive location
type TuneConfig struct {
	BufferSize int
	Retry      *RetryConfig
	IsNASMode  bool
	Detected   *NetworkInfo
}

const (
	DefaultBufferSize = 1 << 20
	NASBufferSize     = 4 << 20
)

// AutoTuneForPath picks copy buffer and retry settings for the given paths.
// A non-nil nasMode overrides detection.
func AutoTuneForPath(srcPath, destPath string, nasMode *bool) *TuneConfig {
	cfg := &TuneConfig{
		BufferSize: DefaultBufferSize,
		Retry:      DefaultRetryConfig(),
	}

	if nasMode != nil {
		if *nasMode {
			applyNASTuning(cfg)
			InfoLog("NAS mode: explicitly enabled")
		} else {
			DebugLog("NAS mode: explicitly disabled")
		}
		return cfg
	}

	for _, p := range []string{srcPath, destPath} {
		if p == "" {
			continue
		}
		info, err := DetectNetworkFilesystem(p)
		if err != nil {
			WarnLog("Failed to detect filesystem for %s: %v", p, err)
			continue
		}
		if info.IsNetwork {
			cfg.Detected = info
			applyNASTuning(cfg)
			InfoLog("Network filesystem detected: %s is on %s (%s)", p, info.Protocol, info.MountPath)
			InfoLog("  Buffer size: %s, retry attempts: %d", FormatBytes(int64(cfg.BufferSize)), cfg.Retry.MaxAttempts)
			return cfg
		}
	}

	DebugLog("Local filesystem detected - using standard settings")
	return cfg
}

func applyNASTuning(cfg *TuneConfig) {
	cfg.IsNASMode = true
	cfg.BufferSize = NASBufferSize
	cfg.Retry = NASRetryConfig()
}
