package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnsupported indicates a file kind or action is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file is corrupt or could not be parsed
	ErrCorrupt = errors.New("corrupt file")

	// ErrNotFound indicates a required resource (file, tool) was not found
	ErrNotFound = errors.New("not found")

	// ErrExists indicates a destination already exists and will not be overwritten
	ErrExists = errors.New("destination exists")

	// ErrSizeMismatch indicates a copied file does not match its source size
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
