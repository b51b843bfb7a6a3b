package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/franz/media-janitor/internal/report"
	"github.com/franz/media-janitor/internal/util"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (MJ_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// GetConfigOptionalBool returns nil when key is unset, so callers can tell
// "off" from "auto"
func GetConfigOptionalBool(key string) *bool {
	if !viper.IsSet(key) {
		return nil
	}
	val := viper.GetBool(key)
	return &val
}

// newRunID returns a fresh identifier stamped on every log of one run
func newRunID() string {
	return uuid.NewString()
}

// eventLevel is the event log threshold: event_level when set, otherwise
// derived from --quiet / --verbose
func eventLevel() (report.EventLevel, error) {
	if s := GetConfigString("event_level", ""); s != "" {
		level, ok := report.ParseLevel(s)
		if !ok {
			return "", fmt.Errorf("%w: event_level %q (want debug, info, warning or error)", util.ErrInvalidConfig, s)
		}
		return level, nil
	}

	switch {
	case GetConfigBool("quiet"):
		return report.LevelWarning, nil
	case GetConfigBool("verbose"):
		return report.LevelDebug, nil
	}
	return report.LevelInfo, nil
}

// nonNegativeInt reads an int setting, rejecting negative values
func nonNegativeInt(key string, defaultValue int) (int, error) {
	val := GetConfigInt(key, defaultValue)
	if val < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative (got %d)", util.ErrInvalidConfig, key, val)
	}
	return val, nil
}

// openEventLogger opens the JSONL event log for stage, falling back to the
// null logger when the artifacts directory is unusable
func openEventLogger(stage, runID string) (*report.EventLogger, error) {
	level, err := eventLevel()
	if err != nil {
		return nil, err
	}

	logger, err := report.NewEventLogger(GetConfigString("artifacts", "artifacts"), stage, runID, level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger(), nil
	}
	util.InfoLog("Event log: %s", logger.Path())
	return logger, nil
}
